// Package catalog enumerates the category groups, channel groups, and
// trunked-system identifiers available for a resolved region.
package catalog

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalwatch/freqscan-cli/internal/markup"
	"github.com/signalwatch/freqscan-cli/internal/region"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

// Hard caps on enumerated work. Downstream fan-out runs under an external
// execution-time budget; items past the cap are dropped, county-scoped
// items taking priority over state-scoped ones.
const (
	maxSubcats = 150
	maxSystems = 50
)

// Subcat is a flattened (id, name, parent category) tuple.
type Subcat struct {
	ID     string
	Name   string
	Parent string
}

// TrunkedRef identifies a trunked system to fetch in detail later.
type TrunkedRef struct {
	ID   string
	Name string
}

// Catalog is everything enumerable for a region.
type Catalog struct {
	Subcats []Subcat
	Systems []TrunkedRef
}

// Enumerator fetches county and state metadata.
type Enumerator struct {
	rpc radioref.Client
}

// NewEnumerator creates an Enumerator.
func NewEnumerator(rpc radioref.Client) *Enumerator {
	return &Enumerator{rpc: rpc}
}

// Enumerate fetches the county's category tree and trunked-system list,
// plus state-level metadata when a state identifier is known (statewide
// agencies such as highway patrol are not county-scoped). The state call is
// best-effort: its failure reduces the catalog, never aborts it.
func (e *Enumerator) Enumerate(ctx context.Context, info *region.RegionInfo, creds radioref.Credentials) (*Catalog, error) {
	var countyResp, stateResp string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := e.rpc.Call(gctx, radioref.OpGetCountyInfo, creds,
			fmt.Sprintf("<ctid>%s</ctid>", radioref.Escape(info.CountyID)))
		if err != nil {
			return eris.Wrap(err, "catalog: county info")
		}
		countyResp = resp
		return nil
	})
	if info.StateID != "" {
		g.Go(func() error {
			resp, err := e.rpc.Call(gctx, radioref.OpGetStateInfo, creds,
				fmt.Sprintf("<stid>%s</stid>", radioref.Escape(info.StateID)))
			if err != nil {
				zap.L().Warn("state metadata unavailable, continuing with county only",
					zap.String("state_id", info.StateID),
					zap.Error(err),
				)
				return nil
			}
			stateResp = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := &Catalog{}
	cat.Subcats = appendSubcats(cat.Subcats, countyResp)
	cat.Systems = appendSystems(cat.Systems, countyResp)
	if stateResp != "" {
		cat.Subcats = appendSubcats(cat.Subcats, stateResp)
		cat.Systems = appendSystems(cat.Systems, stateResp)
	}

	if len(cat.Subcats) > maxSubcats {
		zap.L().Debug("subcategory cap reached",
			zap.Int("found", len(cat.Subcats)),
			zap.Int("cap", maxSubcats),
		)
		cat.Subcats = cat.Subcats[:maxSubcats]
	}
	if len(cat.Systems) > maxSystems {
		zap.L().Debug("trunked system cap reached",
			zap.Int("found", len(cat.Systems)),
			zap.Int("cap", maxSystems),
		)
		cat.Systems = cat.Systems[:maxSystems]
	}

	return cat, nil
}

// appendSubcats flattens the category→subcategory tree of one metadata
// response.
func appendSubcats(dst []Subcat, resp string) []Subcat {
	for _, cat := range markup.GetGroups(resp, "cats") {
		parent := markup.GetText(cat, "cName")
		for _, sub := range markup.GetGroups(cat, "subcats") {
			sc := Subcat{
				ID:     markup.GetText(sub, "scid"),
				Name:   markup.GetText(sub, "scName"),
				Parent: parent,
			}
			if sc.ID != "" {
				dst = append(dst, sc)
			}
		}
	}
	return dst
}

// appendSystems flattens the trunked-system id list of one metadata
// response.
func appendSystems(dst []TrunkedRef, resp string) []TrunkedRef {
	for _, trs := range markup.GetGroups(resp, "trsList") {
		ref := TrunkedRef{
			ID:   markup.GetText(trs, "sid"),
			Name: markup.GetText(trs, "sName"),
		}
		if ref.ID != "" {
			dst = append(dst, ref)
		}
	}
	return dst
}
