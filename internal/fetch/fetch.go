// Package fetch fans out the per-subcategory and per-system RPC calls that
// populate a ScanResult from the authoritative radio database.
package fetch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalwatch/freqscan-cli/internal/catalog"
	"github.com/signalwatch/freqscan-cli/internal/markup"
	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/region"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

// defaultConcurrency bounds in-flight channel-group calls. The overall
// lookup runs under an external wall-clock budget, so the limit gates a
// task queue rather than staging fixed batches.
const defaultConcurrency = 10

// Fetcher issues the channel and trunked-system fan-out.
type Fetcher struct {
	rpc         radioref.Client
	mapper      *taxonomy.Mapper
	concurrency int
}

// NewFetcher creates a Fetcher.
func NewFetcher(rpc radioref.Client, mapper *taxonomy.Mapper) *Fetcher {
	return &Fetcher{rpc: rpc, mapper: mapper, concurrency: defaultConcurrency}
}

// WithConcurrency overrides the channel-group fan-out limit.
func (f *Fetcher) WithConcurrency(n int) *Fetcher {
	if n > 0 {
		f.concurrency = n
	}
	return f
}

// FetchScan builds the authoritative ScanResult for a region. Individual
// subcategory and system failures are logged and dropped; they never abort
// the fetch. Partial data is preferred over no data.
func (f *Fetcher) FetchScan(ctx context.Context, info *region.RegionInfo, cat *catalog.Catalog, categories []taxonomy.Category, creds radioref.Credentials) (*model.ScanResult, error) {
	tagSet := f.mapper.TagSet(categories)

	agencies := f.fetchAgencies(ctx, cat.Subcats, tagSet, creds)
	systems := f.fetchSystems(ctx, info, cat.Systems, tagSet, creds)

	location := info.CountyName + " County, " + info.State
	result := &model.ScanResult{
		Source:   model.SourceAPI,
		Location: location,
		Summary: fmt.Sprintf("Radio reference data for %s: %d agencies, %d trunked systems.",
			location, len(agencies), len(systems)),
		Agencies:       agencies,
		TrunkedSystems: systems,
	}
	result.Normalize()
	return result, nil
}

// fetchAgencies runs one getSubcatFreqs call per enumerated subcategory
// under the concurrency limit. Results keep catalog order regardless of
// completion order.
func (f *Fetcher) fetchAgencies(ctx context.Context, subcats []catalog.Subcat, tagSet map[int]bool, creds radioref.Credentials) []model.Agency {
	slots := make([]*model.Agency, len(subcats))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, sc := range subcats {
		g.Go(func() error {
			resp, err := f.rpc.Call(gctx, radioref.OpGetSubcatFreqs, creds,
				fmt.Sprintf("<scid>%s</scid>", radioref.Escape(sc.ID)))
			if err != nil {
				zap.L().Warn("subcategory fetch failed, dropping",
					zap.String("subcat_id", sc.ID),
					zap.String("subcat", sc.Name),
					zap.Error(err),
				)
				return nil
			}

			freqs := f.parseChannels(resp, tagSet)
			if len(freqs) == 0 {
				return nil
			}
			slots[i] = &model.Agency{
				Name:        sc.Name,
				Category:    string(taxonomy.Infer(sc.Parent + " " + sc.Name)),
				Frequencies: freqs,
				Source:      model.SourceAPI,
			}
			return nil
		})
	}
	_ = g.Wait() // workers only ever return nil; failures are absorbed above

	agencies := make([]model.Agency, 0, len(subcats))
	for _, a := range slots {
		if a != nil {
			agencies = append(agencies, *a)
		}
	}
	return agencies
}

// parseChannels extracts frequencies from one channel-group response,
// dropping zero-output channels and channels outside the relevant tag set.
func (f *Fetcher) parseChannels(resp string, tagSet map[int]bool) []model.Frequency {
	var out []model.Frequency
	for _, item := range markup.GetGroups(resp, "freqs") {
		hz := parseFrequency(markup.GetText(item, "out"))
		if hz == "" {
			continue
		}

		tagIDs := parseTagIDs(item)
		if !tagsRelevant(tagIDs, tagSet) {
			continue
		}

		out = append(out, model.Frequency{
			Frequency:   hz,
			Description: markup.GetText(item, "descr"),
			Mode:        markup.GetText(item, "mode"),
			Tag:         f.displayTag(tagIDs),
			AlphaTag:    markup.GetText(item, "alpha"),
			Tone:        markup.GetText(item, "tone"),
			ColorCode:   markup.GetText(item, "colorCode"),
			NAC:         markup.GetText(item, "nac"),
			RAN:         markup.GetText(item, "ran"),
		})
	}
	return out
}

// fetchSystems processes trunked systems one at a time; the three sub-calls
// within a system run concurrently.
func (f *Fetcher) fetchSystems(ctx context.Context, info *region.RegionInfo, refs []catalog.TrunkedRef, tagSet map[int]bool, creds radioref.Credentials) []model.TrunkedSystem {
	var systems []model.TrunkedSystem
	for _, ref := range refs {
		sys, ok := f.fetchSystem(ctx, info, ref, tagSet, creds)
		if ok {
			systems = append(systems, sys)
		}
	}
	return systems
}

// site is one tower location of a trunked system.
type site struct {
	descr    string
	countyID string
	order    int
	freqs    []model.TrunkedSystemFrequency
}

func (f *Fetcher) fetchSystem(ctx context.Context, info *region.RegionInfo, ref catalog.TrunkedRef, tagSet map[int]bool, creds radioref.Credentials) (model.TrunkedSystem, bool) {
	param := fmt.Sprintf("<sid>%s</sid>", radioref.Escape(ref.ID))

	var details, sitesResp, tgResp string
	g, gctx := errgroup.WithContext(ctx)
	for _, call := range []struct {
		op   string
		dest *string
	}{
		{radioref.OpGetTrsDetails, &details},
		{radioref.OpGetTrsSites, &sitesResp},
		{radioref.OpGetTrsTalkgroups, &tgResp},
	} {
		g.Go(func() error {
			resp, err := f.rpc.Call(gctx, call.op, creds, param)
			if err != nil {
				return err
			}
			*call.dest = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Warn("trunked system fetch failed, dropping",
			zap.String("system_id", ref.ID),
			zap.String("system", ref.Name),
			zap.Error(err),
		)
		return model.TrunkedSystem{}, false
	}

	sites := parseSites(sitesResp)
	sortSites(sites, info.CountyID)

	talkgroups := f.parseTalkgroups(tgResp, tagSet)
	if len(sites) == 0 && len(talkgroups) == 0 {
		return model.TrunkedSystem{}, false
	}

	name := markup.GetText(details, "sName")
	if name == "" {
		name = ref.Name
	}
	sys := model.TrunkedSystem{
		Name:       name,
		Type:       markup.GetText(details, "sType"),
		Talkgroups: talkgroups,
		Source:     model.SourceAPI,
	}
	if len(sites) > 0 {
		// The best-sorted site is the primary: its frequency list becomes
		// the system's frequency list.
		sys.Site = sites[0].descr
		sys.Frequencies = sites[0].freqs
	}
	return sys, true
}

func parseSites(resp string) []site {
	var out []site
	for i, group := range markup.GetGroups(resp, "sites") {
		s := site{
			descr:    markup.GetText(group, "siteDescr"),
			countyID: markup.GetText(group, "ctid"),
			order:    i,
		}
		for _, fg := range markup.GetGroups(group, "siteFreqs") {
			hz := parseFrequency(markup.GetText(fg, "freq"))
			if hz == "" {
				continue
			}
			use := markup.GetText(fg, "use")
			if use == "" {
				use = "voice"
			}
			s.freqs = append(s.freqs, model.TrunkedSystemFrequency{Frequency: hz, Use: use})
		}
		out = append(out, s)
	}
	return out
}

// sortSites moves sites in the target county to the front; ties preserve
// the provider's original order.
func sortSites(sites []site, countyID string) {
	sort.SliceStable(sites, func(i, j int) bool {
		im := sites[i].countyID == countyID
		jm := sites[j].countyID == countyID
		if im != jm {
			return im
		}
		return sites[i].order < sites[j].order
	})
}

func (f *Fetcher) parseTalkgroups(resp string, tagSet map[int]bool) []model.Talkgroup {
	var out []model.Talkgroup
	for _, group := range markup.GetGroups(resp, "tgList") {
		dec, err := strconv.Atoi(strings.TrimSpace(markup.GetText(group, "tgDec")))
		if err != nil || dec == 0 {
			continue
		}

		tagIDs := parseTagIDs(group)
		if !tagsRelevant(tagIDs, tagSet) {
			continue
		}

		out = append(out, model.Talkgroup{
			DecimalID:   dec,
			HexID:       markup.GetText(group, "tgHex"),
			Mode:        markup.GetText(group, "tgMode"),
			AlphaTag:    markup.GetText(group, "tgAlpha"),
			Description: markup.GetText(group, "tgDescr"),
			Tag:         f.displayTag(tagIDs),
		})
	}
	return out
}

// parseTagIDs reads the repeated numeric tag leaves of one item.
func parseTagIDs(item string) []int {
	var ids []int
	for _, raw := range markup.GetGroups(item, "tags") {
		if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// tagsRelevant reports whether an item survives tag filtering. A nil set
// means "fetch everything"; otherwise at least one tag must intersect it.
func tagsRelevant(ids []int, tagSet map[int]bool) bool {
	if tagSet == nil {
		return true
	}
	for _, id := range ids {
		if tagSet[id] {
			return true
		}
	}
	return false
}

func (f *Fetcher) displayTag(ids []int) string {
	if len(ids) == 0 {
		return string(taxonomy.CategoryOther)
	}
	return f.mapper.TagName(ids[0])
}

// parseFrequency parses a numeric channel value and formats it to 4 decimal
// places; zero or unparseable values yield "".
func parseFrequency(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
