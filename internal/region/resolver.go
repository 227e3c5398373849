// Package region turns a postal code into an administrative-region
// identifier pair. The radio database's own ZIP lookup is cross-checked
// against a hard-coded postal-prefix table because its state/county linkage
// has observed inconsistencies near state borders.
package region

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/faults"
	"github.com/signalwatch/freqscan-cli/internal/markup"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

// RegionInfo identifies the administrative region a ZIP code resolved to.
type RegionInfo struct {
	CountyID   string `json:"county_id"`
	CountyName string `json:"county_name"`
	StateID    string `json:"state_id"`
	State      string `json:"state"` // two-letter abbreviation
	Zip        string `json:"zip"`
}

// Resolver resolves postal codes through the provider's ZIP lookup.
type Resolver struct {
	rpc radioref.Client
}

// NewResolver creates a Resolver.
func NewResolver(rpc radioref.Client) *Resolver {
	return &Resolver{rpc: rpc}
}

// candidate is one (county, state) pair returned by the provider. A single
// ZIP occasionally yields several: postal codes straddle county lines and
// the provider's data is noisy.
type candidate struct {
	countyID   string
	countyName string
	stateID    string
	state      string
}

// Resolve looks up a ZIP code. A provider fault surfaces as an
// AuthError; an empty candidate list as a NotFoundError. Among candidates
// the first whose state matches the prefix-table expectation wins; with no
// match the first candidate is used with its state overwritten to the
// expected one, and the correction is logged. A mismatched state is never
// accepted silently while the expected state is known.
func (r *Resolver) Resolve(ctx context.Context, zip string, creds radioref.Credentials) (*RegionInfo, error) {
	if len(zip) != 5 {
		return nil, eris.Errorf("region: invalid zip %q", zip)
	}

	resp, err := r.rpc.Call(ctx, radioref.OpGetZipcodeInfo, creds,
		fmt.Sprintf("<zipcode>%s</zipcode>", radioref.Escape(zip)))
	if err != nil {
		return nil, eris.Wrap(err, "region: zipcode lookup")
	}

	if fault := markup.GetFault(resp); fault != "" {
		return nil, &faults.AuthError{Msg: fault}
	}

	candidates := parseCandidates(resp)
	if len(candidates) == 0 {
		return nil, &faults.NotFoundError{What: "zipcode " + zip}
	}

	expected := ExpectedState(zip)

	chosen := candidates[0]
	matched := false
	if expected != "" {
		for _, c := range candidates {
			if c.state == expected {
				chosen = c
				matched = true
				break
			}
		}
	} else {
		matched = true // no expectation available, accept provider data
	}

	if !matched {
		zap.L().Warn("provider state disagrees with prefix table, correcting",
			zap.String("zip", zip),
			zap.String("provider_state", chosen.state),
			zap.String("expected_state", expected),
			zap.String("county", chosen.countyName),
		)
		chosen.state = expected
	}

	return &RegionInfo{
		CountyID:   chosen.countyID,
		CountyName: chosen.countyName,
		StateID:    chosen.stateID,
		State:      chosen.state,
		Zip:        zip,
	}, nil
}

func parseCandidates(resp string) []candidate {
	var out []candidate
	for _, group := range markup.GetGroups(resp, "countyList") {
		c := candidate{
			countyID:   markup.GetText(group, "ctid"),
			countyName: markup.GetText(group, "countyName"),
			stateID:    markup.GetText(group, "stid"),
			state:      markup.GetText(group, "stateCode"),
		}
		if c.countyID != "" {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}

	// Older responses carry a single flat candidate without the list
	// wrapper.
	c := candidate{
		countyID:   markup.GetText(resp, "ctid"),
		countyName: markup.GetText(resp, "countyName"),
		stateID:    markup.GetText(resp, "stid"),
		state:      markup.GetText(resp, "stateCode"),
	}
	if c.countyID == "" {
		return nil
	}
	return []candidate{c}
}
