// Package filter projects a master scan record down to the caller's
// requested service categories. The master record covers everything; the
// filter is applied per request so the cache stays category-agnostic.
package filter

import (
	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
)

// ByCategories returns a deep copy of the result holding only agencies whose
// inferred category is in the requested set. Trunked systems are never
// removed (their control channels are needed for scanning regardless of
// category) but their talkgroup lists are filtered the same way. An empty
// category set means no filtering. The input is never mutated.
func ByCategories(result *model.ScanResult, categories []taxonomy.Category) *model.ScanResult {
	if result == nil {
		return nil
	}
	out := result.Clone()
	if len(categories) == 0 {
		return out
	}
	want := make(map[taxonomy.Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	agencies := out.Agencies[:0]
	for _, a := range out.Agencies {
		if want[taxonomy.Infer(a.Category+" "+a.Name)] {
			agencies = append(agencies, a)
		}
	}
	out.Agencies = agencies

	for i := range out.TrunkedSystems {
		ts := &out.TrunkedSystems[i]
		talkgroups := ts.Talkgroups[:0]
		for _, tg := range ts.Talkgroups {
			if want[taxonomy.Infer(tg.Tag+" "+tg.Description)] {
				talkgroups = append(talkgroups, tg)
			}
		}
		ts.Talkgroups = talkgroups
	}
	return out
}

// TripByCategories applies ByCategories to every stop of a trip.
func TripByCategories(trip *model.TripResult, categories []taxonomy.Category) *model.TripResult {
	if trip == nil {
		return nil
	}
	out := trip.Clone()
	if len(categories) == 0 {
		return out
	}
	for i := range out.Locations {
		out.Locations[i].Result = ByCategories(out.Locations[i].Result, categories)
	}
	return out
}
