// Package merge combines an authoritative lookup result with a heuristic
// one. Authoritative entries always win; heuristic entries are appended
// only when their normalized name is novel.
package merge

import (
	"strings"
	"unicode"

	"github.com/signalwatch/freqscan-cli/internal/model"
)

// NormalizeName lower-cases a name and strips non-alphanumeric characters.
// Deliberately naive: "Police Dept" and "Police Department" normalize to
// different strings, so near-duplicates can survive a merge. The tolerance
// for fuzzier matching is unspecified, so none is applied.
func NormalizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Merge combines results for the same location. Either input may be nil;
// a single surviving source is returned as-is (cloned). Inputs are never
// mutated.
func Merge(api, ai *model.ScanResult) *model.ScanResult {
	switch {
	case api == nil && ai == nil:
		return nil
	case api == nil:
		return ai.Clone()
	case ai == nil:
		return api.Clone()
	}

	out := api.Clone()
	out.Source = model.SourceAPI
	if out.Summary != "" {
		out.Summary += " Enhanced with AI search results."
	} else {
		out.Summary = "Enhanced with AI search results."
	}

	seen := make(map[string]bool, len(out.Agencies))
	for _, a := range out.Agencies {
		seen[NormalizeName(a.Name)] = true
	}
	for _, a := range ai.Agencies {
		key := NormalizeName(a.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		added := a
		added.Source = model.SourceAI
		added.Frequencies = append([]model.Frequency(nil), a.Frequencies...)
		out.Agencies = append(out.Agencies, added)
	}

	seenSys := make(map[string]bool, len(out.TrunkedSystems))
	for _, ts := range out.TrunkedSystems {
		seenSys[NormalizeName(ts.Name)] = true
	}
	for _, ts := range ai.TrunkedSystems {
		key := NormalizeName(ts.Name)
		if seenSys[key] {
			continue
		}
		seenSys[key] = true
		added := ts
		added.Source = model.SourceAI
		added.Frequencies = append([]model.TrunkedSystemFrequency(nil), ts.Frequencies...)
		added.Talkgroups = append([]model.Talkgroup(nil), ts.Talkgroups...)
		out.TrunkedSystems = append(out.TrunkedSystems, added)
	}

	out.Normalize()
	return out
}
