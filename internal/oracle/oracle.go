// Package oracle asks a generative-AI search provider for frequency data
// and extracts a best-effort JSON object from its free-form text output.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/faults"
	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
)

// Provider is the opaque text-in/text-out completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Oracle runs frequency lookups through a Provider.
type Oracle struct {
	provider Provider
}

// New creates an Oracle.
func New(provider Provider) *Oracle {
	return &Oracle{provider: provider}
}

const systemPrompt = `You are a radio communications researcher. You return ` +
	`verified public-safety and land-mobile radio frequency data as JSON. ` +
	`Respond with a single JSON object inside a fenced code block and nothing else.`

// Lookup asks the provider for a location's frequency data. A response that
// yields no JSON after all recovery attempts returns a ParseError; the
// caller treats the source as unavailable rather than failing the lookup.
func (o *Oracle) Lookup(ctx context.Context, location string, categories []taxonomy.Category) (*model.ScanResult, error) {
	text, err := o.provider.Complete(ctx, systemPrompt, scanPrompt(location, categories))
	if err != nil {
		return nil, eris.Wrapf(err, "oracle: %s lookup", o.provider.Name())
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var result model.ScanResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &faults.ParseError{Err: eris.Wrap(err, "oracle: decode scan result")}
	}

	result.Source = model.SourceAI
	result.Location = location
	for i := range result.Agencies {
		result.Agencies[i].Source = model.SourceAI
	}
	for i := range result.TrunkedSystems {
		result.TrunkedSystems[i].Source = model.SourceAI
	}
	result.Normalize()

	zap.L().Debug("oracle lookup complete",
		zap.String("provider", o.provider.Name()),
		zap.String("location", location),
		zap.Int("agencies", len(result.Agencies)),
		zap.Int("trunked_systems", len(result.TrunkedSystems)),
	)
	return &result, nil
}

// TripLookup asks the provider for per-stop frequency data along a route.
func (o *Oracle) TripLookup(ctx context.Context, start, end string, categories []taxonomy.Category) (*model.TripResult, error) {
	text, err := o.provider.Complete(ctx, systemPrompt, tripPrompt(start, end, categories))
	if err != nil {
		return nil, eris.Wrapf(err, "oracle: %s trip lookup", o.provider.Name())
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var trip model.TripResult
	if err := json.Unmarshal(raw, &trip); err != nil {
		return nil, &faults.ParseError{Err: eris.Wrap(err, "oracle: decode trip result")}
	}

	trip.Source = model.SourceAI
	trip.Start = start
	trip.End = end
	for i := range trip.Locations {
		if trip.Locations[i].Result != nil {
			trip.Locations[i].Result.Source = model.SourceAI
		}
	}
	trip.Normalize()
	return &trip, nil
}

func scanPrompt(location string, categories []taxonomy.Category) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Find active radio frequencies and trunked radio systems for %s.\n", location)
	writeCategoryScope(&sb, categories)
	sb.WriteString(`Return a JSON object with this shape:
{
  "summary": "...",
  "agencies": [{"name": "...", "category": "...", "frequencies": [{"frequency": "155.4750", "description": "...", "mode": "...", "tag": "...", "tone": "..."}]}],
  "trunked_systems": [{"name": "...", "type": "...", "site": "...", "frequencies": [{"frequency": "...", "use": "control"}], "talkgroups": [{"decimal_id": 4501, "mode": "...", "alpha_tag": "...", "description": "...", "tag": "..."}]}]
}
Frequencies are strings with 4 decimal places. Omit anything you cannot verify.`)
	return sb.String()
}

func tripPrompt(start, end string, categories []taxonomy.Category) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Find active radio frequencies for a road trip from %s to %s, including major intermediate stops in order.\n", start, end)
	writeCategoryScope(&sb, categories)
	sb.WriteString(`Return a JSON object with this shape:
{
  "summary": "...",
  "locations": [{"location": "...", "result": {"summary": "...", "agencies": [...], "trunked_systems": [...]}}]
}
Each per-stop result uses the agency/trunked-system shape with frequency strings at 4 decimal places.`)
	return sb.String()
}

func writeCategoryScope(sb *strings.Builder, categories []taxonomy.Category) {
	if len(categories) == 0 {
		sb.WriteString("Cover all public-safety and local-government services.\n")
		return
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	fmt.Fprintf(sb, "Limit coverage to these services: %s.\n", strings.Join(names, ", "))
}

// ExtractJSON pulls a JSON object out of free-form completion text.
// Recovery order: a fenced code block, then the whole text, then the
// first-{ to last-} substring. All three failing is a ParseError.
func ExtractJSON(text string) (json.RawMessage, error) {
	if block, ok := fencedBlock(text); ok {
		if candidate := braceSpan(block); candidate != "" && json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if candidate := braceSpan(text); candidate != "" && json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	return nil, &faults.ParseError{Err: eris.New("no JSON object in response")}
}

// fencedBlock returns the content of the first markdown code fence.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language hint line ("json" or similar).
		if lang := strings.TrimSpace(rest[:nl]); lang == "" || len(lang) <= 8 {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// braceSpan returns the first-{ to last-} substring, or "".
func braceSpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
