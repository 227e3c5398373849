// Package model defines the shared data types for frequency lookup results.
package model

// Source marks where a ScanResult's data came from.
type Source string

const (
	// SourceAPI is data fetched from the authoritative radio database.
	SourceAPI Source = "API"
	// SourceAI is data produced by the generative-AI search provider.
	SourceAI Source = "AI"
	// SourceCache is data served from a prior cached fetch.
	SourceCache Source = "Cache"
)

// Coordinates is an optional lat/lon attached to a ScanResult.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Frequency is a single conventional channel. Immutable once constructed;
// produced only by the fetcher's extraction functions.
type Frequency struct {
	Frequency   string `json:"frequency"` // formatted to 4 decimal places
	Description string `json:"description"`
	Mode        string `json:"mode"`
	Tag         string `json:"tag"`
	AlphaTag    string `json:"alpha_tag,omitempty"`
	Tone        string `json:"tone,omitempty"`
	ColorCode   string `json:"color_code,omitempty"`
	NAC         string `json:"nac,omitempty"`
	RAN         string `json:"ran,omitempty"`
}

// Agency groups the frequencies of one licensee or dispatch entity.
type Agency struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Frequencies []Frequency `json:"frequencies"`
	Source      Source      `json:"source,omitempty"`
}

// TrunkedSystemFrequency is one site frequency with its usage label.
type TrunkedSystemFrequency struct {
	Frequency string `json:"frequency"`
	Use       string `json:"use"` // control / alternate / voice
}

// Talkgroup is one logical channel on a trunked system.
type Talkgroup struct {
	DecimalID   int    `json:"decimal_id"`
	HexID       string `json:"hex_id,omitempty"`
	Mode        string `json:"mode"`
	AlphaTag    string `json:"alpha_tag"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
}

// TrunkedSystem is one trunked radio system with its primary site's
// frequencies and filtered talkgroups.
type TrunkedSystem struct {
	Name        string                   `json:"name"`
	Type        string                   `json:"type"` // vendor/protocol, e.g. "P25 Phase II"
	Site        string                   `json:"site"`
	Frequencies []TrunkedSystemFrequency `json:"frequencies"`
	Talkgroups  []Talkgroup              `json:"talkgroups"`
	Source      Source                   `json:"source,omitempty"`
}

// CrossRefData records the outcome of cross-validating a result against a
// second source. Attached only when cross-validation was performed.
type CrossRefData struct {
	Verified       bool   `json:"verified"`
	Confidence     int    `json:"confidence"` // 0-100
	SourcesChecked int    `json:"sources_checked"`
	Notes          string `json:"notes,omitempty"`
}

// ScanResult is the unit of caching and the unit returned to callers.
type ScanResult struct {
	Source         Source          `json:"source"`
	Location       string          `json:"location"`
	Coordinates    *Coordinates    `json:"coordinates,omitempty"`
	Summary        string          `json:"summary"`
	CrossRef       *CrossRefData   `json:"cross_ref,omitempty"`
	Agencies       []Agency        `json:"agencies"`
	TrunkedSystems []TrunkedSystem `json:"trunked_systems"`
}

// TripLocation pairs one intermediate stop with its lookup result.
type TripLocation struct {
	Location string      `json:"location"`
	Result   *ScanResult `json:"result"`
}

// TripResult is an ordered sequence of per-stop results bounded by a start
// and end label.
type TripResult struct {
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Source    Source         `json:"source"`
	Summary   string         `json:"summary"`
	Locations []TripLocation `json:"locations"`
}

// Normalize repairs nil collections to empty slices. Every component
// boundary returns normalized results so downstream code never checks for
// nil before ranging.
func (r *ScanResult) Normalize() {
	if r.Agencies == nil {
		r.Agencies = []Agency{}
	}
	if r.TrunkedSystems == nil {
		r.TrunkedSystems = []TrunkedSystem{}
	}
	for i := range r.Agencies {
		if r.Agencies[i].Frequencies == nil {
			r.Agencies[i].Frequencies = []Frequency{}
		}
	}
	for i := range r.TrunkedSystems {
		if r.TrunkedSystems[i].Frequencies == nil {
			r.TrunkedSystems[i].Frequencies = []TrunkedSystemFrequency{}
		}
		if r.TrunkedSystems[i].Talkgroups == nil {
			r.TrunkedSystems[i].Talkgroups = []Talkgroup{}
		}
	}
}

// Normalize repairs nil collections on the trip and every stop.
func (t *TripResult) Normalize() {
	if t.Locations == nil {
		t.Locations = []TripLocation{}
	}
	for i := range t.Locations {
		if t.Locations[i].Result != nil {
			t.Locations[i].Result.Normalize()
		}
	}
}

// IsEmpty reports whether the result carries no agencies and no systems.
// Empty results are never written to the cache.
func (r *ScanResult) IsEmpty() bool {
	return len(r.Agencies) == 0 && len(r.TrunkedSystems) == 0
}

// Clone returns a deep copy. The merge engine and the service-type filter
// never mutate their inputs.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	if r.CrossRef != nil {
		x := *r.CrossRef
		out.CrossRef = &x
	}
	out.Agencies = make([]Agency, len(r.Agencies))
	for i, a := range r.Agencies {
		out.Agencies[i] = a
		out.Agencies[i].Frequencies = append([]Frequency(nil), a.Frequencies...)
	}
	out.TrunkedSystems = make([]TrunkedSystem, len(r.TrunkedSystems))
	for i, ts := range r.TrunkedSystems {
		out.TrunkedSystems[i] = ts
		out.TrunkedSystems[i].Frequencies = append([]TrunkedSystemFrequency(nil), ts.Frequencies...)
		out.TrunkedSystems[i].Talkgroups = append([]Talkgroup(nil), ts.Talkgroups...)
	}
	out.Normalize()
	return &out
}

// Clone returns a deep copy of the trip and every stop.
func (t *TripResult) Clone() *TripResult {
	if t == nil {
		return nil
	}
	out := *t
	out.Locations = make([]TripLocation, len(t.Locations))
	for i, loc := range t.Locations {
		out.Locations[i] = TripLocation{
			Location: loc.Location,
			Result:   loc.Result.Clone(),
		}
	}
	return &out
}
