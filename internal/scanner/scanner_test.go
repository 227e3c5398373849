package scanner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/freqscan-cli/internal/cache"
	"github.com/signalwatch/freqscan-cli/internal/faults"
	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/oracle"
	"github.com/signalwatch/freqscan-cli/internal/store"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

type stubRPC struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     int
}

func (s *stubRPC) Call(_ context.Context, op string, _ radioref.Credentials, _ string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if resp, ok := s.responses[op]; ok {
		return resp, nil
	}
	return "<r></r>", nil
}

// stubProvider serves canned completions, routing trip prompts by their
// "road trip" phrasing.
type stubProvider struct {
	scanJSON string
	tripJSON string
	err      error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(_ context.Context, _, prompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if strings.Contains(prompt, "road trip") {
		return "```json\n" + p.tripJSON + "\n```", nil
	}
	return "```json\n" + p.scanJSON + "\n```", nil
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]*store.Entry
}

func newMemStore() *memStore { return &memStore{entries: map[string]*store.Entry{}} }

func (m *memStore) Get(_ context.Context, key string) (*store.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *memStore) Put(_ context.Context, key string, payload, metadata []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &store.Entry{Key: key, Payload: payload, Metadata: metadata, UpdatedAt: time.Now()}
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func apiResponses() map[string]string {
	return map[string]string{
		radioref.OpGetZipcodeInfo: `<r><countyList><ctid>2725</ctid><countyName>Washington</countyName><stid>44</stid><stateCode>UT</stateCode></countyList></r>`,
		radioref.OpGetCountyInfo: `<r>
<cats><cName>Public Safety</cName>
  <subcats><scid>100</scid><scName>St George Police</scName></subcats>
  <subcats><scid>101</scid><scName>Washington County Fire</scName></subcats>
</cats>
<trsList><sid>500</sid><sName>Utah UCAN</sName></trsList>
</r>`,
		radioref.OpGetSubcatFreqs: `<r>
<freqs><out>155.4750</out><descr>Dispatch</descr><mode>FMN</mode><tags>2</tags></freqs>
</r>`,
		radioref.OpGetTrsDetails: `<r><sName>Utah UCAN</sName><sType>P25 Phase II</sType></r>`,
		radioref.OpGetTrsSites: `<r>
<sites><siteDescr>Webb Hill</siteDescr><ctid>2725</ctid>
  <siteFreqs><freq>770.10625</freq><use>control</use></siteFreqs>
</sites>
</r>`,
		radioref.OpGetTrsTalkgroups: `<r>
<tgList><tgDec>4501</tgDec><tgMode>D</tgMode><tgAlpha>WCSO Disp</tgAlpha><tgDescr>Sheriff Dispatch</tgDescr><tags>2</tags></tgList>
</r>`,
	}
}

const scanJSON = `{"summary":"AI findings","agencies":[{"name":"Hurricane Valley Fire District","category":"Fire","frequencies":[{"frequency":"154.0100","description":"Dispatch","mode":"FMN","tag":"Fire Dispatch"}]}],"trunked_systems":[]}`

const tripJSON = `{"summary":"Route coverage","locations":[{"location":"St George, UT","result":{"summary":"","agencies":[{"name":"St George Police","category":"Police","frequencies":[]}],"trunked_systems":[]}},{"location":"Cedar City, UT","result":{"summary":"","agencies":[{"name":"Cedar City Fire","category":"Fire","frequencies":[]}],"trunked_systems":[]}}]}`

var testCreds = radioref.Credentials{Username: "user", Password: "pass"}

func newTestScanner(rpc radioref.Client, provider oracle.Provider, s store.Store) *Scanner {
	var orc *oracle.Oracle
	if provider != nil {
		orc = oracle.New(provider)
	}
	var c *cache.Cache
	if s != nil {
		c = cache.New(s)
	}
	return New(rpc, orc, c, taxonomy.Default())
}

func TestMergeAndCacheAuthoritative(t *testing.T) {
	rpc := &stubRPC{responses: apiResponses()}
	mem := newMemStore()
	s := newTestScanner(rpc, &stubProvider{scanJSON: scanJSON, tripJSON: tripJSON}, mem)

	result, err := s.MergeAndCache(context.Background(), "84770",
		[]taxonomy.Category{taxonomy.CategoryPolice}, testCreds)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.SourceAPI, result.Source)
	assert.Equal(t, "Washington County, UT", result.Location)

	// Police filter keeps only the police agency; the AI fire district and
	// the authoritative fire subcategory are projected out.
	require.Len(t, result.Agencies, 1)
	assert.Equal(t, "St George Police", result.Agencies[0].Name)
	require.Len(t, result.TrunkedSystems, 1)
	assert.Equal(t, "Utah UCAN", result.TrunkedSystems[0].Name)

	// The cached master record is unfiltered and carries the merged AI agency.
	entry := mem.entries["v6_loc_84770"]
	require.NotNil(t, entry)
	assert.Contains(t, string(entry.Payload), "Hurricane Valley Fire District")
	assert.Contains(t, string(entry.Payload), "Enhanced with AI search results.")
}

func TestMergeAndCacheServesFromCache(t *testing.T) {
	mem := newMemStore()
	c := cache.New(mem)
	cached := &model.ScanResult{
		Source:   model.SourceAPI,
		Location: "Washington County, UT",
		Agencies: []model.Agency{{Name: "St George Police", Category: "Police"}},
	}
	cached.Normalize()
	require.NoError(t, c.Put(context.Background(), "84770", cached, nil))

	rpc := &stubRPC{responses: apiResponses()}
	s := newTestScanner(rpc, &stubProvider{scanJSON: scanJSON}, mem)

	result, err := s.MergeAndCache(context.Background(), "84770", nil, testCreds)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.SourceAPI, result.Source)
	assert.Zero(t, rpc.calls)
}

func TestMergeAndCacheHeuristicOnly(t *testing.T) {
	rpc := &stubRPC{responses: apiResponses()}
	mem := newMemStore()
	s := newTestScanner(rpc, &stubProvider{scanJSON: scanJSON}, mem)

	// no credentials: the authoritative path never runs
	result, err := s.MergeAndCache(context.Background(), "St George, UT", nil, radioref.Credentials{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.SourceAI, result.Source)
	require.Len(t, result.Agencies, 1)
	assert.Equal(t, "Hurricane Valley Fire District", result.Agencies[0].Name)
	assert.Zero(t, rpc.calls)
	assert.Contains(t, mem.entries, "v6_loc_st_george_ut")
}

func TestMergeAndCacheStaleFallback(t *testing.T) {
	mem := newMemStore()
	c := cache.New(mem)
	stale := &model.ScanResult{
		Source:   model.SourceAI,
		Location: "84770",
		Agencies: []model.Agency{{Name: "St George Police", Category: "Police"}},
	}
	stale.Normalize()
	require.NoError(t, c.Put(context.Background(), "84770", stale, nil))

	// Credentials reject the AI entry on the normal read; with both live
	// sources down it is still served as a last resort.
	rpc := &stubRPC{err: &faults.TransportError{Op: "radioref: call", StatusCode: 503}}
	s := newTestScanner(rpc, &stubProvider{err: &faults.TransportError{Op: "perplexity: chat completion"}}, mem)

	result, err := s.MergeAndCache(context.Background(), "84770", nil, testCreds)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.SourceCache, result.Source)
	require.Len(t, result.Agencies, 1)
}

func TestMergeAndCacheTotalFailure(t *testing.T) {
	rpc := &stubRPC{err: &faults.TransportError{Op: "radioref: call", StatusCode: 503}}
	s := newTestScanner(rpc, &stubProvider{err: &faults.TransportError{Op: "perplexity: chat completion"}}, newMemStore())

	result, err := s.MergeAndCache(context.Background(), "84770", nil, testCreds)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestMergeAndCacheEmptyResultNotCached(t *testing.T) {
	// Authoritative path resolves but finds nothing; AI returns an empty
	// object. Nothing should be written.
	responses := apiResponses()
	responses[radioref.OpGetCountyInfo] = "<r></r>"
	responses[radioref.OpGetStateInfo] = "<r></r>"
	rpc := &stubRPC{responses: responses}
	mem := newMemStore()
	s := newTestScanner(rpc, &stubProvider{scanJSON: `{"summary":"","agencies":[],"trunked_systems":[]}`}, mem)

	result, err := s.MergeAndCache(context.Background(), "84770", nil, testCreds)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsEmpty())
	assert.Empty(t, mem.entries)
}

func TestFetchAuthoritative(t *testing.T) {
	rpc := &stubRPC{responses: apiResponses()}
	s := newTestScanner(rpc, nil, nil)

	result, err := s.FetchAuthoritative(context.Background(), "84770", testCreds, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceAPI, result.Source)
	assert.Len(t, result.Agencies, 2)
}

func TestFetchHeuristicWithoutOracle(t *testing.T) {
	s := newTestScanner(&stubRPC{}, nil, nil)

	_, err := s.FetchHeuristic(context.Background(), "St George, UT", nil)
	require.Error(t, err)
}

func TestPlanTrip(t *testing.T) {
	mem := newMemStore()
	s := newTestScanner(&stubRPC{}, &stubProvider{scanJSON: scanJSON, tripJSON: tripJSON}, mem)

	trip, err := s.PlanTrip(context.Background(), "St George, UT", "Cedar City, UT", nil, radioref.Credentials{})
	require.NoError(t, err)
	require.NotNil(t, trip)

	assert.Equal(t, model.SourceAI, trip.Source)
	require.Len(t, trip.Locations, 2)
	assert.Equal(t, "St George, UT", trip.Locations[0].Location)
	assert.Contains(t, mem.entries, "v6_trip_st_george_ut_to_cedar_city_ut")
}

func TestPlanTripServedFromCache(t *testing.T) {
	mem := newMemStore()
	c := cache.New(mem)
	trip := &model.TripResult{
		Start:  "A",
		End:    "B",
		Source: model.SourceAI,
		Locations: []model.TripLocation{
			{Location: "A", Result: &model.ScanResult{
				Source:   model.SourceAI,
				Agencies: []model.Agency{{Name: "A Police", Category: "Police"}},
			}},
		},
	}
	trip.Normalize()
	require.NoError(t, c.PutTrip(context.Background(), "A", "B", trip, nil))

	s := newTestScanner(&stubRPC{}, &stubProvider{err: &faults.TransportError{Op: "down"}}, mem)

	got, err := s.PlanTrip(context.Background(), "A", "B", nil, radioref.Credentials{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SourceCache, got.Source)
}

func TestPlanTripFilterApplied(t *testing.T) {
	s := newTestScanner(&stubRPC{}, &stubProvider{scanJSON: scanJSON, tripJSON: tripJSON}, nil)

	trip, err := s.PlanTrip(context.Background(), "St George, UT", "Cedar City, UT",
		[]taxonomy.Category{taxonomy.CategoryPolice}, radioref.Credentials{})
	require.NoError(t, err)
	require.Len(t, trip.Locations, 2)
	for _, loc := range trip.Locations {
		for _, a := range loc.Result.Agencies {
			assert.Equal(t, taxonomy.CategoryPolice, taxonomy.Infer(a.Category+" "+a.Name))
		}
	}
}
