// Package cache applies the read/write policy for scan results on top of a
// key-value store: versioned keys, legacy-shape rejection, and the quality
// precedence rule that keeps an AI-sourced entry from shadowing a fresh
// authoritative fetch.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/store"
)

// keyVersion is bumped whenever the cached payload shape changes, so old
// entries fall out as misses instead of being served with missing fields.
const keyVersion = "v6"

// Metadata is the auxiliary blob written alongside every cached payload.
type Metadata struct {
	Source     model.Source `json:"source"`
	FetchID    string       `json:"fetch_id"`
	Categories []string     `json:"categories,omitempty"`
	CachedAt   time.Time    `json:"cached_at"`
}

// NormalizeLocation lowercases the label and collapses every run of
// non-alphanumeric characters to a single underscore, so "St. George, UT"
// and "st george ut" share one cache key.
func NormalizeLocation(location string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(location)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// Key returns the versioned cache key for a single-location lookup. Keys are
// a function of the location only, never of the selected categories: the
// master record covers all categories and is filtered per request.
func Key(location string) string {
	return keyVersion + "_loc_" + NormalizeLocation(location)
}

// TripKey returns the versioned cache key for a trip lookup.
func TripKey(start, end string) string {
	return keyVersion + "_trip_" + NormalizeLocation(start) + "_to_" + NormalizeLocation(end)
}

// Cache wraps a store with the scan-result read/write policy.
type Cache struct {
	store  store.Store
	logger *zap.Logger
}

func New(s store.Store) *Cache {
	return &Cache{store: s, logger: zap.L().Named("cache")}
}

// Get returns the cached result for a location, or nil on any kind of miss:
// no entry, a legacy-shaped payload, or an AI-sourced entry while the caller
// holds authoritative credentials (which must force a quality upgrade).
func (c *Cache) Get(ctx context.Context, location string, haveCreds bool) (*model.ScanResult, error) {
	key := Key(location)
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get %s", key)
	}
	if entry == nil {
		return nil, nil
	}
	if legacyShape(entry.Payload) {
		c.logger.Info("legacy cache shape, treating as miss", zap.String("key", key))
		return nil, nil
	}

	var result model.ScanResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		c.logger.Warn("unreadable cache payload, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if result.Source == model.SourceAI && haveCreds {
		c.logger.Info("AI-sourced entry bypassed for authoritative refresh", zap.String("key", key))
		return nil, nil
	}
	if result.Source != model.SourceAPI {
		result.Source = model.SourceCache
	}
	result.Normalize()
	return &result, nil
}

// GetTrip applies the same read policy to a trip entry.
func (c *Cache) GetTrip(ctx context.Context, start, end string, haveCreds bool) (*model.TripResult, error) {
	key := TripKey(start, end)
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get %s", key)
	}
	if entry == nil {
		return nil, nil
	}
	if legacyTripShape(entry.Payload) {
		c.logger.Info("legacy cache shape, treating as miss", zap.String("key", key))
		return nil, nil
	}

	var result model.TripResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		c.logger.Warn("unreadable cache payload, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if result.Source == model.SourceAI && haveCreds {
		c.logger.Info("AI-sourced entry bypassed for authoritative refresh", zap.String("key", key))
		return nil, nil
	}
	if result.Source != model.SourceAPI {
		result.Source = model.SourceCache
	}
	result.Normalize()
	return &result, nil
}

// Put writes the master record unless it is empty. Caching an empty result
// would poison every future lookup for the key with a permanent "nothing
// here" answer.
func (c *Cache) Put(ctx context.Context, location string, result *model.ScanResult, categories []string) error {
	if result == nil || result.IsEmpty() {
		c.logger.Debug("skipping cache write for empty result", zap.String("location", location))
		return nil
	}
	key := Key(location)
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", key)
	}
	metadata, err := json.Marshal(Metadata{
		Source:     result.Source,
		FetchID:    uuid.NewString(),
		Categories: categories,
		CachedAt:   time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrapf(err, "cache: marshal metadata %s", key)
	}
	return eris.Wrapf(c.store.Put(ctx, key, payload, metadata), "cache: put %s", key)
}

// PutTrip writes a trip record; a trip with no stops carrying data is
// skipped for the same reason empty scan results are.
func (c *Cache) PutTrip(ctx context.Context, start, end string, result *model.TripResult, categories []string) error {
	if result == nil || !tripHasData(result) {
		c.logger.Debug("skipping cache write for empty trip",
			zap.String("start", start), zap.String("end", end))
		return nil
	}
	key := TripKey(start, end)
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", key)
	}
	metadata, err := json.Marshal(Metadata{
		Source:     result.Source,
		FetchID:    uuid.NewString(),
		Categories: categories,
		CachedAt:   time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrapf(err, "cache: marshal metadata %s", key)
	}
	return eris.Wrapf(c.store.Put(ctx, key, payload, metadata), "cache: put %s", key)
}

func tripHasData(t *model.TripResult) bool {
	for _, loc := range t.Locations {
		if loc.Result != nil && !loc.Result.IsEmpty() {
			return true
		}
	}
	return false
}

// legacyShape reports whether the raw payload predates the current field
// set: any trunked system without a frequencies field is the marker shape.
// Detection has to run on the raw JSON because unmarshalling into the
// current types erases the distinction between absent and empty.
func legacyShape(payload []byte) bool {
	var probe struct {
		TrunkedSystems []map[string]json.RawMessage `json:"trunked_systems"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return true
	}
	for _, ts := range probe.TrunkedSystems {
		if _, ok := ts["frequencies"]; !ok {
			return true
		}
	}
	return false
}

func legacyTripShape(payload []byte) bool {
	var probe struct {
		Locations []struct {
			Result json.RawMessage `json:"result"`
		} `json:"locations"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return true
	}
	for _, loc := range probe.Locations {
		if len(loc.Result) == 0 || string(loc.Result) == "null" {
			continue
		}
		if legacyShape(loc.Result) {
			return true
		}
	}
	return false
}
