// Package scanner wires the lookup pipeline together: region resolution,
// catalog enumeration, authoritative fetch, AI lookup, merge, caching, and
// the per-request category projection.
package scanner

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalwatch/freqscan-cli/internal/cache"
	"github.com/signalwatch/freqscan-cli/internal/catalog"
	"github.com/signalwatch/freqscan-cli/internal/fetch"
	"github.com/signalwatch/freqscan-cli/internal/filter"
	"github.com/signalwatch/freqscan-cli/internal/merge"
	"github.com/signalwatch/freqscan-cli/internal/model"
	"github.com/signalwatch/freqscan-cli/internal/oracle"
	"github.com/signalwatch/freqscan-cli/internal/region"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Scanner is the entry point consumed by the CLI commands and the HTTP
// server. Oracle and cache are optional; a Scanner without either degrades
// to a pure authoritative fetch.
type Scanner struct {
	resolver   *region.Resolver
	enumerator *catalog.Enumerator
	fetcher    *fetch.Fetcher
	oracle     *oracle.Oracle
	cache      *cache.Cache
	logger     *zap.Logger
}

func New(rpc radioref.Client, orc *oracle.Oracle, c *cache.Cache, mapper *taxonomy.Mapper) *Scanner {
	return &Scanner{
		resolver:   region.NewResolver(rpc),
		enumerator: catalog.NewEnumerator(rpc),
		fetcher:    fetch.NewFetcher(rpc, mapper),
		oracle:     orc,
		cache:      c,
		logger:     zap.L().Named("scanner"),
	}
}

// WithFetchConcurrency bounds the authoritative per-subcategory fan-out.
func (s *Scanner) WithFetchConcurrency(n int) *Scanner {
	s.fetcher = s.fetcher.WithConcurrency(n)
	return s
}

// ResolveLocation maps a postal code to its administrative region.
func (s *Scanner) ResolveLocation(ctx context.Context, zip string, creds radioref.Credentials) (*region.RegionInfo, error) {
	return s.resolver.Resolve(ctx, zip, creds)
}

// FetchAuthoritative runs the full authoritative path for a postal code:
// resolve the region, enumerate its catalog, fetch channels and trunked
// systems.
func (s *Scanner) FetchAuthoritative(ctx context.Context, zip string, creds radioref.Credentials, categories []taxonomy.Category) (*model.ScanResult, error) {
	info, err := s.resolver.Resolve(ctx, zip, creds)
	if err != nil {
		return nil, err
	}
	cat, err := s.enumerator.Enumerate(ctx, info, creds)
	if err != nil {
		return nil, err
	}
	return s.fetcher.FetchScan(ctx, info, cat, categories, creds)
}

// FetchHeuristic asks the AI oracle for a location's frequency data.
func (s *Scanner) FetchHeuristic(ctx context.Context, location string, categories []taxonomy.Category) (*model.ScanResult, error) {
	if s.oracle == nil {
		return nil, eris.New("scanner: no AI provider configured")
	}
	return s.oracle.Lookup(ctx, location, categories)
}

// MergeAndCache is the main lookup entry point: serve from cache when the
// read policy allows, otherwise fetch from both sources concurrently, merge,
// write the master record back, and project it down to the requested
// categories.
func (s *Scanner) MergeAndCache(ctx context.Context, location string, categories []taxonomy.Category, creds radioref.Credentials) (*model.ScanResult, error) {
	master, err := s.lookupMaster(ctx, location, creds)
	if err != nil {
		return nil, err
	}
	return filter.ByCategories(master, categories), nil
}

func hasCredentials(creds radioref.Credentials) bool {
	return creds.Username != "" && creds.Password != ""
}

// lookupMaster fetches the category-agnostic master record for a location.
func (s *Scanner) lookupMaster(ctx context.Context, location string, creds radioref.Credentials) (*model.ScanResult, error) {
	haveCreds := hasCredentials(creds)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, location, haveCreds)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("location", location), zap.Error(err))
		} else if cached != nil {
			s.logger.Info("cache hit", zap.String("location", location))
			return cached, nil
		}
	}

	// Both paths run concurrently; each failure is recorded, not fatal.
	// The master record always covers every category, so neither path is
	// given the caller's selection.
	var (
		apiResult, aiResult *model.ScanResult
		apiErr, aiErr       error
	)
	g, gctx := errgroup.WithContext(ctx)
	if haveCreds && zipPattern.MatchString(location) {
		g.Go(func() error {
			apiResult, apiErr = s.FetchAuthoritative(gctx, location, creds, nil)
			if apiErr != nil {
				s.logger.Warn("authoritative fetch failed",
					zap.String("location", location), zap.Error(apiErr))
			}
			return nil
		})
	} else {
		apiErr = eris.New("scanner: authoritative path unavailable")
	}
	if s.oracle != nil {
		g.Go(func() error {
			aiResult, aiErr = s.oracle.Lookup(gctx, location, nil)
			if aiErr != nil {
				s.logger.Warn("AI lookup failed",
					zap.String("location", location), zap.Error(aiErr))
			}
			return nil
		})
	} else {
		aiErr = eris.New("scanner: no AI provider configured")
	}
	_ = g.Wait()

	if apiResult == nil && aiResult == nil {
		// Last resort: any cached entry beats a hard failure, including
		// one the quality rule would normally reject.
		if s.cache != nil {
			if stale, err := s.cache.Get(ctx, location, false); err == nil && stale != nil {
				s.logger.Warn("both sources failed, serving stale cache entry",
					zap.String("location", location))
				return stale, nil
			}
		}
		if apiErr != nil && aiErr != nil {
			return nil, eris.Wrapf(aiErr, "scanner: all sources failed for %q (authoritative: %v)", location, apiErr)
		}
		return nil, eris.Errorf("scanner: no data found for %q", location)
	}

	master := merge.Merge(apiResult, aiResult)
	if s.cache != nil {
		if err := s.cache.Put(ctx, location, master, nil); err != nil {
			s.logger.Warn("cache write failed", zap.String("location", location), zap.Error(err))
		}
	}
	return master, nil
}

// PlanTrip produces per-stop frequency data between two locations. The AI
// oracle proposes the stops; each stop then goes through the same
// merge/cache policy as a single-location lookup, and the assembled trip is
// cached under its own key.
func (s *Scanner) PlanTrip(ctx context.Context, start, end string, categories []taxonomy.Category, creds radioref.Credentials) (*model.TripResult, error) {
	haveCreds := hasCredentials(creds)

	if s.cache != nil {
		cached, err := s.cache.GetTrip(ctx, start, end, haveCreds)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("start", start), zap.String("end", end), zap.Error(err))
		} else if cached != nil {
			s.logger.Info("trip cache hit", zap.String("start", start), zap.String("end", end))
			return filter.TripByCategories(cached, categories), nil
		}
	}

	if s.oracle == nil {
		return nil, eris.New("scanner: trip planning requires an AI provider")
	}
	trip, err := s.oracle.TripLookup(ctx, start, end, nil)
	if err != nil {
		if s.cache != nil {
			if stale, cerr := s.cache.GetTrip(ctx, start, end, false); cerr == nil && stale != nil {
				s.logger.Warn("trip lookup failed, serving stale cache entry",
					zap.String("start", start), zap.String("end", end))
				return filter.TripByCategories(stale, categories), nil
			}
		}
		return nil, err
	}

	// Upgrade each stop the authoritative path can serve. The oracle's
	// per-stop result stands in where it cannot.
	for i := range trip.Locations {
		loc := &trip.Locations[i]
		refreshed, err := s.lookupMaster(ctx, loc.Location, creds)
		if err != nil {
			s.logger.Warn("stop lookup failed, keeping oracle result",
				zap.String("stop", loc.Location), zap.Error(err))
			continue
		}
		if loc.Result != nil && refreshed.Source != model.SourceAPI {
			combined := merge.Merge(refreshed, loc.Result)
			combined.Source = refreshed.Source
			refreshed = combined
		}
		loc.Result = refreshed
	}
	for _, loc := range trip.Locations {
		if loc.Result != nil && loc.Result.Source == model.SourceAPI {
			trip.Source = model.SourceAPI
			break
		}
	}

	if s.cache != nil {
		if err := s.cache.PutTrip(ctx, start, end, trip, nil); err != nil {
			s.logger.Warn("cache write failed", zap.String("start", start), zap.String("end", end), zap.Error(err))
		}
	}
	return filter.TripByCategories(trip, categories), nil
}
