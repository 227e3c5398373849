package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/cache"
	"github.com/signalwatch/freqscan-cli/internal/oracle"
	"github.com/signalwatch/freqscan-cli/internal/scanner"
	"github.com/signalwatch/freqscan-cli/internal/store"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
	anthropicpkg "github.com/signalwatch/freqscan-cli/pkg/anthropic"
	"github.com/signalwatch/freqscan-cli/pkg/perplexity"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

// scanEnv holds the initialized store, clients, and scanner shared by the
// lookup/trip/serve commands.
type scanEnv struct {
	Store   store.Store // nil when store.driver=none
	Scanner *scanner.Scanner
	Creds   radioref.Credentials
}

// Close releases resources held by the environment.
func (e *scanEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured cache backend, or returns nil for driver
// "none".
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// initOracle builds the configured AI provider, or nil for "none".
func initOracle() (*oracle.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "perplexity":
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		return oracle.New(oracle.NewPerplexityProvider(client, cfg.Perplexity.WebSearch)), nil
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key,
			anthropicpkg.WithModel(cfg.Anthropic.Model),
		)
		return oracle.New(oracle.NewAnthropicProvider(client)), nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported oracle provider %q", cfg.Oracle.Provider)
	}
}

// initScanner validates the config for the given mode and wires the full
// lookup pipeline. Callers should defer env.Close().
func initScanner(ctx context.Context, mode string) (*scanEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	orc, err := initOracle()
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}

	mapper := taxonomy.Default()
	if cfg.Taxonomy.OverridePath != "" {
		mapper, err = taxonomy.FromFile(cfg.Taxonomy.OverridePath)
		if err != nil {
			if st != nil {
				_ = st.Close()
			}
			return nil, err
		}
		zap.L().Info("taxonomy overrides loaded", zap.String("path", cfg.Taxonomy.OverridePath))
	}

	rpc := radioref.NewClient(
		radioref.WithBaseURL(cfg.RadioRef.BaseURL),
		radioref.WithAppKey(cfg.RadioRef.AppKey),
		radioref.WithRateLimit(cfg.RadioRef.RateLimit, 1),
	)

	var c *cache.Cache
	if st != nil {
		c = cache.New(st)
	}

	return &scanEnv{
		Store:   st,
		Scanner: scanner.New(rpc, orc, c, mapper).WithFetchConcurrency(cfg.Fetch.Concurrency),
		Creds: radioref.Credentials{
			Username: cfg.RadioRef.Username,
			Password: cfg.RadioRef.Password,
		},
	}, nil
}
