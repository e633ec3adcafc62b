package main

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/export"
	"github.com/sgtransit/stops-cli/internal/fetcher"
	"github.com/sgtransit/stops-cli/internal/pipeline"
	"github.com/sgtransit/stops-cli/internal/store"
	"github.com/sgtransit/stops-cli/pkg/datamall"
	"github.com/sgtransit/stops-cli/pkg/onemap"
)

// pipelineEnv holds the response cache and the pipeline built on it.
type pipelineEnv struct {
	Store    store.Store // nil when offline or caching is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the response cache database.
func initStore(ctx context.Context) (store.Store, error) {
	path := cfg.Fetch.CachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create cache dir %s", filepath.Dir(path))
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// source describes one upstream API for newDownloader.
type source struct {
	baseURL   string
	rateLimit float64
	headers   map[string]string
	validate  func([]byte) error
}

// newDownloader builds an HTTP fetcher for src, rate limited per host and
// wrapped in the response cache when one is open. Only bodies passing
// src.validate are cached.
func newDownloader(st store.Store, src source) fetcher.Fetcher {
	opts := fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    cfg.Fetch.Timeout(),
		MaxRetries: cfg.Fetch.MaxRetries,
		Headers:    src.headers,
	}
	if u, err := url.Parse(src.baseURL); err == nil && u.Host != "" {
		opts.HostRates = map[string]float64{u.Host: src.rateLimit}
	}

	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(opts)
	if st != nil {
		f = fetcher.NewCachingFetcher(f, st, cfg.Fetch.CacheTTL(), fetcher.WithValidator(src.validate))
	}
	return f
}

// initPipeline validates the config and builds the pipeline. Offline runs
// read snapshots only and get no network clients. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, offline bool) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	if offline {
		env.Pipeline = pipeline.New(cfg, nil, nil)
		return env, nil
	}

	if !cfg.Fetch.NoCache {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		zap.L().Debug("response cache opened", zap.String("path", cfg.Fetch.CachePath()))
	}

	om := onemap.NewClient(
		onemap.WithBaseURL(cfg.OneMap.BaseURL),
		onemap.WithToken(cfg.OneMap.Token),
		onemap.WithOutputFields(cfg.OneMap.OutputFields),
		onemap.WithMaxPages(cfg.OneMap.MaxPages),
		onemap.WithDownloader(newDownloader(env.Store, source{
			baseURL:   cfg.OneMap.BaseURL,
			rateLimit: cfg.OneMap.RateLimit,
			validate:  onemap.ValidatePage,
		})),
	)

	dm := datamall.NewClient(cfg.DataMall.AccountKey,
		datamall.WithBaseURL(cfg.DataMall.BaseURL),
		datamall.WithUniqueUserID(cfg.DataMall.UniqueUserID),
		datamall.WithPageSize(cfg.DataMall.PageSize),
		datamall.WithDownloader(newDownloader(env.Store, source{
			baseURL:   cfg.DataMall.BaseURL,
			rateLimit: cfg.DataMall.RateLimit,
			headers:   datamall.Headers(cfg.DataMall.AccountKey, cfg.DataMall.UniqueUserID),
			validate:  datamall.ValidatePage,
		})),
	)

	env.Pipeline = pipeline.New(cfg, om, dm)
	return env, nil
}

// requireAccountKey fails fast before the OneMap prefix sweep when DataMall
// would reject the run anyway.
func requireAccountKey() error {
	if cfg.DataMall.AccountKey == "" {
		return eris.Wrap(datamall.ErrNoAccountKey, "set datamall.account_key (STOPS_DATAMALL_ACCOUNT_KEY)")
	}
	return nil
}

// resolveFormats returns the --format values if any were given, else the
// configured output formats.
func resolveFormats(flagFormats []string) ([]string, error) {
	formats := cfg.Output.Formats
	if len(flagFormats) > 0 {
		formats = flagFormats
	}
	for _, f := range formats {
		if !export.IsFormat(f) {
			return nil, eris.Errorf("unknown format %q (want one of %v)", f, export.Formats)
		}
	}
	return formats, nil
}
