package main

import (
	"context"

	"github.com/rs/zerolog"

	"FactorPulse/internal/board"
	"FactorPulse/internal/cache"
	"FactorPulse/internal/collector"
	"FactorPulse/internal/config"
	"FactorPulse/internal/metrics"
	"FactorPulse/internal/platform/httpclient"
)

// app holds the components shared by serve and the one-shot commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	metrics   *metrics.Registry
	cache     cache.SnapshotCache
	collector *collector.Collector
	board     *board.Service
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) *app {
	reg := metrics.New()

	var fetcher collector.Fetcher
	if cfg.Backend.Mock {
		fetcher = &collector.MockFetcher{}
	} else {
		client := httpclient.New(httpclient.Options{
			Name:            "backend",
			Timeout:         cfg.Backend.Timeout,
			RequestsPerSec:  cfg.Backend.RequestsPerSec,
			MaxRetryElapsed: cfg.Backend.MaxRetryElapsed,
			BreakerFailures: cfg.Backend.BreakerFailures,
			ProxyURL:        cfg.Proxy,
			Logger:          log,
		})
		fetcher = collector.NewBackendFetcher(cfg.Backend.BaseURL, cfg.Backend.FactorsPath, cfg.Backend.APIKey, client)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")

	var snapCache cache.SnapshotCache = cache.Noop{}
	switch {
	case cfg.Redis.Addr != "":
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, snapshot cache disabled")
		} else {
			snapCache = rc
		}
	case cfg.Database.SnapshotFile != "":
		fc, err := cache.NewFile(cfg.Database.SnapshotFile)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot file unavailable, snapshot cache disabled")
		} else {
			snapCache = fc
		}
	}

	col := collector.NewCollector(fetcher, collector.Options{
		Cache:   snapCache,
		Metrics: reg,
		Logger:  log,
		MaxAge:  cfg.Redis.TTL,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   reg,
		cache:     snapCache,
		collector: col,
		board:     board.NewService(col, log),
	}
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close cache")
	}
}
