package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"FactorPulse/internal/cache"
	"FactorPulse/internal/metrics"
	"FactorPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Records []model.FactorRecord
	Err     error

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchFactors(_ context.Context) ([]model.FactorRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Records != nil {
		return append([]model.FactorRecord(nil), m.Records...), nil
	}
	return generateMockRecords(12), nil
}

// Calls reports how many times FetchFactors ran.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var mockNames = []string{
	"AI Infrastructure", "Clean Energy", "Cybersecurity", "GLP-1", "Defense",
	"Semiconductors", "Momentum", "Low Volatility", "Value", "Quality",
	"Small Cap", "Dividend Growth",
}

func generateMockRecords(count int) []model.FactorRecord {
	records := make([]model.FactorRecord, count)
	for i := 0; i < count; i++ {
		phase := float64(i) / float64(count) * 2 * math.Pi
		typ := model.FactorTypeThematic
		if i%3 == 2 {
			typ = model.FactorTypeStatistical
		}
		holdings := 20 + 5*i
		records[i] = model.FactorRecord{
			ID:          i + 1,
			Name:        mockNames[i%len(mockNames)],
			Description: "Mock factor for development",
			Type:        typ,
			Perf1D:      model.Float(0.01 * math.Sin(phase)),
			Perf5D:      model.Float(0.02 * math.Sin(phase+0.3)),
			Perf1M:      model.Float(0.04 * math.Sin(phase+0.6)),
			Perf3M:      model.Float(0.08 * math.Cos(phase)),
			Perf6M:      model.Float(0.12 * math.Cos(phase+0.4)),
			Perf1Y:      model.Float(0.20 * math.Cos(phase+0.8)),
			NumHoldings: &holdings,
		}
	}
	return records
}

// Options configures a Collector.
type Options struct {
	Cache   cache.SnapshotCache
	Metrics *metrics.Registry
	Logger  zerolog.Logger
	// MaxAge bounds how old a held or cached snapshot may be before
	// Snapshot fetches again. Zero means 10 minutes.
	MaxAge time.Duration
}

// Collector owns the current factor snapshot and orchestrates fetching.
type Collector struct {
	Fetcher Fetcher

	cache   cache.SnapshotCache
	metrics *metrics.Registry
	log     zerolog.Logger
	maxAge  time.Duration
	now     func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	current *model.FactorSnapshot
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 10 * time.Minute
	}
	return &Collector{
		Fetcher: fetcher,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Logger.With().Str("component", "collector").Logger(),
		maxAge:  opts.MaxAge,
		now:     time.Now,
	}
}

// Current returns the last snapshot held in memory, or nil.
func (c *Collector) Current() *model.FactorSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Snapshot returns a fresh-enough snapshot: the one held in memory, then
// the shared cache, then a backend fetch. Concurrent callers share one
// lookup, which runs detached from any single caller's cancellation.
func (c *Collector) Snapshot(ctx context.Context) (*model.FactorSnapshot, error) {
	if snap := c.Current(); snap != nil && c.fresh(snap) {
		return snap, nil
	}
	detached := context.WithoutCancel(ctx)
	return c.shared(ctx, "snapshot", func() (any, error) {
		if snap := c.Current(); snap != nil && c.fresh(snap) {
			return snap, nil
		}
		snap, ok, err := c.cache.Get(detached)
		if err != nil {
			c.log.Warn().Err(err).Msg("cache lookup failed")
		}
		if ok && c.fresh(snap) {
			c.metrics.ObserveCache(true)
			c.hold(snap)
			return snap, nil
		}
		c.metrics.ObserveCache(false)
		return c.fetch(detached)
	})
}

// Refresh fetches from the backend regardless of what is held or cached.
func (c *Collector) Refresh(ctx context.Context) (*model.FactorSnapshot, error) {
	detached := context.WithoutCancel(ctx)
	return c.shared(ctx, "refresh", func() (any, error) {
		return c.fetch(detached)
	})
}

// shared runs fn once per key across concurrent callers. Each caller stops
// waiting when its own ctx ends; the lookup itself keeps running for the rest.
func (c *Collector) shared(ctx context.Context, key string, fn func() (any, error)) (*model.FactorSnapshot, error) {
	select {
	case res := <-c.group.DoChan(key, fn):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.FactorSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Collector) fetch(ctx context.Context) (*model.FactorSnapshot, error) {
	started := c.now()
	records, err := c.Fetcher.FetchFactors(ctx)
	c.metrics.ObserveFetch(c.Fetcher.Name(), started, err)
	if err != nil {
		c.log.Error().Err(err).Str("source", c.Fetcher.Name()).Msg("fetch failed")
		return nil, fmt.Errorf("collect from %s: %w", c.Fetcher.Name(), err)
	}

	snap := &model.FactorSnapshot{
		Source:    c.Fetcher.Name(),
		FetchedAt: c.now().UTC(),
		Records:   records,
	}
	c.hold(snap)
	c.metrics.ObserveSnapshot(len(records), snap.FetchedAt)
	if err := c.cache.Set(ctx, snap); err != nil {
		c.log.Warn().Err(err).Msg("cache store failed")
	}
	c.log.Info().Int("records", len(records)).Dur("took", c.now().Sub(started)).Msg("snapshot refreshed")
	return snap, nil
}

func (c *Collector) hold(snap *model.FactorSnapshot) {
	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()
}

func (c *Collector) fresh(snap *model.FactorSnapshot) bool {
	return c.now().Sub(snap.FetchedAt) < c.maxAge
}
