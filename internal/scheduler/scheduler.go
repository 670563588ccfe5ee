package scheduler

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"FactorPulse/internal/board"
	"FactorPulse/internal/metrics"
	"FactorPulse/internal/model"
	"FactorPulse/internal/notifier"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/recorder"
	"FactorPulse/internal/render"
)

// Refresher forces a new snapshot from the backend.
type Refresher interface {
	Refresh(ctx context.Context) (*model.FactorSnapshot, error)
}

// Notifier delivers digests to the chat.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhoto(ctx context.Context, caption string, png []byte) error
}

// Options holds the digest defaults.
type Options struct {
	Horizon  model.Horizon
	TopN     int
	XHorizon model.Horizon
	YHorizon model.Horizon
	Metrics  *metrics.Registry
	Logger   zerolog.Logger
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Refresher
	Board     *board.Service
	Notifier  Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context

	opts Options
	log  zerolog.Logger
}

// NewScheduler creates a new Scheduler. A nil notifier disables digests.
func NewScheduler(ctx context.Context, col Refresher, b *board.Service, n Notifier, rec recorder.Recorder, opts Options) *Scheduler {
	if !opts.Horizon.Valid() {
		opts.Horizon = model.Horizon1D
	}
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	if !opts.XHorizon.Valid() {
		opts.XHorizon = model.Horizon1M
	}
	if !opts.YHorizon.Valid() {
		opts.YHorizon = model.Horizon3M
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Board:     b,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		opts:      opts,
		log:       opts.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the snapshot refresh and the digest.
func (s *Scheduler) RegisterAll(refreshCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if s.Notifier == nil {
		s.log.Warn().Msg("no notifier configured, digest not scheduled")
		return nil
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunRefreshNow refreshes the snapshot immediately.
func (s *Scheduler) RunRefreshNow() error {
	return s.refresh()
}

// RunDigestNow builds and sends the digest immediately.
func (s *Scheduler) RunDigestNow() error {
	return s.digest()
}

func (s *Scheduler) refreshTask() {
	if err := s.refresh(); err != nil {
		s.log.Error().Err(err).Msg("scheduled refresh failed")
	}
}

func (s *Scheduler) digestTask() {
	if err := s.digest(); err != nil {
		s.log.Error().Err(err).Msg("scheduled digest failed")
	}
}

func (s *Scheduler) refresh() error {
	snap, err := s.Collector.Refresh(s.Ctx)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	rs := recorder.NewSnapshot(snap)
	if err := s.Recorder.RecordSnapshot(s.Ctx, rs); err != nil {
		s.log.Error().Err(err).Str("run_id", rs.RunID).Msg("record snapshot")
	}
	return nil
}

func (s *Scheduler) digest() error {
	if s.Notifier == nil {
		return fmt.Errorf("digest: no notifier configured")
	}
	ctx := s.Ctx
	s.log.Info().Str("horizon", s.opts.Horizon.String()).Int("top_n", s.opts.TopN).Msg("running digest")

	r, err := s.Board.Rankings(ctx, s.opts.Horizon, s.opts.TopN)
	if err != nil {
		s.opts.Metrics.ObserveDigest(err)
		return fmt.Errorf("digest rankings: %w", err)
	}
	view, err := s.Board.Rotation(ctx, s.opts.XHorizon, s.opts.YHorizon)
	if err != nil {
		s.log.Warn().Err(err).Msg("digest without rotation view")
	}

	evt := &recorder.DigestEvent{
		RunID:    uuid.NewString(),
		SentAt:   time.Now(),
		Horizon:  s.opts.Horizon,
		TopN:     s.opts.TopN,
		Top:      rankedNames(r.Top),
		Bottom:   rankedNames(r.Bottom),
		XHorizon: s.opts.XHorizon,
		YHorizon: s.opts.YHorizon,
	}

	sendErr := s.Notifier.SendWithRetry(ctx, notifier.FormatDigest(r.AsOf, r.Horizon, r.Top, r.Bottom, view), 3)
	if sendErr == nil && view != nil {
		if img, err := render.RotationPNG(view, 800, 800); err == nil {
			caption := fmt.Sprintf("Factor rotation (x: %s, y: %s)", view.X, view.Y)
			if err := s.Notifier.SendPhoto(ctx, caption, img); err != nil {
				s.log.Warn().Err(err).Msg("send rotation chart")
			}
		} else {
			s.log.Debug().Err(err).Msg("rotation chart skipped")
		}
	}

	evt.Delivered = sendErr == nil
	if sendErr != nil {
		evt.Error = sendErr.Error()
	}
	if err := s.Recorder.RecordDigest(ctx, evt); err != nil {
		s.log.Error().Err(err).Str("run_id", evt.RunID).Msg("record digest")
	}
	s.opts.Metrics.ObserveDigest(sendErr)
	if sendErr != nil {
		return fmt.Errorf("send digest: %w", sendErr)
	}
	return nil
}

func rankedNames(list []ranking.RankedFactor) []string {
	out := make([]string, len(list))
	for i, rf := range list {
		out[i] = rf.Record.Name
	}
	return out
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Commands in groups arrive as /top@BotName.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/top":
		return s.cmdTop(ctx, args)
	case "/rotation":
		return s.cmdRotation(ctx, args)
	case "/factor":
		if len(args) == 0 {
			return "Usage: /factor name"
		}
		rec, err := s.Board.FactorByName(ctx, strings.Join(args, " "))
		if err != nil {
			return errorReply(err)
		}
		return notifier.FormatFactor(rec)
	case "/summary":
		sum, err := s.Board.Summary(ctx)
		if err != nil {
			return errorReply(err)
		}
		return notifier.FormatSummary(sum.Horizons)
	case "/refresh":
		snap, err := s.Collector.Refresh(ctx)
		if err != nil {
			return errorReply(err)
		}
		return fmt.Sprintf("✅ Refreshed %d factors from %s", len(snap.Records), snap.Source)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) cmdTop(ctx context.Context, args []string) string {
	h, n := s.opts.Horizon, s.opts.TopN
	for _, arg := range args {
		if v, err := strconv.Atoi(arg); err == nil {
			n = v
			continue
		}
		parsed, err := model.ParseHorizon(arg)
		if err != nil {
			return errorReply(err)
		}
		h = parsed
	}
	r, err := s.Board.Rankings(ctx, h, n)
	if err != nil {
		return errorReply(err)
	}
	return notifier.FormatRankings(r.Horizon, r.Top, r.Bottom)
}

func (s *Scheduler) cmdRotation(ctx context.Context, args []string) string {
	x, y := s.opts.XHorizon, s.opts.YHorizon
	for i, arg := range args {
		if i > 1 {
			break
		}
		parsed, err := model.ParseHorizon(arg)
		if err != nil {
			return errorReply(err)
		}
		if i == 0 {
			x = parsed
		} else {
			y = parsed
		}
	}
	view, err := s.Board.Rotation(ctx, x, y)
	if err != nil {
		return errorReply(err)
	}
	return notifier.FormatRotation(view, 5)
}

func errorReply(err error) string {
	return "⚠️ " + html.EscapeString(err.Error())
}
