package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"FactorPulse/internal/api"
	"FactorPulse/internal/notifier"
	"FactorPulse/internal/recorder"
	"FactorPulse/internal/scheduler"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var refreshOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the Telegram bot",
		Long: `Run the HTTP API together with the cron scheduler. When a Telegram bot
token and chat id are configured, the digest is pushed on digest_cron and
chat commands are answered through long polling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("RUN_ON_START") == "true" {
				refreshOnStart = true
			}
			return runServe(cmd.Context(), opts, refreshOnStart)
		},
	}
	cmd.Flags().BoolVar(&refreshOnStart, "refresh-on-start", false, "Fetch and record a snapshot before the first cron tick")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, refreshOnStart bool) error {
	cfg, log := opts.cfg, opts.log
	log.Info().Msg("FactorPulse starting")

	a := newApp(ctx, cfg, log)
	defer a.Close()

	rec, err := recorder.Open(ctx, cfg.Database.SQLitePath, cfg.Database.PostgresDSN, log)
	if err != nil {
		log.Warn().Err(err).Msg("init recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var digest scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		digest = tn
	} else {
		log.Warn().Msg("telegram not configured, digests and bot commands disabled")
	}

	sched := scheduler.NewScheduler(ctx, a.collector, a.board, digest, rec, scheduler.Options{
		Horizon:  cfg.Report.Horizon,
		TopN:     cfg.Report.TopN,
		XHorizon: cfg.Report.XHorizon,
		YHorizon: cfg.Report.YHorizon,
		Metrics:  a.metrics,
		Logger:   log,
	})
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.DigestCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if refreshOnStart {
		go func() {
			if err := sched.RunRefreshNow(); err != nil {
				log.Error().Err(err).Msg("initial refresh failed")
			}
		}()
	}

	srv := api.New(api.Config{
		Addr:      cfg.Server.Addr,
		Board:     a.board,
		Refresher: a.collector,
		Metrics:   a.metrics,
		Defaults: api.Defaults{
			Horizon:  cfg.Report.Horizon,
			TopN:     cfg.Report.TopN,
			XHorizon: cfg.Report.XHorizon,
			YHorizon: cfg.Report.YHorizon,
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info().Msg("FactorPulse is running, press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("FactorPulse stopped")
	return nil
}
