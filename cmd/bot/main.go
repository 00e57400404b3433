package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Guanfancy/internal/config"
	"Guanfancy/internal/metrics"
	"Guanfancy/internal/notifier"
	"Guanfancy/internal/scheduler"
	"Guanfancy/internal/service"
	"Guanfancy/internal/settings"
	"Guanfancy/internal/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("Guanfancy starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	setupLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}

	// Init intake store
	var st store.IntakeStore
	if cfg.Database.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite store failed, keeping intakes in memory")
			st = store.NewMemoryStore()
		} else {
			st = sq
		}
	} else {
		st = store.NewMemoryStore()
	}
	defer st.Close()

	// Init settings
	sm, err := settings.NewManager(cfg.Settings.StateFile, cfg.MedicationType(), cfg.Intake)
	if err != nil {
		log.Fatal().Err(err).Msg("init settings")
	}

	var rec metrics.Recorder = metrics.Noop{}
	var metricsSrv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		m := metrics.New()
		rec = m
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics server started")
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := service.NewTracker(st, sm, nil, loc)
	sched := scheduler.NewScheduler(ctx, tracker, sm, tn, rec)
	if err := sched.RegisterAll(cfg.Schedule.SweepCron, cfg.Schedule.DailyCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}

	if sm.Snapshot().WarningAccepted {
		if _, created, err := tracker.EnsureNextScheduled(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("ensure next intake")
		} else if created {
			log.Info().Msg("no pending intake found, scheduled the next default occurrence")
		}
	}

	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	log.Info().
		Str("medication", string(sm.MedicationType())).
		Str("timezone", loc.String()).
		Msg("Guanfancy is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if metricsSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	log.Info().Msg("Guanfancy stopped")
}

func setupLogger(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel())
	if cfg.Logger.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
