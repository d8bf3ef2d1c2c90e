package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"TickSentinel/internal/agent"
	"TickSentinel/internal/collector"
	"TickSentinel/internal/config"
	"TickSentinel/internal/engine"
	"TickSentinel/internal/execution"
	"TickSentinel/internal/fund"
	"TickSentinel/internal/metrics"
	"TickSentinel/internal/notifier"
	"TickSentinel/internal/recorder"
	"TickSentinel/internal/scheduler"
	"TickSentinel/internal/util"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLogger := util.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := util.NewLogger(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation")
	}
	logger.Info().Str("config", cfgPath).Int("agents", len(cfg.Agents)).Msg("TickSentinel starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "stream":
		sf := collector.NewStreamFetcher(cfg.DataSource.StreamURL, cfg.DataSource.Symbols, cfg.DataSource.MaxQuoteAge, logger)
		go func() {
			if err := sf.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("quote stream stopped")
			}
		}()
		fetcher = sf
	case "mock":
		fetcher = &collector.MockFetcher{DipEvery: 40}
	default:
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, logger)
	}
	logger.Info().Str("source", fetcher.Name()).Strs("symbols", cfg.DataSource.Symbols).Msg("data source ready")
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbols, logger)

	// Init order submitter
	var sub execution.Submitter
	if cfg.Execution.Mode == "rest" {
		sub = execution.NewRESTSubmitter(cfg.Execution.BaseURL, cfg.Execution.APIKey,
			cfg.Execution.AmountPrecision, cfg.Execution.PricePrecision, logger)
	} else {
		sub = execution.NewLogSubmitter(logger)
	}

	// Init agents, restoring saved portfolios
	agents := make([]*agent.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		a, err := buildAgent(ac, cfg.State.Dir, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("agent", ac.Name).Msg("init agent")
		}
		agents = append(agents, a)
	}

	// Init Telegram notifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	} else {
		logger.Warn().Msg("telegram not configured, notifications disabled")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Metrics endpoint
	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server started")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, agents, sub, n, rec, cfg.State.Dir, logger)
	if err := sched.RegisterAll(cfg.Schedule.TickCron, cfg.Schedule.EpochCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	logger.Info().Msg("TickSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping...")
	cancel()
}

func buildAgent(ac config.AgentConfig, stateDir string, logger zerolog.Logger) (*agent.Agent, error) {
	ecfg, err := ac.EngineConfig()
	if err != nil {
		return nil, err
	}
	e, err := engine.New(ecfg, engine.WithLogger(logger), engine.WithObserver(metrics.Observer{}))
	if err != nil {
		return nil, err
	}
	a := agent.New(ac.Name, e)

	snap, err := fund.LoadState(fund.StatePath(stateDir, ac.Name))
	if err != nil {
		return nil, err
	}
	if snap.Agent != "" {
		if err := a.Restore(*snap); err != nil {
			return nil, err
		}
	}
	return a, nil
}
