package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/config"
	"SignalDesk/internal/logger"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/provider"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/risk"
	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/server"
	"SignalDesk/internal/session"
	"SignalDesk/internal/strategy"
)

func main() {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		boot.Fatal().Err(err).Msg("init logger")
	}
	log.Info().Str("config", cfgPath).Msg("SignalDesk starting")

	metrics.Register()

	// Init sources
	sources, err := collector.Build(cfg.Data.EnabledSources, collector.Options{
		Proxy:              cfg.Proxy,
		Timeout:            cfg.Data.RequestTimeout,
		Logger:             logger.Component(log, "collector"),
		MT5BaseURL:         cfg.Sources.MT5.BaseURL,
		MT5Server:          cfg.Sources.MT5.Server,
		MT5Login:           cfg.Sources.MT5.Login,
		MT5Password:        cfg.Sources.MT5.Password,
		TwelveDataKey:      cfg.Sources.TwelveData.APIKey,
		TwelveDataPerMin:   cfg.Sources.TwelveData.RequestsPerMinute,
		AlphaVantageKey:    cfg.Sources.AlphaVantage.APIKey,
		AlphaVantagePerMin: cfg.Sources.AlphaVantage.RequestsPerMinute,
		AlpacaKey:          cfg.Sources.Alpaca.APIKey,
		AlpacaSecret:       cfg.Sources.Alpaca.APISecret,
		AlpacaBaseURL:      cfg.Sources.Alpaca.BaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init sources")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger.Component(log, "recorder"))
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := calculator.NewEngine(cfg.Indicators.Enabled, logger.Component(log, "indicators"))
	prov := provider.New(provider.Config{
		CacheTimeout:   cfg.Data.CacheTimeout,
		RequestTimeout: cfg.Data.RequestTimeout,
		MaxRetries:     cfg.Data.MaxRetries,
		RetryDelay:     cfg.Data.RetryDelay,
		ProbeSymbol:    cfg.Data.ProbeSymbol,
		PriceCacheTTL:  cfg.Data.PriceCacheTTL,
	}, sources, engine, logger.Component(log, "provider"), provider.WithProbeRecorder(rec))
	prov.Probe(ctx)

	analyzer := strategy.NewAnalyzer(prov, logger.Component(log, "strategy"), strategy.WithRecorder(rec))

	rm, err := risk.NewManager(risk.Config{
		InitialBalance:   cfg.Risk.InitialBalance,
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		MaxDailyRisk:     cfg.Risk.MaxDailyRisk,
		MaxPositionRatio: cfg.Risk.MaxPositionRatio,
		StateFile:        cfg.Risk.StateFile,
	}, rec, logger.Component(log, "risk"))
	if err != nil {
		log.Fatal().Err(err).Msg("init risk manager")
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger.Component(log, "notifier"))

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Analyzer: analyzer,
		Provider: prov,
		Risk:     rm,
		Sessions: session.NewManager(),
		Notifier: tn,
	}, scheduler.Config{
		SignalsCron:    cfg.Schedule.SignalsCron,
		DailyResetCron: cfg.Schedule.DailyResetCron,
		DigestMinConf:  cfg.Schedule.DigestMinConf,
		WarmupSymbols:  cfg.Data.WarmupSymbols,
	}, logger.Component(log, "scheduler"))
	if err := sched.RegisterAll(); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()
	sched.RunWarmUp()

	srv := server.New(cfg.Server.Addr, prov, logger.Component(log, "server"))
	srv.Start()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, sending signal digest now")
		go sched.RunDigestNow()
	}

	log.Info().Msg("SignalDesk is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("SignalDesk stopped")
}
