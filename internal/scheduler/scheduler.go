package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SignalDesk/internal/model"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/risk"
	"SignalDesk/internal/session"
)

// Analyzer produces trading signals.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.AnalysisResult, error)
	TradingSignals(ctx context.Context) []model.AnalysisResult
	MarketAnalysis(ctx context.Context) []model.AnalysisResult
	SignalHistory(symbol string, limit int) []model.AnalysisResult
}

// DataProvider is the market-data surface the bot exposes.
type DataProvider interface {
	MarketSummary(ctx context.Context, symbols []string) map[string]float64
	FastMarketSummary(ctx context.Context, symbols []string) map[string]float64
	Health() map[string]bool
	SourceNames() []string
	CacheSize() int
	ClearCache()
	AvailableSymbols() []string
	WarmUp(ctx context.Context, symbols []string) <-chan struct{}
}

// Sender delivers messages to the configured chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Config holds the cron specs and digest threshold.
type Config struct {
	SignalsCron    string
	DailyResetCron string
	DigestMinConf  float64
	WarmupSymbols  []string
}

// Deps are the components the scheduler drives.
type Deps struct {
	Analyzer Analyzer
	Provider DataProvider
	Risk     *risk.Manager
	Sessions *session.Manager
	Notifier Sender
}

// Scheduler manages all cron tasks and chat commands.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	deps Deps
	cfg  Config
	log  zerolog.Logger
	now  func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps, cfg Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Ctx:  ctx,
		deps: deps,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// RegisterAll registers the signal digest and the daily risk reset.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.cfg.SignalsCron, s.digestTask); err != nil {
		return fmt.Errorf("register signals task: %w", err)
	}
	if _, err := s.Cron.AddFunc(s.cfg.DailyResetCron, s.dailyReset); err != nil {
		return fmt.Errorf("register daily reset: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunWarmUp preloads the configured symbols in the background.
func (s *Scheduler) RunWarmUp() <-chan struct{} {
	return s.deps.Provider.WarmUp(s.Ctx, s.cfg.WarmupSymbols)
}

// RunDigestNow executes the digest task immediately (for RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	s.log.Info().Msg("running signal digest")
	results := s.deps.Analyzer.TradingSignals(s.Ctx)
	text := notifier.FormatDigest(results, s.cfg.DigestMinConf, s.now())
	if text == "" {
		s.log.Info().Int("analyzed", len(results)).Float64("min_confidence", s.cfg.DigestMinConf).Msg("no signals above threshold")
		return
	}
	s.trySend(text)
}

func (s *Scheduler) dailyReset() {
	s.deps.Risk.ResetDailyLosses()
	s.log.Info().Msg("daily losses reset")
}

func (s *Scheduler) trySend(text string) {
	if err := s.deps.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
