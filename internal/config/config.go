package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SignalDesk/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required"`
		ChatID   string `yaml:"chat_id" validate:"required"`
	} `yaml:"telegram"`
	Data       DataConfig    `yaml:"data"`
	Sources    SourcesConfig `yaml:"sources"`
	Indicators struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"indicators"`
	Risk     RiskConfig `yaml:"risk"`
	Schedule struct {
		SignalsCron    string `yaml:"signals_cron" default:"0 0 */4 * * 1-5" validate:"required"`
		DailyResetCron string `yaml:"daily_reset_cron" default:"0 0 0 * * *" validate:"required"`
		DigestMinConf  float64 `yaml:"digest_min_confidence" default:"70" validate:"gte=0,lte=95"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/signal_desk.db"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// DataConfig configures the data provider.
type DataConfig struct {
	CacheTimeout   time.Duration `yaml:"cache_timeout" default:"10m" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"15s" validate:"gt=0"`
	MaxRetries     int           `yaml:"max_retries" default:"1" validate:"gte=1,lte=5"`
	RetryDelay     time.Duration `yaml:"retry_delay" default:"100ms"`
	EnabledSources []string      `yaml:"enabled_sources" default:"[\"mt5\",\"twelvedata\"]" validate:"dive,oneof=mt5 twelvedata alphavantage yahoo alpaca frankfurter"`
	ProbeSymbol    string        `yaml:"probe_symbol" default:"EURUSD" validate:"required"`
	WarmupSymbols  []string      `yaml:"warmup_symbols" default:"[\"EURUSD\",\"GBPUSD\",\"USDJPY\"]"`
	PriceCacheTTL  time.Duration `yaml:"price_cache_ttl" default:"60s"`
}

// SourcesConfig carries per-vendor credentials and endpoints.
type SourcesConfig struct {
	MT5 struct {
		BaseURL  string `yaml:"base_url" default:"http://127.0.0.1:5005"`
		Server   string `yaml:"server"`
		Login    string `yaml:"login"`
		Password string `yaml:"password"`
	} `yaml:"mt5"`
	TwelveData struct {
		APIKey            string `yaml:"api_key" default:"demo"`
		RequestsPerMinute int    `yaml:"requests_per_minute" default:"8" validate:"gt=0"`
	} `yaml:"twelvedata"`
	AlphaVantage struct {
		APIKey            string `yaml:"api_key" default:"demo"`
		RequestsPerMinute int    `yaml:"requests_per_minute" default:"5" validate:"gt=0"`
	} `yaml:"alphavantage"`
	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"alpaca"`
}

// RiskConfig seeds the risk manager.
type RiskConfig struct {
	InitialBalance   float64 `yaml:"initial_balance" default:"10000" validate:"gt=0"`
	RiskPerTrade     float64 `yaml:"risk_per_trade" default:"0.03" validate:"gt=0,lt=1"`
	MaxDailyRisk     float64 `yaml:"max_daily_risk" default:"0.09" validate:"gt=0,lt=1"`
	MaxPositionRatio float64 `yaml:"max_position_ratio" default:"0.1" validate:"gt=0,lte=1"`
	StateFile        string  `yaml:"state_file" default:"data/risk_state.json"`
}

var validate = validator.New()

// Load reads .env, the YAML file at path, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setString("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	setString("HTTPS_PROXY", &cfg.Proxy)
	setString("TWELVEDATA_API_KEY", &cfg.Sources.TwelveData.APIKey)
	setString("ALPHAVANTAGE_API_KEY", &cfg.Sources.AlphaVantage.APIKey)
	setString("APCA_API_KEY_ID", &cfg.Sources.Alpaca.APIKey)
	setString("APCA_API_SECRET_KEY", &cfg.Sources.Alpaca.APISecret)
	setString("MT5_BRIDGE_URL", &cfg.Sources.MT5.BaseURL)
	setString("MT5_SERVER", &cfg.Sources.MT5.Server)
	setString("MT5_LOGIN", &cfg.Sources.MT5.Login)
	setString("MT5_PASSWORD", &cfg.Sources.MT5.Password)
	setString("SQLITE_PATH", &cfg.Database.SQLitePath)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("CRON_SIGNALS", &cfg.Schedule.SignalsCron)
	setFloat("RISK_PER_TRADE", &cfg.Risk.RiskPerTrade)
	setFloat("MAX_DAILY_RISK", &cfg.Risk.MaxDailyRisk)
	setFloat("DEFAULT_BALANCE", &cfg.Risk.InitialBalance)

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("DATA_SOURCES"); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
				sources = append(sources, s)
			}
		}
		cfg.Data.EnabledSources = sources
	}
	if v := os.Getenv("CACHE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Data.CacheTimeout = d
		}
	}
}

// Validate checks that all required fields are set and within range.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Namespace()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", e.Namespace(), e.Tag(), e.Param()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
