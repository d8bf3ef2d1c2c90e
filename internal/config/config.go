package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TickSentinel/internal/engine"
	"TickSentinel/internal/risk"
	"TickSentinel/internal/strategy"
)

const defaultPreset = "zscore_reversion"

// AgentConfig describes one independent engine in the tournament.
// Strategy is decoded over the named preset, so it only needs the fields it changes.
type AgentConfig struct {
	Name           string            `yaml:"name"`
	Preset         string            `yaml:"preset"`
	Capital        float64           `yaml:"capital"`
	Strategy       yaml.Node         `yaml:"strategy"`
	Risk           risk.Limits       `yaml:"risk"`
	Sizing         risk.SizingConfig `yaml:"sizing"`
	SeriesCapacity int               `yaml:"series_capacity"`
	IdleTicks      int               `yaml:"idle_ticks"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider    string        `yaml:"provider"` // rest, stream or mock
		BaseURL     string        `yaml:"base_url"`
		StreamURL   string        `yaml:"stream_url"`
		APIKey      string        `yaml:"api_key"`
		Symbols     []string      `yaml:"symbols"`
		MaxQuoteAge time.Duration `yaml:"max_quote_age"`
	} `yaml:"data_source"`
	Execution struct {
		Mode            string `yaml:"mode"` // log or rest
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		AmountPrecision int32  `yaml:"amount_precision"`
		PricePrecision  int32  `yaml:"price_precision"`
	} `yaml:"execution"`
	Schedule struct {
		TickCron  string `yaml:"tick_cron"`
		EpochCron string `yaml:"epoch_cron"`
	} `yaml:"schedule"`
	State struct {
		Dir string `yaml:"dir"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy  string        `yaml:"proxy"`
	Agents []AgentConfig `yaml:"agents"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Variables from envFiles (default .env) are loaded first and never replace
// variables already set in the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_STREAM_URL"); v != "" {
		cfg.DataSource.StreamURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitAndTrim(v)
	}
	if v := os.Getenv("EXECUTION_MODE"); v != "" {
		cfg.Execution.Mode = v
	}
	if v := os.Getenv("EXECUTION_API_KEY"); v != "" {
		cfg.Execution.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TICK_CRON"); v != "" {
		cfg.Schedule.TickCron = v
	}
	if v := os.Getenv("EPOCH_CRON"); v != "" {
		cfg.Schedule.EpochCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "rest"
	}
	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = "log"
	}
	if cfg.Execution.AmountPrecision == 0 {
		cfg.Execution.AmountPrecision = 6
	}
	if cfg.Execution.PricePrecision == 0 {
		cfg.Execution.PricePrecision = 8
	}
	if cfg.Schedule.TickCron == "" {
		cfg.Schedule.TickCron = "*/10 * * * * *"
	}
	if cfg.Schedule.EpochCron == "" {
		cfg.Schedule.EpochCron = "0 0 * * * *"
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = "data/state"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tick_sentinel.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	for i := range cfg.Agents {
		if cfg.Agents[i].Preset == "" {
			cfg.Agents[i].Preset = defaultPreset
		}
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when a bot token is set")
	}
	if len(c.DataSource.Symbols) == 0 {
		return fmt.Errorf("data_source.symbols is required")
	}
	switch c.DataSource.Provider {
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	case "stream":
		if c.DataSource.StreamURL == "" {
			return fmt.Errorf("data_source.stream_url is required for the stream provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	switch c.Execution.Mode {
	case "log":
	case "rest":
		if c.Execution.BaseURL == "" {
			return fmt.Errorf("execution.base_url is required for rest execution")
		}
	default:
		return fmt.Errorf("unknown execution.mode %q", c.Execution.Mode)
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent name is required")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
		if a.Capital <= 0 {
			return fmt.Errorf("agent %s: capital must be positive", a.Name)
		}
		if _, err := a.EngineConfig(); err != nil {
			return err
		}
	}
	return nil
}

// Profile resolves the preset and applies the strategy overrides.
func (a AgentConfig) Profile() (strategy.Profile, error) {
	p, err := strategy.Preset(a.Preset)
	if err != nil {
		return strategy.Profile{}, fmt.Errorf("agent %s: %w", a.Name, err)
	}
	if !a.Strategy.IsZero() {
		if err := a.Strategy.Decode(&p); err != nil {
			return strategy.Profile{}, fmt.Errorf("agent %s: decode strategy: %w", a.Name, err)
		}
	}
	return p, nil
}

// EngineConfig builds the engine configuration of this agent.
func (a AgentConfig) EngineConfig() (engine.Config, error) {
	p, err := a.Profile()
	if err != nil {
		return engine.Config{}, err
	}
	if _, err := risk.NewSizer(a.Sizing); err != nil {
		return engine.Config{}, fmt.Errorf("agent %s: %w", a.Name, err)
	}
	return engine.Config{
		Agent:          a.Name,
		Capital:        a.Capital,
		Profile:        p,
		Risk:           a.Risk,
		Sizing:         a.Sizing,
		SeriesCapacity: a.SeriesCapacity,
		IdleTicks:      a.IdleTicks,
	}, nil
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
