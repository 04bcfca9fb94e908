package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"TradeAdvisor/internal/calculator"
	"TradeAdvisor/internal/engine"
	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/recorder"
	"TradeAdvisor/internal/strategy"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LogLevel      string   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Tickers       []string `yaml:"tickers" validate:"dive,required"`
	PositionsFile string   `yaml:"positions_file"`

	Strategy   strategy.Params   `yaml:"strategy"`
	Indicators calculator.Params `yaml:"indicators"`
	Engine     struct {
		ContextSize int    `yaml:"context_size" validate:"gte=1"`
		WarmupDays  int    `yaml:"warmup_days" validate:"gte=0"`
		FillMode    string `yaml:"fill_mode" validate:"oneof=next_open close"`
		Parallel    bool   `yaml:"parallel"`
		StartDate   string `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
		SingleDate  string `yaml:"single_date" validate:"omitempty,datetime=2006-01-02"`
	} `yaml:"engine"`

	DataSource struct {
		Type    string `yaml:"type" validate:"oneof=yahoo rest csv mock"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Dir     string `yaml:"dir"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Ledger struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"ledger"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	return LoadStrategy(path, "")
}

// LoadStrategy is Load with the rule family forced to strategyName when it is
// not empty. The family picks the threshold defaults the file then overrides.
func LoadStrategy(path, strategyName string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var head struct {
		Strategy struct {
			Name string `yaml:"name"`
		} `yaml:"strategy"`
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	name := head.Strategy.Name
	if v := os.Getenv("ADVISOR_STRATEGY"); v != "" {
		name = v
	}
	if strategyName != "" {
		name = strategyName
	}
	if name == "" {
		name = strategy.RSICrossover
	}
	params, err := strategy.DefaultParams(name)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Strategy: params, Indicators: calculator.DefaultParams()}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Strategy.Name = name

	// Environment variable overrides
	if v := os.Getenv("ADVISOR_TICKERS"); v != "" {
		cfg.Tickers = SplitTickers(v)
	}
	if v := os.Getenv("ADVISOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("POSITIONS_FILE"); v != "" {
		cfg.PositionsFile = v
	}

	// Defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Engine.ContextSize == 0 {
		cfg.Engine.ContextSize = recorder.DefaultContextSize
	}
	if cfg.Engine.WarmupDays == 0 {
		cfg.Engine.WarmupDays = engine.DefaultWarmupDays
	}
	if cfg.Engine.FillMode == "" {
		cfg.Engine.FillMode = string(engine.FillNextOpen)
	}
	if cfg.DataSource.Type == "" {
		cfg.DataSource.Type = "yahoo"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if cfg.Ledger.StateFile == "" {
		cfg.Ledger.StateFile = "data/ledger_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trade_advisor.db"
	}
	for i, t := range cfg.Tickers {
		cfg.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.DataSource.Type == "rest" && c.DataSource.BaseURL == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "data_source.base_url is required for the rest source")
	}
	if c.DataSource.Type == "csv" && c.DataSource.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "data_source.dir is required for the csv source")
	}
	_, err := c.EngineConfig()
	return err
}

// ValidateServe additionally checks what the long-running service needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Tickers) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "tickers are required")
	}
	if c.Telegram.BotToken == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "telegram.chat_id is required")
	}
	return nil
}

// EngineConfig builds the walk-forward configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	cfg := engine.Config{
		Indicators:  c.Indicators,
		Strategy:    c.Strategy,
		ContextSize: c.Engine.ContextSize,
		WarmupDays:  c.Engine.WarmupDays,
		FillMode:    engine.FillMode(c.Engine.FillMode),
		Parallel:    c.Engine.Parallel,
	}
	var err error
	if cfg.StartDate, err = parseOptionalDate(c.Engine.StartDate); err != nil {
		return engine.Config{}, err
	}
	if cfg.SingleDate, err = parseOptionalDate(c.Engine.SingleDate); err != nil {
		return engine.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

func parseOptionalDate(s string) (optional.Option[time.Time], error) {
	if s == "" {
		return optional.None[time.Time](), nil
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "date %q", s)
	}
	return optional.Some(d), nil
}

// SplitTickers splits a comma separated ticker list.
func SplitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
