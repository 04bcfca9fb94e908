package engine

import (
	"time"

	"TradeAdvisor/internal/calculator"
	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/recorder"
	"TradeAdvisor/internal/strategy"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
)

// FillMode decides when a decided order is filled.
type FillMode string

const (
	// FillNextOpen fills at the open of the bar after the decision.
	FillNextOpen FillMode = "next_open"
	// FillClose fills at the close of the decision bar.
	FillClose FillMode = "close"
)

// DefaultWarmupDays is 24 weeks of 5 trading days.
const DefaultWarmupDays = 24 * 5

// Config is fixed for a run.
type Config struct {
	Indicators  calculator.Params
	Strategy    strategy.Params
	ContextSize int      `validate:"gte=1"`
	WarmupDays  int      `validate:"gte=0"`
	FillMode    FillMode `validate:"oneof=next_open close"`
	// Parallel evaluates instruments of the same bar concurrently.
	Parallel bool
	// StartDate is the first analysis date. When unset, each instrument
	// starts WarmupDays bars into its series.
	StartDate optional.Option[time.Time]
	// SingleDate suppresses decisions on every other date.
	SingleDate optional.Option[time.Time]
}

// DefaultConfig returns the defaults for the named rule family.
func DefaultConfig(ruleSet string) (Config, error) {
	params, err := strategy.DefaultParams(ruleSet)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Indicators:  calculator.DefaultParams(),
		Strategy:    params,
		ContextSize: recorder.DefaultContextSize,
		WarmupDays:  DefaultWarmupDays,
		FillMode:    FillNextOpen,
		StartDate:   optional.None[time.Time](),
		SingleDate:  optional.None[time.Time](),
	}, nil
}

var validate = validator.New()

// Validate checks the configuration as a whole.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine config", err)
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.StartDate.IsSome() && c.SingleDate.IsSome() && c.SingleDate.Unwrap().Before(c.StartDate.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "single date %s is before start date %s",
			c.SingleDate.Unwrap().Format(model.DateLayout), c.StartDate.Unwrap().Format(model.DateLayout))
	}
	return nil
}
