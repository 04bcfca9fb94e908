package strategy

import (
	"sort"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
)

// Rule family names.
const (
	RSICrossover = "rsi"
	BollingerRSI = "bbrsi"
)

// RuleSet decides whether to open or close a position on the current bar.
// Implementations hold no per-instrument state; everything they need is
// passed in.
type RuleSet interface {
	Name() string
	// Lookback is the number of snapshots, current bar included, the rules read.
	Lookback() int
	// BuySignal returns a reason when a position should be opened.
	BuySignal(ticker string, h History) optional.Option[string]
	// SellSignal returns a reason when pos should be closed.
	SellSignal(pos model.Position, h History) optional.Option[string]
}

// Params holds the thresholds of both rule families. Fields a family does
// not read are ignored.
type Params struct {
	Name                        string  `yaml:"name" validate:"required"`
	LowerRSI                    float64 `yaml:"lower_rsi" validate:"gte=0,lte=100"`
	UpperRSI                    float64 `yaml:"upper_rsi" validate:"gte=0,lte=100"`
	LossPct                     float64 `yaml:"loss_pct_threshold" validate:"gte=0"`
	ProfitProtectionPct         float64 `yaml:"profit_protection_pct_threshold" validate:"gte=0,lte=100"`
	ProfitProtectionFromPeak    bool    `yaml:"profit_protection_from_peak"`
	BBLowCrossoverLossTolerance float64 `yaml:"bb_low_crossover_loss_tolerance" validate:"gte=0"`
	InflectionProfitTarget      float64 `yaml:"inflection_profit_target" validate:"gte=0"`
	Investment                  float64 `yaml:"fixed_investment_amount" validate:"gt=0"`
}

var validate = validator.New()

// Validate checks the thresholds.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy params", err)
	}
	if p.LowerRSI >= p.UpperRSI {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"lower_rsi (%.2f) must be below upper_rsi (%.2f)", p.LowerRSI, p.UpperRSI)
	}
	return nil
}

type family struct {
	defaults Params
	build    func(Params) RuleSet
}

var families = map[string]family{
	RSICrossover: {
		defaults: Params{
			Name:                RSICrossover,
			LowerRSI:            50,
			UpperRSI:            60,
			LossPct:             5,
			ProfitProtectionPct: 0,
			Investment:          3000,
		},
		build: func(p Params) RuleSet { return &RSICrossoverRules{params: p} },
	},
	BollingerRSI: {
		defaults: Params{
			Name:                        BollingerRSI,
			LowerRSI:                    44,
			UpperRSI:                    60,
			LossPct:                     100,
			BBLowCrossoverLossTolerance: 5,
			InflectionProfitTarget:      5,
			Investment:                  4000,
		},
		build: func(p Params) RuleSet { return &BollingerRSIRules{params: p} },
	},
}

// Names returns the registered rule family names, sorted.
func Names() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultParams returns the default thresholds of a rule family.
func DefaultParams(name string) (Params, error) {
	f, ok := families[name]
	if !ok {
		return Params{}, errors.Newf(errors.ErrCodeUnknownRuleSet, "unknown rule set %q", name)
	}
	return f.defaults, nil
}

// New builds the rule family named by p.Name.
func New(p Params) (RuleSet, error) {
	f, ok := families[p.Name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownRuleSet, "unknown rule set %q", p.Name)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return f.build(p), nil
}

// pnlPct is (close/entry - 1) * 100.
func pnlPct(entry, close float64) float64 {
	return (close/entry - 1) * 100
}
