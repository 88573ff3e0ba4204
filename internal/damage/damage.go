// Package damage estimates the economic cost of each crash or fatality record.
package damage

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/model"
)

// Model selects the estimation formula.
type Model string

const (
	// ModelTiered charges only the most severe outcome of a record.
	ModelTiered Model = "tiered"
	// ModelAdditive sums every outcome plus the base crash cost. It
	// overstates crashes that have both injuries and fatalities and is kept
	// for reproducing older reports only.
	ModelAdditive Model = "additive"
)

// Rates are the per-outcome costs in USD.
type Rates struct {
	Fatality             float64 `yaml:"fatality" mapstructure:"fatality" json:"fatality"`
	IncapacitatingInjury float64 `yaml:"incapacitating_injury" mapstructure:"incapacitating_injury" json:"incapacitating_injury"`
	Injury               float64 `yaml:"injury" mapstructure:"injury" json:"injury"`
	BaseCrash            float64 `yaml:"base_crash" mapstructure:"base_crash" json:"base_crash"`
}

// DefaultRates returns the published comprehensive-cost figures.
func DefaultRates() Rates {
	return Rates{
		Fatality:             1778000,
		IncapacitatingInjury: 155000,
		Injury:               24000,
		BaseCrash:            11400,
	}
}

// Calculator estimates damages under a fixed model and rate table.
type Calculator struct {
	model Model
	rates Rates
}

// NewCalculator validates the model and rates.
func NewCalculator(m Model, rates Rates) (*Calculator, error) {
	switch m {
	case ModelTiered:
	case ModelAdditive:
		zap.L().Warn("damage: additive model selected; totals will not match tiered reports")
	default:
		return nil, eris.Errorf("damage: unknown model %q", m)
	}
	if rates.Fatality < 0 || rates.IncapacitatingInjury < 0 || rates.Injury < 0 || rates.BaseCrash < 0 {
		return nil, eris.Errorf("damage: rates must be non-negative: %+v", rates)
	}
	return &Calculator{model: m, rates: rates}, nil
}

// Model returns the formula in use.
func (c *Calculator) Model() Model { return c.model }

// Estimate returns the damage for one record. Missing injury counts are
// treated as zero.
func (c *Calculator) Estimate(r model.Record) float64 {
	fatalities := r.FatalityCount()
	incap := r.Incapacitating()
	injuries := r.Injuries()

	if c.model == ModelAdditive {
		return c.rates.BaseCrash +
			float64(injuries)*c.rates.Injury +
			float64(incap)*c.rates.IncapacitatingInjury +
			float64(fatalities)*c.rates.Fatality
	}

	switch {
	case fatalities > 0:
		return c.rates.Fatality*float64(fatalities) + c.rates.BaseCrash
	case incap > 0:
		return c.rates.IncapacitatingInjury*float64(incap) + c.rates.BaseCrash
	case injuries > 0:
		return c.rates.Injury * float64(injuries)
	case r.CrashCount() == 1:
		return c.rates.BaseCrash
	}
	return 0
}

// Apply sets Damages on every record in place.
func (c *Calculator) Apply(records []model.Record) {
	for i := range records {
		records[i].Damages = c.Estimate(records[i])
	}
}
