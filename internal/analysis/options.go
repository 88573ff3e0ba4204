// Package analysis wires the enrichment stages into one parameterized
// pipeline: load and join the base dataset once, then run district,
// corridor and zone analyses over independent copies of it.
package analysis

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/damage"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/summary"
)

// Options is the immutable parameter set shared by every analysis in a run.
type Options struct {
	CrashesPath     string
	FatalitiesPath  string
	CrashColumns    config.CrashColumns
	FatalityColumns config.FatalityColumns
	Layouts         []string
	Start, End      time.Time

	Senate boundary.Source
	House  boundary.Source

	DamageModel damage.Model
	Rates       damage.Rates

	Region         geo.BBox
	BufferFeet     float64
	ZoneRadiusFeet float64
	GroupBy        summary.GroupBy

	Concurrency   int
	PartitionSize int
}

// OptionsFromConfig derives Options from a validated Config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	start, end, err := cfg.Analysis.DateRange()
	if err != nil {
		return Options{}, err
	}
	group, err := summary.ParseGroupBy(cfg.Analysis.GroupBy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		CrashesPath:     cfg.Inputs.Crashes,
		FatalitiesPath:  cfg.Inputs.Fatalities,
		CrashColumns:    cfg.Inputs.CrashColumns,
		FatalityColumns: cfg.Inputs.FatalityColumns,
		Layouts:         cfg.Inputs.TimestampLayouts,
		Start:           start,
		End:             end,
		Senate: boundary.Source{
			Kind: model.KindSenate, Location: cfg.Boundaries.Senate.Source, IDField: cfg.Boundaries.Senate.IDField,
		},
		House: boundary.Source{
			Kind: model.KindHouse, Location: cfg.Boundaries.House.Source, IDField: cfg.Boundaries.House.IDField,
		},
		DamageModel: damage.Model(cfg.Damage.Model),
		Rates: damage.Rates{
			Fatality:             cfg.Damage.Fatality,
			IncapacitatingInjury: cfg.Damage.IncapacitatingInjury,
			Injury:               cfg.Damage.Injury,
			BaseCrash:            cfg.Damage.BaseCrash,
		},
		Region:         cfg.Analysis.Region,
		BufferFeet:     cfg.Analysis.BufferFeet,
		ZoneRadiusFeet: cfg.Analysis.ZoneRadiusFt,
		GroupBy:        group,
		Concurrency:    cfg.Analysis.Concurrency,
		PartitionSize:  cfg.Analysis.PartitionSize,
	}, nil
}

func (o Options) validate() error {
	if o.CrashesPath == "" && o.FatalitiesPath == "" {
		return eris.New("analysis: no crash or fatality input configured")
	}
	return nil
}
