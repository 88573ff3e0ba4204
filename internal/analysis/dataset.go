package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/damage"
	"github.com/sells-group/crash-cli/internal/enrich"
	"github.com/sells-group/crash-cli/internal/ingest"
	"github.com/sells-group/crash-cli/internal/model"
)

// Dataset is the base collection every analysis starts from: geocoded,
// joined to senate and house districts, and costed. It is read-only once
// built.
type Dataset struct {
	Records []model.Record
	Senate  *boundary.Set
	House   *boundary.Set
	Reports []ingest.Report
	Model   damage.Model
}

// Prepare loads both inputs and both district layers concurrently, then
// joins senate and house districts in turn and estimates damages. A missing
// or unreadable boundary source fails the whole run.
func Prepare(ctx context.Context, opts Options, boundaries *boundary.Resolver) (*Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	calc, err := damage.NewCalculator(opts.DamageModel, opts.Rates)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "analysis"))

	ingestOpts := ingest.Options{Layouts: opts.Layouts, Start: opts.Start, End: opts.End}
	var (
		crashes, fatalities   []model.Record
		crashRep, fatalityRep ingest.Report
		senate, house         *boundary.Set
	)

	g, gctx := errgroup.WithContext(ctx)
	if opts.CrashesPath != "" {
		g.Go(func() error {
			var err error
			crashes, crashRep, err = ingest.LoadCrashes(gctx, opts.CrashesPath, opts.CrashColumns, ingestOpts)
			return eris.Wrap(err, "analysis: load crashes")
		})
	}
	if opts.FatalitiesPath != "" {
		g.Go(func() error {
			var err error
			fatalities, fatalityRep, err = ingest.LoadFatalities(gctx, opts.FatalitiesPath, opts.FatalityColumns, ingestOpts)
			return eris.Wrap(err, "analysis: load fatalities")
		})
	}
	g.Go(func() error {
		var err error
		senate, err = boundaries.Resolve(gctx, opts.Senate)
		return err
	})
	g.Go(func() error {
		var err error
		house, err = boundaries.Resolve(gctx, opts.House)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := ingest.Union(crashes, fatalities)
	records, _, err = enrich.JoinDistricts(ctx, records, senate, opts.PartitionSize)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: senate join")
	}
	records, _, err = enrich.JoinDistricts(ctx, records, house, opts.PartitionSize)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: house join")
	}
	calc.Apply(records)

	var reports []ingest.Report
	if opts.CrashesPath != "" {
		reports = append(reports, crashRep)
	}
	if opts.FatalitiesPath != "" {
		reports = append(reports, fatalityRep)
	}

	log.Info("analysis: dataset ready",
		zap.Int("crashes", len(crashes)),
		zap.Int("fatalities", len(fatalities)),
		zap.Int("joined", len(records)),
		zap.String("damage_model", string(calc.Model())),
	)
	return &Dataset{Records: records, Senate: senate, House: house, Reports: reports, Model: calc.Model()}, nil
}

// NewDataset wraps records that are already joined and costed.
func NewDataset(records []model.Record, senate, house *boundary.Set) *Dataset {
	return &Dataset{Records: records, Senate: senate, House: house, Model: damage.ModelTiered}
}
