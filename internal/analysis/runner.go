package analysis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crash-cli/internal/corridor"
	"github.com/sells-group/crash-cli/internal/enrich"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/summary"
)

const footprintSteps = 8

// Recorder persists runs and their summary rows.
type Recorder interface {
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	SaveSummaries(ctx context.Context, runID string, rows []model.DistrictSummary) error
	SaveMembers(ctx context.Context, runID string, records []model.Record) error
}

// Result is the outcome of one analysis.
type Result struct {
	RunID string
	Spec  Spec

	// Records is every record of the dataset, with InBuffer set for corridor
	// and zone analyses.
	Records []model.Record
	// Members is the subset that was summarized.
	Members   []model.Record
	Summaries []model.DistrictSummary
	Total     model.DistrictSummary

	Corridor *corridor.Corridor
	Buffer   *geo.Buffer

	Err error
}

// Runner executes analyses over a prepared Dataset.
type Runner struct {
	data      *Dataset
	corridors corridor.Resolver
	recorder  Recorder
	opts      Options
}

// NewRunner creates a Runner. corridors may be nil when no corridor
// analysis will run; recorder may be nil to skip persistence.
func NewRunner(data *Dataset, corridors corridor.Resolver, recorder Recorder, opts Options) *Runner {
	return &Runner{data: data, corridors: corridors, recorder: recorder, opts: opts}
}

// Run executes one analysis.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(
		zap.String("component", "analysis"),
		zap.String("analysis", spec.Name),
		zap.String("kind", string(spec.Kind)),
	)

	run, err := r.startRun(ctx, spec)
	if err != nil {
		return nil, err
	}

	res, err := r.execute(ctx, spec)
	if err != nil {
		r.finishRun(ctx, run, nil, err)
		log.Error("analysis: failed", zap.Error(err))
		return nil, err
	}
	res.RunID = run.ID
	r.finishRun(ctx, run, res, nil)

	log.Info("analysis: complete",
		zap.String("run_id", run.ID),
		zap.Int("members", len(res.Members)),
		zap.Int("rows", len(res.Summaries)),
		zap.Float64("damages", res.Total.EstimatedEconomicDamages),
	)
	return res, nil
}

func (r *Runner) execute(ctx context.Context, spec Spec) (*Result, error) {
	res := &Result{Spec: spec}

	switch spec.Kind {
	case model.AnalysisDistricts:
		res.Records = r.data.Records
		res.Members = r.data.Records

	case model.AnalysisCorridor:
		if r.corridors == nil {
			return nil, eris.Errorf("analysis: corridor %q needs a corridor resolver", spec.Name)
		}
		c, err := corridor.Load(ctx, r.corridors, spec.Name, spec.Region, spec.Filter)
		if err != nil {
			return nil, err
		}
		buf, err := c.Buffer(spec.BufferFeet)
		if err != nil {
			return nil, err
		}
		res.Corridor, res.Buffer = c, buf

	case model.AnalysisZone:
		frame := geo.NewPlanar(spec.Longitude, spec.Latitude)
		center, err := geo.LonLat(spec.Longitude, spec.Latitude).To(frame)
		if err != nil {
			return nil, err
		}
		buf, err := geo.NewRadiusBuffer(center, spec.RadiusFeet*geo.FeetToMeters)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: zone %q", spec.Name)
		}
		res.Buffer = buf
	}

	if res.Buffer != nil {
		classified, err := enrich.ClassifyMembership(ctx, r.data.Records, res.Buffer, r.opts.PartitionSize)
		if err != nil {
			return nil, err
		}
		res.Records = classified
		res.Members = enrich.Members(classified)
	}

	res.Summaries = summary.Aggregate(res.Members, spec.GroupBy)
	res.Total = summary.Total(res.Summaries)
	return res, nil
}

// RunAll executes specs concurrently, at most opts.Concurrency at a time.
// A failing analysis does not stop the others; its error is on its Result.
// Results are in spec order.
func (r *Runner) RunAll(ctx context.Context, specs []Spec) []*Result {
	results := make([]*Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, spec := range specs {
		g.Go(func() error {
			res, err := r.Run(gctx, spec)
			if err != nil {
				results[i] = &Result{Spec: spec, Err: err}
				return nil // don't fail the group
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) startRun(ctx context.Context, spec Spec) (*model.Run, error) {
	params, err := json.Marshal(struct {
		Spec        Spec   `json:"spec"`
		DamageModel string `json:"damage_model"`
		Rates       any    `json:"rates"`
		Start       string `json:"start_date,omitempty"`
		End         string `json:"end_date,omitempty"`
	}{spec, string(r.data.Model), r.opts.Rates, dateString(r.opts.Start), dateString(r.opts.End)})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: encode params")
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Name:      spec.Name,
		Kind:      spec.Kind,
		GroupBy:   string(spec.GroupBy),
		Status:    model.RunStatusRunning,
		Params:    params,
		StartedAt: time.Now().UTC(),
	}
	if r.recorder == nil {
		return run, nil
	}
	if err := r.recorder.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrapf(err, "analysis: record run %s", spec.Name)
	}
	return run, nil
}

// finishRun records the outcome. Store failures are logged, not returned;
// the analysis result stands on its own.
func (r *Runner) finishRun(ctx context.Context, run *model.Run, res *Result, runErr error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = model.RunStatusComplete
		run.Records = len(res.Records)
		run.Members = len(res.Members)
		if res.Buffer != nil {
			run.Footprint = footprint(res.Buffer)
		}
	}
	if r.recorder == nil {
		return
	}

	log := zap.L().With(zap.String("run_id", run.ID))
	if res != nil {
		if err := r.recorder.SaveSummaries(ctx, run.ID, res.Summaries); err != nil {
			log.Warn("analysis: save summaries failed", zap.Error(err))
			run.Status = model.RunStatusFailed
			run.Error = err.Error()
		} else if err := r.recorder.SaveMembers(ctx, run.ID, res.Members); err != nil {
			log.Warn("analysis: save members failed", zap.Error(err))
			run.Status = model.RunStatusFailed
			run.Error = err.Error()
		}
	}
	if err := r.recorder.FinishRun(ctx, run); err != nil {
		log.Warn("analysis: finish run failed", zap.Error(err))
	}
}

// footprint encodes the buffer outline for storage. Failure only loses the
// geometry.
func footprint(buf *geo.Buffer) []byte {
	outline, err := buf.GeographicOutline(footprintSteps)
	if err != nil {
		zap.L().Warn("analysis: footprint outline failed", zap.Error(err))
		return nil
	}
	b, err := ewkb.Marshal(outline, binary.LittleEndian)
	if err != nil {
		zap.L().Warn("analysis: footprint encode failed", zap.Error(err))
		return nil
	}
	return b
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
