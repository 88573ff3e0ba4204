// Package store persists analysis runs, their summary rows and the records
// each run summarized.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.AnalysisKind `json:"kind,omitempty"`
	Status model.RunStatus    `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveSummaries(ctx context.Context, runID string, rows []model.DistrictSummary) error
	GetSummaries(ctx context.Context, runID string) ([]model.DistrictSummary, error)
	SaveMembers(ctx context.Context, runID string, records []model.Record) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const defaultListLimit = 100

// summaryFields returns scan destinations in key + SummaryColumns order.
func summaryFields(s *model.DistrictSummary) []any {
	return []any{
		&s.Key,
		&s.TotalCrashes,
		&s.CrashesWithInjuries,
		&s.SumInjuries,
		&s.SumInjuriesIncapacitating,
		&s.PedestrianCrashes,
		&s.CyclistCrashes,
		&s.HitAndRunCrashes,
		&s.InjuriesInHitAndRun,
		&s.TotalFatalities,
		&s.CyclistFatalities,
		&s.DriverFatalities,
		&s.PassengerFatalities,
		&s.PedestrianFatalities,
		&s.MotorcyclistFatalities,
		&s.ScooterFatalities,
		&s.EstimatedEconomicDamages,
	}
}

// summaryRow is the stored form of one summary row.
func summaryRow(runID string, position int, s model.DistrictSummary) []any {
	return append([]any{runID, s.Key, position}, s.Values()...)
}

var summaryInsertColumns = append([]string{"run_id", "key", "position"}, model.SummaryColumns...)

var memberColumns = []string{"run_id", "source", "record_key", "crash_date", "senate_district", "house_district", "estimated_economic_damages"}

func memberRow(runID string, r model.Record) []any {
	return []any{runID, string(r.Source), r.Key(), r.Time.UTC(), r.Districts.Senate, r.Districts.House, r.Damages}
}
