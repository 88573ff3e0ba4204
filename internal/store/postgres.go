package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/db"
	"github.com/sells-group/crash-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	group_by    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	params      JSONB,
	records     INTEGER NOT NULL DEFAULT 0,
	members     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	footprint   BYTEA,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_summaries (
	run_id                      TEXT NOT NULL REFERENCES runs(id),
	key                         TEXT NOT NULL,
	position                    INTEGER NOT NULL,
	total_crashes               INTEGER NOT NULL DEFAULT 0,
	crashes_with_injuries       INTEGER NOT NULL DEFAULT 0,
	sum_injuries                INTEGER NOT NULL DEFAULT 0,
	sum_injuries_incapacitating INTEGER NOT NULL DEFAULT 0,
	pedestrian_crashes          INTEGER NOT NULL DEFAULT 0,
	cyclist_crashes             INTEGER NOT NULL DEFAULT 0,
	hit_and_run_crashes         INTEGER NOT NULL DEFAULT 0,
	injuries_in_hit_and_run     INTEGER NOT NULL DEFAULT 0,
	total_fatalities            INTEGER NOT NULL DEFAULT 0,
	cyclist_fatalities          INTEGER NOT NULL DEFAULT 0,
	driver_fatalities           INTEGER NOT NULL DEFAULT 0,
	passenger_fatalities        INTEGER NOT NULL DEFAULT 0,
	pedestrian_fatalities       INTEGER NOT NULL DEFAULT 0,
	motorcyclist_fatalities     INTEGER NOT NULL DEFAULT 0,
	scooter_fatalities          INTEGER NOT NULL DEFAULT 0,
	estimated_economic_damages  DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS run_members (
	run_id                     TEXT NOT NULL REFERENCES runs(id),
	source                     TEXT NOT NULL,
	record_key                 TEXT NOT NULL,
	crash_date                 TIMESTAMPTZ NOT NULL,
	senate_district            TEXT NOT NULL DEFAULT '',
	house_district             TEXT NOT NULL DEFAULT '',
	estimated_economic_damages DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_members_run_id ON run_members(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	var params []byte
	if len(run.Params) > 0 {
		params = run.Params
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, name, kind, group_by, status, params, started_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Name, string(run.Kind), run.GroupBy, string(run.Status), params, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, records = $2, members = $3, error = $4, footprint = $5, finished_at = $6 WHERE id = $7`,
		string(run.Status), run.Records, run.Members, errText, run.Footprint, run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: finish run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveSummaries upserts the summary rows of a run keyed by (run_id, key).
func (s *PostgresStore) SaveSummaries(ctx context.Context, runID string, rows []model.DistrictSummary) error {
	data := make([][]any, len(rows))
	for i, row := range rows {
		data[i] = summaryRow(runID, i, row)
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "run_summaries",
		Columns:      summaryInsertColumns,
		ConflictKeys: []string{"run_id", "key"},
	}, data)
	return eris.Wrapf(err, "postgres: save summaries %s", runID)
}

func (s *PostgresStore) GetSummaries(ctx context.Context, runID string) ([]model.DistrictSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, `+strings.Join(model.SummaryColumns, ", ")+` FROM run_summaries WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get summaries %s", runID)
	}
	defer rows.Close()

	var out []model.DistrictSummary
	for rows.Next() {
		var ds model.DistrictSummary
		if err := rows.Scan(summaryFields(&ds)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get summaries iterate")
}

// SaveMembers replaces the member records of a run. Rows are loaded with COPY.
func (s *PostgresStore) SaveMembers(ctx context.Context, runID string, records []model.Record) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM run_members WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear members %s", runID)
	}
	data := make([][]any, len(records))
	for i, r := range records {
		data[i] = memberRow(runID, r)
	}
	_, err := db.CopyFrom(ctx, s.pool, "run_members", memberColumns, data)
	return eris.Wrapf(err, "postgres: save members %s", runID)
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var (
		r            model.Run
		kind, status string
		params       []byte
		errText      *string
		footprint    []byte
		startedAt    time.Time
		finishedAt   *time.Time
	)
	if err := row.Scan(&r.ID, &r.Name, &kind, &r.GroupBy, &status, &params,
		&r.Records, &r.Members, &errText, &footprint, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	r.Kind = model.AnalysisKind(kind)
	r.Status = model.RunStatus(status)
	r.Params = params
	if errText != nil {
		r.Error = *errText
	}
	r.Footprint = footprint
	r.StartedAt = startedAt.UTC()
	if finishedAt != nil {
		t := finishedAt.UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}
