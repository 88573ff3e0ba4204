package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crash-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas apply to every pooled connection through the DSN.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; in-memory databases are also per connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteDSN appends the connection pragmas to dsn, keeping any it already
// carries.
func sqliteDSN(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		name := p[:strings.IndexByte(p, '(')]
		if strings.Contains(dsn, "_pragma="+name) {
			continue
		}
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	group_by    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	params      TEXT,
	records     INTEGER NOT NULL DEFAULT 0,
	members     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	footprint   BLOB,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
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
	estimated_economic_damages  REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, key)
);

CREATE TABLE IF NOT EXISTS run_members (
	run_id                     TEXT NOT NULL REFERENCES runs(id),
	source                     TEXT NOT NULL,
	record_key                 TEXT NOT NULL,
	crash_date                 DATETIME NOT NULL,
	senate_district            TEXT NOT NULL DEFAULT '',
	house_district             TEXT NOT NULL DEFAULT '',
	estimated_economic_damages REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_members_run_id ON run_members(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, kind, group_by, status, params, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, string(run.Kind), run.GroupBy, string(run.Status), nullString(string(run.Params)), run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, records = ?, members = ?, error = ?, footprint = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.Records, run.Members, nullString(run.Error), run.Footprint, finished, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

const runColumns = `id, name, kind, group_by, status, params, records, members, error, footprint, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveSummaries replaces the summary rows of a run.
func (s *SQLiteStore) SaveSummaries(ctx context.Context, runID string, rows []model.DistrictSummary) error {
	insert := `INSERT INTO run_summaries (` + strings.Join(summaryInsertColumns, ", ") + `) VALUES (?` +
		strings.Repeat(", ?", len(summaryInsertColumns)-1) + `)`

	return s.inTx(ctx, "save summaries", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_summaries WHERE run_id = ?`, runID); err != nil {
			return eris.Wrapf(err, "sqlite: clear summaries %s", runID)
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare summary insert")
		}
		defer stmt.Close()
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, summaryRow(runID, i, row)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert summary %s/%s", runID, row.Key)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetSummaries(ctx context.Context, runID string) ([]model.DistrictSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, `+strings.Join(model.SummaryColumns, ", ")+` FROM run_summaries WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get summaries %s", runID)
	}
	defer rows.Close()

	var out []model.DistrictSummary
	for rows.Next() {
		var ds model.DistrictSummary
		if err := rows.Scan(summaryFields(&ds)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		out = append(out, ds)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get summaries iterate")
}

// SaveMembers replaces the member records of a run.
func (s *SQLiteStore) SaveMembers(ctx context.Context, runID string, records []model.Record) error {
	insert := `INSERT INTO run_members (` + strings.Join(memberColumns, ", ") + `) VALUES (?` +
		strings.Repeat(", ?", len(memberColumns)-1) + `)`

	return s.inTx(ctx, "save members", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_members WHERE run_id = ?`, runID); err != nil {
			return eris.Wrapf(err, "sqlite: clear members %s", runID)
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare member insert")
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, memberRow(runID, r)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert member %s/%s", runID, r.Key())
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", op)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", op)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r               model.Run
		kind, status    string
		params, errText sql.NullString
		footprint       []byte
		startedAt       time.Time
		finishedAt      sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Name, &kind, &r.GroupBy, &status, &params,
		&r.Records, &r.Members, &errText, &footprint, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Kind = model.AnalysisKind(kind)
	r.Status = model.RunStatus(status)
	if params.Valid {
		r.Params = []byte(params.String)
	}
	r.Error = errText.String
	r.Footprint = footprint
	r.StartedAt = startedAt.UTC()
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}
