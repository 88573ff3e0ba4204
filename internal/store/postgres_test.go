package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crash-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func runColumnNames() []string {
	return strings.Split(runColumns, ", ")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := testRun("run-1", model.AnalysisCorridor, started)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "Western Ave", "corridor", "senate", "running", []byte(run.Params), started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun("run-1", model.AnalysisZone, time.Now().UTC())
	run.Status = model.RunStatusComplete

	mock.ExpectExec(`UPDATE runs SET status = \$1`).
		WithArgs("complete", 0, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun("ghost", model.AnalysisZone, time.Now().UTC())

	mock.ExpectExec(`UPDATE runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), run)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	footprint := []byte{0x01, 0x06}

	mock.ExpectQuery(`SELECT id, name, kind, group_by, status, params, records, members, error, footprint, started_at, finished_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumnNames()).AddRow(
			"run-1", "Western Ave", "corridor", "senate", "complete", []byte(`{"a":1}`),
			120, 14, nil, footprint, started, &finished,
		))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisCorridor, got.Kind)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 120, got.Records)
	assert.Equal(t, 14, got.Members)
	assert.Empty(t, got.Error)
	assert.Equal(t, footprint, got.Footprint)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs WHERE true AND kind = \$1 AND status = \$2 ORDER BY started_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("corridor", "failed", 5, 10).
		WillReturnRows(pgxmock.NewRows(runColumnNames()).
			AddRow("r2", "Broken", "corridor", "senate", "failed", nil, 0, 0, "overpass: returned status 504", nil, started, nil))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Kind: model.AnalysisCorridor, Status: model.RunStatusFailed, Limit: 5, Offset: 10,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "overpass: returned status 504", runs[0].Error)
	assert.Nil(t, runs[0].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ORDER BY started_at DESC LIMIT \$1$`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(runColumnNames()))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSummaries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_summaries"}, summaryInsertColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "run_summaries"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := []model.DistrictSummary{{Key: "6", TotalCrashes: 2}, {Key: model.KeyAll, TotalCrashes: 2}}
	require.NoError(t, s.SaveSummaries(context.Background(), "run-1", rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSummaries_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	require.NoError(t, s.SaveSummaries(context.Background(), "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSummaries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := append([]string{"key"}, model.SummaryColumns...)
	all := model.DistrictSummary{Key: model.KeyAll, TotalCrashes: 4, SumInjuries: 3, EstimatedEconomicDamages: 118600}
	mock.ExpectQuery(`FROM run_summaries WHERE run_id = \$1 ORDER BY position`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(append([]any{all.Key}, all.Values()...)...))

	got, err := s.GetSummaries(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []model.DistrictSummary{all}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMembers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM run_members WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"run_members"}, memberColumns).WillReturnResult(1)

	records := []model.Record{{Source: model.SourceCrash, CrashID: "c1", Time: time.Now()}}
	require.NoError(t, s.SaveMembers(context.Background(), "run-1", records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMembers_DeleteError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM run_members`).
		WithArgs("run-1").
		WillReturnError(errors.New("connection reset"))

	err := s.SaveMembers(context.Background(), "run-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear members")
	assert.NoError(t, mock.ExpectationsWereMet())
}
