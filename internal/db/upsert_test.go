package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaryUpsert = UpsertConfig{
	Table:        "run_summaries",
	Columns:      []string{"run_id", "key", "total_crashes"},
	ConflictKeys: []string{"run_id", "key"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, summaryUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "run_summaries",
		ConflictKeys: []string{"run_id"},
	}, [][]any{{"r1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "run_summaries",
		Columns: []string{"run_id", "key"},
	}, [][]any{{"r1", "6"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_run_summaries" \(LIKE "run_summaries"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_summaries"}, summaryUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("run_id", "key"\) DO UPDATE SET "total_crashes" = EXCLUDED."total_crashes"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, summaryUpsert, [][]any{{"r1", "6", 3}, {"r1", "ALL", 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_summaries"}, summaryUpsert.Columns).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, summaryUpsert, [][]any{{"r1", "6", 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for run_summaries")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, `"simple"`, identifier("simple").Sanitize())
	assert.Equal(t, `"crash"."runs"`, identifier("crash.runs").Sanitize())
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"run_id", "key", "total_crashes"`, quoteAndJoin(summaryUpsert.Columns))
}
