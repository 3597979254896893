package sheet

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"academy/internal/apperr"
	"academy/internal/store"
)

// exercise runs the same contract checks against any backend.
func exercise(t *testing.T, tb Tables) {
	t.Helper()
	ctx := context.Background()

	n, err := tb.Count(ctx, Students)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, tb.Append(ctx, Students, [][]string{
		{"1", "Asha", "Morning", "9000000001", "9100000001"},
		{"2", "Ravi", "Evening", "9000000002", "9100000002"},
		{"3", "Meera", "Morning", "9000000003", "9100000003"},
	}))
	recs, err := tb.Records(ctx, Students)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Ravi", recs[1].Get("Name"))
	id, err := recs[2].Int("Student_ID")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	idx, err := tb.Find(ctx, Students, "Student_ID", "2")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = tb.Find(ctx, Students, "Student_ID", "42")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	require.NoError(t, tb.Update(ctx, Students, idx, 1, []string{"Ravi K", "Morning"}))
	recs, err = tb.Records(ctx, Students)
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", recs[1].Get("Name"))
	assert.Equal(t, "Morning", recs[1].Get("Batch"))
	assert.Equal(t, "9000000002", recs[1].Get("Student_Mobile"), "cells outside the range are untouched")

	require.NoError(t, tb.Delete(ctx, Students, 0))
	recs, err = tb.Records(ctx, Students)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].Get("Student_ID"))
	assert.Equal(t, "3", recs[1].Get("Student_ID"))

	err = tb.Update(ctx, Students, 5, 0, []string{"x"})
	assert.True(t, apperr.Is(err, apperr.NotFound))
	err = tb.Delete(ctx, Students, -1)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// Short rows come back padded.
	require.NoError(t, tb.Append(ctx, AttendanceLog, [][]string{{"2024-03-01", "09:00:00", "", "Legacy", "Present", "Maths"}}))
	recs, err = tb.Records(ctx, AttendanceLog)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].Get("Session_ID"))
	assert.Equal(t, "Legacy", recs[0].Get("Name"))

	_, err = tb.Records(ctx, Table("Nope"))
	assert.Error(t, err)
}

func TestMemoryTables(t *testing.T) {
	exercise(t, NewMemory())
}

func TestWorkbookTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "academy.xlsx")
	w, err := OpenWorkbook(path)
	require.NoError(t, err)
	exercise(t, w)
	require.NoError(t, w.Close())

	// Everything written is on disk.
	w, err = OpenWorkbook(path)
	require.NoError(t, err)
	defer w.Close()
	n, err := w.Count(context.Background(), Students)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = w.Count(context.Background(), FeesLog)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresTables(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Client.ExecContext(ctx, "DROP TABLE IF EXISTS sheet_rows")
	require.NoError(t, err)

	p, err := NewPostgres(ctx, db.Client)
	require.NoError(t, err)
	exercise(t, p)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "H", columnLetter(7))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AB", columnLetter(27))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.True(t, apperr.Is(classify("op", &googleapi.Error{Code: http.StatusTooManyRequests}), apperr.RateLimited))
	assert.True(t, apperr.Is(classify("op", &googleapi.Error{Code: http.StatusNotFound}), apperr.NotFound))
	assert.True(t, apperr.Is(classify("op", &googleapi.Error{Code: http.StatusBadRequest}), apperr.Validation))
	assert.True(t, apperr.Is(classify("op", &googleapi.Error{Code: http.StatusInternalServerError}), apperr.Connection))
	assert.True(t, apperr.Is(classify("op", errors.New("dial tcp: refused")), apperr.Connection))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-02-29", FormatDate(d))
	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}
