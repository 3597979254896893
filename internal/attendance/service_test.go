package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
	"academy/internal/leave"
	"academy/internal/metrics"
	"academy/internal/roster"
	"academy/internal/session"
	"academy/internal/sheet"
)

type fixture struct {
	svc *Service
	rs  *roster.Service
	ls  *leave.Service
	mem *sheet.Memory
	m   *metrics.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mem := sheet.NewMemory()
	m := metrics.New(nil)
	rs := roster.NewService(roster.NewRepository(mem, m, nil))
	ls := leave.NewService(leave.NewRepository(mem, m, nil), rs)
	require.NoError(t, rs.AddBatch(ctx, "Morning"))
	require.NoError(t, rs.AddBatch(ctx, "Evening"))
	for _, st := range []roster.Student{asha, ravi, {ID: 3, Name: "Meera", Batch: "Morning", StudentMobile: "9000000003", ParentMobile: "9100000003"}} {
		_, err := rs.Add(ctx, st.ID, roster.StudentInput{Name: st.Name, Batch: st.Batch, StudentMobile: st.StudentMobile, ParentMobile: st.ParentMobile})
		require.NoError(t, err)
	}
	svc := NewService(rs, ls, NewLog(mem), NewMemoryClaims(), Options{
		Metrics: m,
		Now:     func() time.Time { return time.Date(2024, 1, 3, 9, 30, 15, 0, time.UTC) },
	})
	return fixture{svc: svc, rs: rs, ls: ls, mem: mem, m: m}
}

func TestStartBuildsGrid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ls.Record(ctx, leave.Request{StudentID: 1, StartDate: "2024-01-01", EndDate: "2024-01-05", Reason: "fever"})
	require.NoError(t, err)

	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", g.State.Date)
	assert.Equal(t, []int{1, 3}, g.State.StudentIDs)
	assert.Equal(t, 0, g.State.LogVersion)
	assert.NotEmpty(t, g.State.ID)
	assert.Equal(t, map[int]Status{1: OnLeave, 3: Present}, statuses(g.Resolution))
	assert.Empty(t, g.Warning)
}

func TestStartEmptyBatchWarns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.rs.AddBatch(ctx, "Weekend"))

	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Weekend")
	require.NoError(t, err)
	assert.Empty(t, g.Resolution.Defaults)
	assert.NotEmpty(t, g.Warning)

	_, err = f.svc.Start(ctx, date(2024, 1, 3), " ")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSubmitAppendsOneRowPerStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ls.Record(ctx, leave.Request{StudentID: 1, StartDate: "2024-01-01", EndDate: "2024-01-05"})
	require.NoError(t, err)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, g.State, Submission{Subject: "Maths", Topic: " Fractions ", Present: map[int]bool{3: false}})
	require.NoError(t, err)
	assert.True(t, res.State.Submitted)
	require.Len(t, res.Records, 2)
	assert.Equal(t, Record{Date: "2024-01-03", Time: "09:30:15", StudentID: 1, Name: "Asha", Status: OnLeave, Subject: "Maths", Topic: "Fractions", SessionID: g.State.ID}, res.Records[0])
	assert.Equal(t, Absent, res.Records[1].Status)
	require.Len(t, res.Outcome.AbsentRoll, 1)
	assert.Equal(t, 3, res.Outcome.AbsentRoll[0].StudentID)

	logged, err := f.svc.Log().Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Records, logged, "every persisted field reads back verbatim")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.AttendanceRows.WithLabelValues(string(Absent))))
}

func TestSubmitTwiceIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, g.State, Submission{Subject: "Maths"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, res.State, Submission{Subject: "Maths"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// A replayed pre-submit state is caught by the claim.
	_, err = f.svc.Submit(ctx, g.State, Submission{Subject: "Maths"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	n, err := f.svc.Log().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSubmitReplayAfterRestartIsRefusedByLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, g.State, Submission{Subject: "Maths"})
	require.NoError(t, err)

	// Fresh claim set, same log: the Session_ID column still refuses it.
	fresh := NewService(f.rs, f.ls, NewLog(f.mem), NewMemoryClaims(), Options{})
	_, err = fresh.Submit(ctx, g.State, Submission{Subject: "Maths"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestSubmitConflictsWithConcurrentSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	second, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, first.State, Submission{Subject: "Maths"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, second.State, Submission{Subject: "Maths"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// A refused session stays claimed; a fresh grid may record another subject.
	_, err = f.svc.Submit(ctx, second.State, Submission{Subject: "History"})
	require.True(t, apperr.Is(err, apperr.Conflict))

	third, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, third.State, Submission{Subject: "History"})
	require.NoError(t, err)
}

func TestSubmitValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, g.State, Submission{})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Submit(ctx, g.State, Submission{Subject: "Astrology"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Submit(ctx, g.State, Submission{Subject: "Maths", Present: map[int]bool{2: true}})
	require.True(t, apperr.Is(err, apperr.Validation), "Ravi is not in the Morning grid")

	n, err := f.svc.Log().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmitDropsStudentsWhoLeft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	require.NoError(t, f.rs.Delete(ctx, 3))

	res, err := f.svc.Submit(ctx, g.State, Submission{Subject: "Maths"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].StudentID)
}

func TestAcknowledgeOpensFreshSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.svc.Start(ctx, date(2024, 1, 3), "Morning")
	require.NoError(t, err)
	res, err := f.svc.Submit(ctx, g.State, Submission{Subject: "Maths"})
	require.NoError(t, err)

	next, err := f.svc.Acknowledge(ctx, res.State)
	require.NoError(t, err)
	assert.NotEqual(t, g.State.ID, next.State.ID)
	assert.False(t, next.State.Submitted)
	assert.Equal(t, "Morning", next.State.Batch)
	assert.Equal(t, 2, next.State.LogVersion)
}

func TestCheckConflictsIgnoresRowsBeforeVersion(t *testing.T) {
	existing := []Record{{Date: "2024-01-03", StudentID: 1, Subject: "Maths", SessionID: "old"}}
	st := newState("new", 1)
	err := checkConflicts(existing, st, []Record{{Date: "2024-01-03", StudentID: 1, Subject: "Maths"}})
	assert.NoError(t, err, "rows already visible when the grid opened do not conflict")

	st.LogVersion = 0
	err = checkConflicts(existing, st, []Record{{Date: "2024-01-03", StudentID: 1, Subject: "Maths"}})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func newState(id string, version int) session.State {
	return session.State{ID: id, Date: "2024-01-03", Batch: "Morning", StudentIDs: []int{1}, LogVersion: version}
}
