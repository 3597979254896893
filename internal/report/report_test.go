package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/roster"
)

var (
	asha  = roster.Student{ID: 1, Name: "Asha", Batch: "Morning"}
	ravi  = roster.Student{ID: 2, Name: "Ravi", Batch: "Evening"}
	meera = roster.Student{ID: 3, Name: "Meera", Batch: "Morning"}
)

func row(date string, st roster.Student, status attendance.Status) attendance.Record {
	return attendance.Record{Date: date, Time: "09:00:00", StudentID: st.ID, Name: st.Name, Status: status, Subject: "Maths", Topic: "Ratios"}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarizeCounts(t *testing.T) {
	var rows []attendance.Record
	for i := 0; i < 7; i++ {
		rows = append(rows, row("2024-01-01", ravi, attendance.Present))
	}
	for i := 0; i < 3; i++ {
		rows = append(rows, row("2024-01-02", ravi, attendance.Absent))
	}
	rows = append(rows, row("2024-01-02", asha, attendance.Present))

	sum, err := Summarize(rows, ravi)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Total)
	assert.Equal(t, 7, sum.Present)
	assert.Equal(t, 3, sum.Absent)
	assert.Equal(t, 70.0, sum.Percentage)
	assert.Equal(t, []Slice{{"Present", 7, "green"}, {"Absent/Leave", 3, "red"}}, sum.Slices())
}

func TestSummarizeNoData(t *testing.T) {
	_, err := Summarize(nil, asha)
	assert.True(t, apperr.Is(err, apperr.NoData))

	_, err = Summarize([]attendance.Record{row("2024-01-01", ravi, attendance.Present)}, asha)
	assert.True(t, apperr.Is(err, apperr.NoData))
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		present, total int
		want           float64
	}{
		{0, 5, 0},
		{5, 5, 100},
		{7, 10, 70},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 6, 16.7},
		{1, 7, 14.3},
		{1, 8, 12.5},
		{1, 16, 6.2},
		{3, 16, 18.8},
		{5, 16, 31.2},
		{7, 16, 43.8},
		{1, 32, 3.1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Percentage(c.present, c.total), "%d/%d", c.present, c.total)
	}
}

func TestMatchesPrefersID(t *testing.T) {
	twin := roster.Student{ID: 9, Name: "Asha"}
	assert.True(t, Matches(row("2024-01-01", asha, attendance.Present), asha))
	assert.False(t, Matches(row("2024-01-01", asha, attendance.Present), twin), "same name, different ID")

	legacy := attendance.Record{Date: "2024-01-01", Name: "Asha", Status: attendance.Present}
	assert.True(t, Matches(legacy, asha))
	assert.True(t, Matches(legacy, twin), "legacy rows can only match by name")
}

func TestFilteredByDateAndBatch(t *testing.T) {
	students := []roster.Student{asha, ravi, meera}
	log := []attendance.Record{
		row("2023-12-31", asha, attendance.Present),
		row("2024-01-02", asha, attendance.Present),
		row("2024-01-02", ravi, attendance.Absent),
		row("2024-01-31", asha, attendance.Absent),
		row("2024-02-01", asha, attendance.Present),
	}
	out := Filtered(log, students, Filter{From: day(2024, 1, 1), To: day(2024, 1, 31), Batch: "Morning"})
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "2024-01-02", out.Rows[0].Date)
	assert.Equal(t, "2024-01-31", out.Rows[1].Date)
	for _, r := range out.Rows {
		assert.Equal(t, "Asha", r.Name)
	}
}

func TestFilteredIsIntersection(t *testing.T) {
	students := []roster.Student{asha, ravi, meera}
	var log []attendance.Record
	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-02-01", "garbage"} {
		for _, st := range students {
			log = append(log, row(d, st, attendance.Present))
		}
	}
	dates := Filter{From: day(2024, 1, 1), To: day(2024, 1, 31)}
	batch := Filter{Batch: "Morning"}
	student := Filter{StudentID: 3}
	all := Filter{From: dates.From, To: dates.To, Batch: batch.Batch, StudentID: student.StudentID}

	in := func(f Filter) map[int]bool {
		set := map[int]bool{}
		for _, r := range Filtered(log, students, f).Rows {
			for i := range log {
				if log[i] == r {
					set[i] = true
				}
			}
		}
		return set
	}
	d, b, s := in(dates), in(batch), in(student)
	want := []attendance.Record{}
	for i, r := range log {
		if d[i] && b[i] && s[i] {
			want = append(want, r)
		}
	}
	got := Filtered(log, students, all)
	assert.Equal(t, want, got.Rows)
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, 3, got.Skipped)

	assert.Zero(t, Filtered(log, students, batch).Skipped, "undated filters keep malformed dates")
}

func TestFilteredBatchUsesCurrentRoster(t *testing.T) {
	log := []attendance.Record{row("2024-01-01", asha, attendance.Present), row("2024-01-01", ravi, attendance.Present)}
	out := Filtered(log, []roster.Student{ravi}, Filter{Batch: "Morning"})
	assert.Empty(t, out.Rows, "a student no longer on the roster drops out of batch views")

	out = Filtered(log, nil, Filter{StudentID: 1})
	require.Len(t, out.Rows, 1, "the student filter works on ID even after removal")
}

func TestBatchStats(t *testing.T) {
	students := []roster.Student{asha, ravi, meera}
	log := []attendance.Record{
		row("2024-01-01", asha, attendance.Present),
		row("2024-01-02", asha, attendance.Absent),
		row("2024-01-01", ravi, attendance.Present),
	}
	stats := Batch(log, students, "Morning", Filter{})
	assert.Equal(t, "Morning", stats.Batch)
	require.Len(t, stats.Students, 1)
	assert.Equal(t, 50.0, stats.Students[0].Percentage)
	assert.Equal(t, []int{3}, stats.NoData)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50.0, stats.Percentage)

	all := Batch(log, students, roster.AllBatches, Filter{})
	assert.Len(t, all.Students, 2)
	assert.Equal(t, 3, all.Total)
}

func TestRenderers(t *testing.T) {
	doc := Document{Academy: "Academy", Title: "Attendance Report", Scope: "Batch: Morning", GeneratedAt: day(2024, 1, 31)}
	var rows []attendance.Record
	for i := 0; i < 80; i++ {
		status := attendance.Present
		if i%4 == 0 {
			status = attendance.Absent
		}
		rows = append(rows, row("2024-01-02", asha, status))
	}

	pdf, err := RenderAttendancePDF(doc, rows)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))

	empty, err := RenderAttendancePDF(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(empty[:4]))

	xlsx, err := RenderAttendanceXLSX(doc, rows)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(xlsx[:2]))
}
