package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/leave"
	"academy/internal/roster"
)

var (
	asha = roster.Student{ID: 1, Name: "Asha", Batch: "Morning", StudentMobile: "9000000001", ParentMobile: "9100000001"}
	ravi = roster.Student{ID: 2, Name: "Ravi", Batch: "Evening", StudentMobile: "9000000002", ParentMobile: "9100000002"}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func statuses(res Resolution) map[int]Status {
	out := make(map[int]Status, len(res.Defaults))
	for _, d := range res.Defaults {
		out[d.Student.ID] = d.Status
	}
	return out
}

func TestResolveLeaveCoverage(t *testing.T) {
	leaves := []leave.Interval{{StudentID: 1, Name: "Asha", StartDate: "2024-01-01", EndDate: "2024-01-05", Reason: "fever"}}
	res := Resolve([]roster.Student{asha, ravi}, leaves, date(2024, 1, 3))

	assert.Equal(t, map[int]Status{1: OnLeave, 2: Present}, statuses(res))
	require.Len(t, res.Defaults, 2)
	assert.Equal(t, 1, res.Defaults[0].Student.ID, "roster order is kept")
	assert.Zero(t, res.Skipped)
}

func TestResolveIndependentOfIntervalOrder(t *testing.T) {
	covering := leave.Interval{StudentID: 1, StartDate: "2024-01-01", EndDate: "2024-01-10"}
	others := []leave.Interval{
		{StudentID: 1, StartDate: "2023-12-01", EndDate: "2023-12-02"},
		{StudentID: 1, StartDate: "bad", EndDate: "2024-01-10"},
		{StudentID: 1, StartDate: "2024-02-01", EndDate: "2024-02-03"},
	}
	for pos := 0; pos <= len(others); pos++ {
		var set []leave.Interval
		set = append(set, others[:pos]...)
		set = append(set, covering)
		set = append(set, others[pos:]...)
		for d := 1; d <= 10; d++ {
			res := Resolve([]roster.Student{asha}, set, date(2024, 1, d))
			assert.Equal(t, OnLeave, res.Defaults[0].Status, "pos=%d day=%d", pos, d)
		}
	}
}

func TestResolveIgnoresMalformedLeave(t *testing.T) {
	leaves := []leave.Interval{
		{StudentID: 1, StartDate: "not-a-date", EndDate: "2024-01-05"},
		{StudentID: 1, StartDate: "2024-03-01", EndDate: "2024-03-02"},
	}
	for _, d := range []time.Time{date(2024, 1, 3), date(2024, 1, 5), date(2024, 2, 1)} {
		res := Resolve([]roster.Student{asha}, leaves, d)
		assert.Equal(t, Present, res.Defaults[0].Status)
		assert.Equal(t, 1, res.Skipped)
	}
	res := Resolve([]roster.Student{asha}, leaves, date(2024, 3, 2))
	assert.Equal(t, OnLeave, res.Defaults[0].Status, "valid rows still apply")
}

func TestResolveEmptyRoster(t *testing.T) {
	res := Resolve(nil, nil, date(2024, 1, 1))
	assert.NotNil(t, res.Defaults)
	assert.Empty(t, res.Defaults)
}
