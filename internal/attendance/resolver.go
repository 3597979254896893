package attendance

import (
	"time"

	"academy/internal/leave"
	"academy/internal/roster"
)

// Default is a student's system-computed status before operator override.
type Default struct {
	Student roster.Student `json:"student"`
	Status  Status         `json:"status"`
}

// Resolution is the default grid for one date.
type Resolution struct {
	Date     time.Time `json:"-"`
	Defaults []Default `json:"defaults"`
	// Skipped counts leave rows ignored because a date did not parse.
	Skipped int `json:"skipped_leave_rows"`
}

// Resolve marks each student On Leave when any of their intervals covers
// day and Present otherwise. Output order equals input order. A leave row
// with an unparseable bound contributes nothing and is counted once.
func Resolve(students []roster.Student, leaves []leave.Interval, day time.Time) Resolution {
	byStudent := make(map[int][]leave.Interval)
	for _, iv := range leaves {
		byStudent[iv.StudentID] = append(byStudent[iv.StudentID], iv)
	}

	res := Resolution{Date: day, Defaults: make([]Default, 0, len(students))}
	for _, st := range students {
		status := Present
		for _, iv := range byStudent[st.ID] {
			if covered, err := iv.Covers(day); err == nil && covered {
				status = OnLeave
				break
			}
		}
		res.Defaults = append(res.Defaults, Default{Student: st, Status: status})
	}
	res.Skipped = countMalformed(students, byStudent)
	return res
}

// countMalformed counts unparseable intervals that belong to the given
// students, once per row even if a student appears twice.
func countMalformed(students []roster.Student, byStudent map[int][]leave.Interval) int {
	seen := make(map[int]bool, len(students))
	n := 0
	for _, st := range students {
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		for _, iv := range byStudent[st.ID] {
			if _, _, err := iv.Span(); err != nil {
				n++
			}
		}
	}
	return n
}
