package report

import (
	"fmt"
	"math"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/roster"
)

// Summary is one student's attendance over a set of log rows.
type Summary struct {
	StudentID  int     `json:"student_id"`
	Name       string  `json:"name"`
	Total      int     `json:"total_sessions"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	OnLeave    int     `json:"on_leave"`
	Percentage float64 `json:"percentage"`
}

// Slice is one wedge of the attendance pie chart.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// Slices splits the summary into Present and Absent/Leave.
func (s Summary) Slices() []Slice {
	return []Slice{
		{Label: "Present", Value: s.Present, Color: "green"},
		{Label: "Absent/Leave", Value: s.Total - s.Present, Color: "red"},
	}
}

// Matches reports whether a log row belongs to st. Rows carrying an ID are
// matched by ID; legacy rows without one fall back to the name snapshot.
func Matches(r attendance.Record, st roster.Student) bool {
	if r.StudentID > 0 {
		return r.StudentID == st.ID
	}
	return r.Name == st.Name
}

// Percentage returns 100*present/total rounded to one decimal place. An
// exact tie rounds to the even digit, so 1/16 is 6.2 and 3/16 is 18.8.
// total must be positive.
func Percentage(present, total int) float64 {
	return math.RoundToEven(float64(present)*1000/float64(total)) / 10
}

// Summarize counts st's rows. With no rows it returns a NoData error
// instead of dividing by zero.
func Summarize(records []attendance.Record, st roster.Student) (Summary, error) {
	sum := Summary{StudentID: st.ID, Name: st.Name}
	for _, r := range records {
		if !Matches(r, st) {
			continue
		}
		sum.Total++
		switch r.Status {
		case attendance.Present:
			sum.Present++
		case attendance.Absent:
			sum.Absent++
		case attendance.OnLeave:
			sum.OnLeave++
		}
	}
	if sum.Total == 0 {
		return sum, apperr.New(apperr.NoData, "summarize", fmt.Sprintf("no attendance records for %s", st.Name))
	}
	sum.Percentage = Percentage(sum.Present, sum.Total)
	return sum, nil
}
