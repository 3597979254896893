package report

import (
	"time"

	"academy/internal/attendance"
	"academy/internal/roster"
	"academy/internal/sheet"
)

// Filter narrows an export. Zero values disable a filter; Batch may also
// be roster.AllBatches.
type Filter struct {
	From      time.Time
	To        time.Time
	Batch     string
	StudentID int
}

func (f Filter) dated() bool { return !f.From.IsZero() || !f.To.IsZero() }

// Export is the filtered slice of the log.
type Export struct {
	Rows []attendance.Record `json:"rows"`
	// Skipped counts rows dropped because their date did not parse.
	Skipped int `json:"skipped_rows"`
}

// Filtered applies the date, batch and student filters to records and
// keeps log order. Batch membership comes from the roster snapshot, so a
// student removed from the roster drops out of batch views. Rows with an
// unparseable date are out of range whenever a date bound is set.
func Filtered(records []attendance.Record, students []roster.Student, f Filter) Export {
	var batchMembers []roster.Student
	useBatch := f.Batch != "" && f.Batch != roster.AllBatches
	if useBatch {
		for _, st := range students {
			if st.Batch == f.Batch {
				batchMembers = append(batchMembers, st)
			}
		}
	}
	var target *roster.Student
	if f.StudentID > 0 {
		st := roster.Student{ID: f.StudentID}
		for _, s := range students {
			if s.ID == f.StudentID {
				st = s
				break
			}
		}
		target = &st
	}

	out := Export{Rows: []attendance.Record{}}
	for _, r := range records {
		if f.dated() {
			day, err := sheet.ParseDate(r.Date)
			if err != nil {
				out.Skipped++
				continue
			}
			if !f.From.IsZero() && day.Before(dateOnly(f.From)) {
				continue
			}
			if !f.To.IsZero() && day.After(dateOnly(f.To)) {
				continue
			}
		}
		if useBatch && !memberOf(r, batchMembers) {
			continue
		}
		if target != nil && !Matches(r, *target) {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

func memberOf(r attendance.Record, members []roster.Student) bool {
	for _, st := range members {
		if Matches(r, st) {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
