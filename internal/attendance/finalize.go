package attendance

import "academy/internal/roster"

// Absentee is one entry of the absent roll, carrying what the notification
// step needs.
type Absentee struct {
	StudentID     int    `json:"student_id"`
	Name          string `json:"name"`
	StudentMobile string `json:"student_mobile"`
	ParentMobile  string `json:"parent_mobile"`
}

// Final is the status that will be persisted for a student.
type Final struct {
	Student roster.Student `json:"student"`
	Default Status         `json:"default"`
	Status  Status         `json:"status"`
}

// Outcome of finalizing a grid.
type Outcome struct {
	Finals     []Final    `json:"finals"`
	AbsentRoll []Absentee `json:"absent_roll"`
}

// FinalStatus applies operator-present > leave default > absent.
func FinalStatus(def Status, present bool) Status {
	switch {
	case present:
		return Present
	case def == OnLeave:
		return OnLeave
	default:
		return Absent
	}
}

// Finalize combines defaults with the operator's "Present?" checkboxes.
// A student missing from present keeps the checkbox's initial value, which
// is checked only for a Present default.
func Finalize(defaults []Default, present map[int]bool) Outcome {
	out := Outcome{Finals: make([]Final, 0, len(defaults))}
	for _, d := range defaults {
		checked, ok := present[d.Student.ID]
		if !ok {
			checked = d.Status == Present
		}
		status := FinalStatus(d.Status, checked)
		out.Finals = append(out.Finals, Final{Student: d.Student, Default: d.Status, Status: status})
		if status == Absent {
			out.AbsentRoll = append(out.AbsentRoll, Absentee{
				StudentID:     d.Student.ID,
				Name:          d.Student.Name,
				StudentMobile: d.Student.StudentMobile,
				ParentMobile:  d.Student.ParentMobile,
			})
		}
	}
	return out
}
