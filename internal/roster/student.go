package roster

import (
	"strconv"

	"academy/internal/sheet"
)

// AllBatches selects every student regardless of batch.
const AllBatches = "All"

// Student is one roster entry.
type Student struct {
	ID            int    `json:"id" validate:"gt=0"`
	Name          string `json:"name" validate:"required"`
	Batch         string `json:"batch" validate:"required"`
	StudentMobile string `json:"student_mobile" validate:"required"`
	ParentMobile  string `json:"parent_mobile" validate:"required"`
}

// studentFromRecord decodes a Students row.
func studentFromRecord(r sheet.Record) (Student, error) {
	id, err := r.Int("Student_ID")
	if err != nil {
		return Student{}, err
	}
	return Student{
		ID:            id,
		Name:          r.Get("Name"),
		Batch:         r.Get("Batch"),
		StudentMobile: r.Get("Student_Mobile"),
		ParentMobile:  r.Get("Parent_Mobile"),
	}, nil
}

// row encodes s in Students column order.
func (s Student) row() []string {
	return []string{strconv.Itoa(s.ID), s.Name, s.Batch, s.StudentMobile, s.ParentMobile}
}

// FilterBatch keeps students whose batch equals batch exactly and is still
// registered. AllBatches keeps everyone. Order is preserved.
func FilterBatch(students []Student, batch string, registry []string) []Student {
	if batch == AllBatches {
		out := make([]Student, len(students))
		copy(out, students)
		return out
	}
	registered := false
	for _, b := range registry {
		if b == batch {
			registered = true
			break
		}
	}
	if !registered {
		return nil
	}
	var out []Student
	for _, s := range students {
		if s.Batch == batch {
			out = append(out, s)
		}
	}
	return out
}

// Index maps student IDs to students.
func Index(students []Student) map[int]Student {
	m := make(map[int]Student, len(students))
	for _, s := range students {
		m[s.ID] = s
	}
	return m
}
