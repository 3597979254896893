package roster

import (
	"context"
	"fmt"
	"strings"

	"academy/internal/apperr"
	"academy/internal/validate"
)

// Service owns every mutation of the roster and the batch registry.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// StudentInput is the editable part of a student profile.
type StudentInput struct {
	Name          string `json:"name" validate:"required"`
	Batch         string `json:"batch" validate:"required"`
	StudentMobile string `json:"student_mobile" validate:"required"`
	ParentMobile  string `json:"parent_mobile" validate:"required"`
}

func (in StudentInput) trimmed() StudentInput {
	return StudentInput{
		Name:          strings.TrimSpace(in.Name),
		Batch:         strings.TrimSpace(in.Batch),
		StudentMobile: strings.TrimSpace(in.StudentMobile),
		ParentMobile:  strings.TrimSpace(in.ParentMobile),
	}
}

// Students lists the roster filtered by batch; AllBatches or "" returns
// everyone.
func (s *Service) Students(ctx context.Context, batch string) ([]Student, error) {
	students, err := s.repo.Students(ctx)
	if err != nil {
		return nil, err
	}
	if batch == "" || batch == AllBatches {
		return students, nil
	}
	registry, err := s.repo.Batches(ctx)
	if err != nil {
		return nil, err
	}
	return FilterBatch(students, batch, registry), nil
}

// Student returns one student.
func (s *Service) Student(ctx context.Context, id int) (Student, error) {
	return s.repo.Student(ctx, id)
}

// StudentByName returns the first student with exactly this name.
func (s *Service) StudentByName(ctx context.Context, name string) (Student, error) {
	students, err := s.repo.Students(ctx)
	if err != nil {
		return Student{}, err
	}
	name = strings.TrimSpace(name)
	for _, st := range students {
		if st.Name == name {
			return st, nil
		}
	}
	return Student{}, apperr.New(apperr.NotFound, "roster", fmt.Sprintf("no student named %q", name))
}

// Add registers a new student. Duplicate IDs and unknown batches are
// rejected before anything is written.
func (s *Service) Add(ctx context.Context, id int, in StudentInput) (Student, error) {
	in = in.trimmed()
	st := Student{ID: id, Name: in.Name, Batch: in.Batch, StudentMobile: in.StudentMobile, ParentMobile: in.ParentMobile}
	if err := validate.Struct("add student", st); err != nil {
		return Student{}, err
	}
	students, err := s.repo.Students(ctx)
	if err != nil {
		return Student{}, err
	}
	for _, existing := range students {
		if existing.ID == id {
			return Student{}, apperr.Invalid("add student", "id", "unique", fmt.Sprintf("student id %d already exists", id))
		}
	}
	if err := s.requireBatch(ctx, "add student", st.Batch); err != nil {
		return Student{}, err
	}
	if err := s.repo.Insert(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// Update rewrites name, batch and contacts of an existing student.
func (s *Service) Update(ctx context.Context, id int, in StudentInput) (Student, error) {
	in = in.trimmed()
	if err := validate.Struct("update student", in); err != nil {
		return Student{}, err
	}
	if err := s.requireBatch(ctx, "update student", in.Batch); err != nil {
		return Student{}, err
	}
	st := Student{ID: id, Name: in.Name, Batch: in.Batch, StudentMobile: in.StudentMobile, ParentMobile: in.ParentMobile}
	if err := s.repo.Replace(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// Delete removes a student. Log rows keep their name snapshots.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Remove(ctx, id)
}

// Batches lists the registry.
func (s *Service) Batches(ctx context.Context) ([]string, error) {
	return s.repo.Batches(ctx)
}

// AddBatch appends a batch name. The registry only grows.
func (s *Service) AddBatch(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid("add batch", "name", "required", "batch name is required")
	}
	if name == AllBatches {
		return apperr.Invalid("add batch", "name", "reserved", fmt.Sprintf("%q is reserved", AllBatches))
	}
	batches, err := s.repo.Batches(ctx)
	if err != nil {
		return err
	}
	for _, b := range batches {
		if b == name {
			return apperr.Invalid("add batch", "name", "unique", fmt.Sprintf("batch %q already exists", name))
		}
	}
	return s.repo.InsertBatch(ctx, name)
}

func (s *Service) requireBatch(ctx context.Context, op, batch string) error {
	batches, err := s.repo.Batches(ctx)
	if err != nil {
		return err
	}
	for _, b := range batches {
		if b == batch {
			return nil
		}
	}
	return apperr.Invalid(op, "batch", "registered", fmt.Sprintf("batch %q is not registered", batch))
}
