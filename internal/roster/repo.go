package roster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"academy/internal/apperr"
	"academy/internal/metrics"
	"academy/internal/sheet"
)

// Repository reads and writes the Students and Batches tables.
type Repository struct {
	tables  sheet.Tables
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewRepository creates a repo.
func NewRepository(tables sheet.Tables, m *metrics.Metrics, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{tables: tables, metrics: m, logger: logger}
}

// Students returns the roster in sheet order. Rows without a numeric ID
// are skipped and counted.
func (r *Repository) Students(ctx context.Context) ([]Student, error) {
	recs, err := r.tables.Records(ctx, sheet.Students)
	if err != nil {
		return nil, fmt.Errorf("roster: list students: %w", err)
	}
	out := make([]Student, 0, len(recs))
	skipped := 0
	for i, rec := range recs {
		s, err := studentFromRecord(rec)
		if err != nil {
			skipped++
			r.logger.Warn("skipping roster row", "row", i, "err", err)
			continue
		}
		out = append(out, s)
	}
	r.metrics.Skipped(string(sheet.Students), skipped)
	return out, nil
}

// Student returns one student by ID.
func (r *Repository) Student(ctx context.Context, id int) (Student, error) {
	students, err := r.Students(ctx)
	if err != nil {
		return Student{}, err
	}
	for _, s := range students {
		if s.ID == id {
			return s, nil
		}
	}
	return Student{}, apperr.New(apperr.NotFound, "roster", fmt.Sprintf("student %d not found", id))
}

// Insert appends a student row.
func (r *Repository) Insert(ctx context.Context, s Student) error {
	if err := r.tables.Append(ctx, sheet.Students, [][]string{s.row()}); err != nil {
		return fmt.Errorf("roster: insert student: %w", err)
	}
	return nil
}

// Replace rewrites the mutable columns of the student's row in place.
func (r *Repository) Replace(ctx context.Context, s Student) error {
	idx, err := r.tables.Find(ctx, sheet.Students, "Student_ID", strconv.Itoa(s.ID))
	if err != nil {
		return fmt.Errorf("roster: locate student %d: %w", s.ID, err)
	}
	// Name..Parent_Mobile are columns 1-4; Student_ID is never rewritten.
	if err := r.tables.Update(ctx, sheet.Students, idx, 1, s.row()[1:]); err != nil {
		return fmt.Errorf("roster: update student %d: %w", s.ID, err)
	}
	return nil
}

// Remove deletes the student's row.
func (r *Repository) Remove(ctx context.Context, id int) error {
	idx, err := r.tables.Find(ctx, sheet.Students, "Student_ID", strconv.Itoa(id))
	if err != nil {
		return fmt.Errorf("roster: locate student %d: %w", id, err)
	}
	if err := r.tables.Delete(ctx, sheet.Students, idx); err != nil {
		return fmt.Errorf("roster: delete student %d: %w", id, err)
	}
	return nil
}

// Batches returns registered batch names in registry order. Blank cells
// are ignored.
func (r *Repository) Batches(ctx context.Context) ([]string, error) {
	recs, err := r.tables.Records(ctx, sheet.Batches)
	if err != nil {
		return nil, fmt.Errorf("roster: list batches: %w", err)
	}
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		if name := rec.Get("Batch_Name"); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// InsertBatch appends a batch name.
func (r *Repository) InsertBatch(ctx context.Context, name string) error {
	if err := r.tables.Append(ctx, sheet.Batches, [][]string{{name}}); err != nil {
		return fmt.Errorf("roster: insert batch: %w", err)
	}
	return nil
}
