package leave

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"academy/internal/apperr"
	"academy/internal/metrics"
	"academy/internal/roster"
	"academy/internal/sheet"
	"academy/internal/validate"
)

// Interval is one leave request. Dates stay as stored strings so a
// malformed row can still be listed; Span parses them on demand.
type Interval struct {
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// Span parses the interval's bounds.
func (iv Interval) Span() (start, end time.Time, err error) {
	start, err = sheet.ParseDate(iv.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Wrap(apperr.Parse, "leave start", err)
	}
	end, err = sheet.ParseDate(iv.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Wrap(apperr.Parse, "leave end", err)
	}
	return start, end, nil
}

// Covers reports whether start <= day <= end, comparing calendar dates.
func (iv Interval) Covers(day time.Time) (bool, error) {
	start, end, err := iv.Span()
	if err != nil {
		return false, err
	}
	d := truncate(day)
	return !d.Before(start) && !d.After(end), nil
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (iv Interval) row() []string {
	return []string{strconv.Itoa(iv.StudentID), iv.Name, iv.StartDate, iv.EndDate, iv.Reason}
}

func intervalFromRecord(r sheet.Record) (Interval, error) {
	id, err := r.Int("Student_ID")
	if err != nil {
		return Interval{}, err
	}
	return Interval{
		StudentID: id,
		Name:      r.Get("Name"),
		StartDate: r.Get("Start_Date"),
		EndDate:   r.Get("End_Date"),
		Reason:    r.Get("Reason"),
	}, nil
}

// Repository reads and appends Leave_Log rows. There is no edit or delete.
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

// All returns every interval in log order. Rows whose Student_ID is not a
// number cannot belong to anyone and are skipped.
func (r *Repository) All(ctx context.Context) ([]Interval, error) {
	recs, err := r.tables.Records(ctx, sheet.LeaveLog)
	if err != nil {
		return nil, fmt.Errorf("leave: list: %w", err)
	}
	out := make([]Interval, 0, len(recs))
	skipped := 0
	for i, rec := range recs {
		iv, err := intervalFromRecord(rec)
		if err != nil {
			skipped++
			r.logger.Warn("skipping leave row", "row", i, "err", err)
			continue
		}
		out = append(out, iv)
	}
	r.metrics.Skipped(string(sheet.LeaveLog), skipped)
	return out, nil
}

// Append adds one interval.
func (r *Repository) Append(ctx context.Context, iv Interval) error {
	if err := r.tables.Append(ctx, sheet.LeaveLog, [][]string{iv.row()}); err != nil {
		return fmt.Errorf("leave: append: %w", err)
	}
	return nil
}

// Request is the leave form. Either StudentID or Name identifies the
// student; StudentID wins when both are set.
type Request struct {
	StudentID int    `json:"student_id" validate:"omitempty,gt=0"`
	Name      string `json:"name" validate:"required_without=StudentID"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate"`
	Reason    string `json:"reason"`
}

// Service records leave against the roster.
type Service struct {
	repo   *Repository
	roster *roster.Service
}

// NewService creates a service.
func NewService(repo *Repository, rs *roster.Service) *Service {
	return &Service{repo: repo, roster: rs}
}

// Record validates a request, resolves the student and appends the
// interval with a name snapshot.
func (s *Service) Record(ctx context.Context, req Request) (Interval, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	if err := validate.Struct("record leave", req); err != nil {
		return Interval{}, err
	}
	iv := Interval{StartDate: req.StartDate, EndDate: req.EndDate, Reason: strings.TrimSpace(req.Reason)}
	start, end, err := iv.Span()
	if err != nil {
		return Interval{}, apperr.Invalid("record leave", "start_date", "isodate", err.Error())
	}
	if end.Before(start) {
		return Interval{}, apperr.Invalid("record leave", "end_date", "gtefield", "end date is before start date")
	}

	var st roster.Student
	if req.StudentID > 0 {
		st, err = s.roster.Student(ctx, req.StudentID)
	} else {
		st, err = s.roster.StudentByName(ctx, req.Name)
	}
	if err != nil {
		return Interval{}, err
	}
	iv.StudentID = st.ID
	iv.Name = st.Name
	if err := s.repo.Append(ctx, iv); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// All lists every interval.
func (s *Service) All(ctx context.Context) ([]Interval, error) {
	return s.repo.All(ctx)
}

// ForStudent lists one student's intervals in log order.
func (s *Service) ForStudent(ctx context.Context, id int) ([]Interval, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Interval
	for _, iv := range all {
		if iv.StudentID == id {
			out = append(out, iv)
		}
	}
	return out, nil
}
