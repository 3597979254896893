package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"academy/internal/apperr"
	"academy/internal/leave"
	"academy/internal/metrics"
	"academy/internal/roster"
	"academy/internal/session"
	"academy/internal/sheet"
	"academy/internal/validate"
)

// DefaultSubjects is the subject list offered when none is configured.
var DefaultSubjects = []string{"Maths", "Reasoning", "Polity", "History", "Geography", "English", "Gujarati"}

// Options tunes a Service.
type Options struct {
	Subjects []string
	ClaimTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	Now      func() time.Time
}

// Service runs the mark-attendance workflow.
type Service struct {
	roster   *roster.Service
	leaves   *leave.Service
	log      *Log
	claims   Claims
	subjects []string
	claimTTL time.Duration
	metrics  *metrics.Metrics
	logger   *log.Logger
	now      func() time.Time
}

// NewService wires the workflow.
func NewService(rs *roster.Service, ls *leave.Service, lg *Log, claims Claims, opts Options) *Service {
	if len(opts.Subjects) == 0 {
		opts.Subjects = DefaultSubjects
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if claims == nil {
		claims = NewMemoryClaims()
	}
	return &Service{
		roster:   rs,
		leaves:   ls,
		log:      lg,
		claims:   claims,
		subjects: opts.Subjects,
		claimTTL: opts.ClaimTTL,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Subjects lists the accepted subject labels.
func (s *Service) Subjects() []string {
	out := make([]string, len(s.subjects))
	copy(out, s.subjects)
	return out
}

// Log exposes the ledger for reporting.
func (s *Service) Log() *Log { return s.log }

// Grid is what the operator reviews before submitting.
type Grid struct {
	State      session.State `json:"-"`
	Resolution Resolution    `json:"resolution"`
	Warning    string        `json:"warning,omitempty"`
}

// Start resolves defaults for a date and batch and opens a session.
func (s *Service) Start(ctx context.Context, day time.Time, batch string) (Grid, error) {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return Grid{}, apperr.Invalid("start attendance", "batch", "required", "batch is required")
	}
	students, err := s.roster.Students(ctx, batch)
	if err != nil {
		return Grid{}, err
	}
	leaves, err := s.leaves.All(ctx)
	if err != nil {
		return Grid{}, err
	}
	version, err := s.log.Count(ctx)
	if err != nil {
		return Grid{}, err
	}
	res := Resolve(students, leaves, day)
	s.reportSkipped(res)

	ids := make([]int, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	g := Grid{
		State:      session.New(sheet.FormatDate(day), batch, ids, version),
		Resolution: res,
	}
	if len(students) == 0 {
		g.Warning = "no students found for this batch"
	}
	return g, nil
}

// Acknowledge closes a workflow and opens a fresh one for the same date
// and batch.
func (s *Service) Acknowledge(ctx context.Context, st session.State) (Grid, error) {
	day, err := sheet.ParseDate(st.Date)
	if err != nil {
		return Grid{}, apperr.Invalid("acknowledge attendance", "date", "isodate", err.Error())
	}
	return s.Start(ctx, day, st.Batch)
}

// Submission is the operator's reviewed grid.
type Submission struct {
	Subject string       `json:"subject" validate:"required"`
	Topic   string       `json:"topic"`
	Present map[int]bool `json:"present"`
}

// Result of a successful submission.
type Result struct {
	State   session.State `json:"-"`
	Outcome Outcome       `json:"outcome"`
	Records []Record      `json:"records"`
}

// Submit finalizes statuses for the session's students and appends one row
// per student in a single batch.
func (s *Service) Submit(ctx context.Context, st session.State, sub Submission) (Result, error) {
	sub.Subject = strings.TrimSpace(sub.Subject)
	sub.Topic = strings.TrimSpace(sub.Topic)
	if st.Submitted {
		s.refused("submitted")
		return Result{}, apperr.New(apperr.Conflict, "submit attendance", "this session was already submitted")
	}
	if err := validate.Struct("submit attendance", sub); err != nil {
		return Result{}, err
	}
	if !s.knownSubject(sub.Subject) {
		return Result{}, apperr.Invalid("submit attendance", "subject", "oneof", fmt.Sprintf("unknown subject %q", sub.Subject))
	}
	for id := range sub.Present {
		if !st.Includes(id) {
			return Result{}, apperr.Invalid("submit attendance", "present", "member", fmt.Sprintf("student %d is not part of this session", id))
		}
	}
	day, err := sheet.ParseDate(st.Date)
	if err != nil {
		return Result{}, apperr.Invalid("submit attendance", "date", "isodate", err.Error())
	}

	// Students must still be on the roster; names are snapshotted now.
	all, err := s.roster.Students(ctx, roster.AllBatches)
	if err != nil {
		return Result{}, err
	}
	byID := roster.Index(all)
	subset := make([]roster.Student, 0, len(st.StudentIDs))
	for _, id := range st.StudentIDs {
		stu, ok := byID[id]
		if !ok {
			s.logger.Warn("student left the roster during session", "session", st.ID, "student", id)
			continue
		}
		subset = append(subset, stu)
	}
	leaves, err := s.leaves.All(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Resolve(subset, leaves, day)
	s.reportSkipped(res)
	outcome := Finalize(res.Defaults, sub.Present)

	clock := s.now().Format(sheet.TimeLayout)
	records := make([]Record, len(outcome.Finals))
	for i, f := range outcome.Finals {
		records[i] = Record{
			Date:      st.Date,
			Time:      clock,
			StudentID: f.Student.ID,
			Name:      f.Student.Name,
			Status:    f.Status,
			Subject:   sub.Subject,
			Topic:     sub.Topic,
			SessionID: st.ID,
		}
	}
	if err := s.Commit(ctx, st, records); err != nil {
		return Result{}, err
	}
	st.Submitted = true
	return Result{State: st, Outcome: outcome, Records: records}, nil
}

// Commit appends records for session st in one call. The session ID is
// claimed first and checked against the log, so a resubmitted session is
// refused instead of duplicated. Rows appended by other sessions since st
// was opened that cover the same date, subject and students also refuse
// the batch. On append failure the claim is released so the operator
// may retry; rows may still have been partially written.
func (s *Service) Commit(ctx context.Context, st session.State, records []Record) error {
	if len(records) == 0 {
		return apperr.New(apperr.Validation, "commit attendance", "no students to record")
	}
	ok, err := s.claims.Claim(ctx, st.ID, s.claimTTL)
	if err != nil {
		return fmt.Errorf("attendance: claim session: %w", err)
	}
	if !ok {
		s.refused("duplicate")
		return apperr.New(apperr.Conflict, "commit attendance", "this session is already being recorded")
	}
	existing, err := s.log.Records(ctx)
	if err != nil {
		s.release(ctx, st.ID)
		return err
	}
	if err := checkConflicts(existing, st, records); err != nil {
		s.refused("conflict")
		return err
	}
	if err := s.log.Append(ctx, records); err != nil {
		s.release(ctx, st.ID)
		return err
	}
	if s.metrics != nil {
		for _, r := range records {
			s.metrics.AttendanceRows.WithLabelValues(string(r.Status)).Inc()
		}
	}
	s.logger.Info("attendance recorded", "session", st.ID, "date", st.Date, "batch", st.Batch, "rows", len(records))
	return nil
}

func checkConflicts(existing []Record, st session.State, records []Record) error {
	for _, r := range existing {
		if r.SessionID != "" && r.SessionID == st.ID {
			return apperr.New(apperr.Conflict, "commit attendance", "this session was already recorded")
		}
	}
	if st.LogVersion >= len(existing) || len(records) == 0 {
		return nil
	}
	ours := make(map[int]bool, len(records))
	for _, r := range records {
		ours[r.StudentID] = true
	}
	subject := records[0].Subject
	for _, r := range existing[st.LogVersion:] {
		if r.Date == st.Date && r.Subject == subject && ours[r.StudentID] {
			return apperr.New(apperr.Conflict, "commit attendance",
				fmt.Sprintf("%s attendance for %s was recorded by another session after this grid was opened", subject, st.Date))
		}
	}
	return nil
}

func (s *Service) knownSubject(subject string) bool {
	for _, sub := range s.subjects {
		if sub == subject {
			return true
		}
	}
	return false
}

func (s *Service) release(ctx context.Context, id string) {
	if err := s.claims.Release(ctx, id); err != nil {
		s.logger.Warn("release session claim failed", "session", id, "err", err)
	}
}

func (s *Service) refused(reason string) {
	if s.metrics != nil {
		s.metrics.SubmissionsRefused.WithLabelValues(reason).Inc()
	}
}

func (s *Service) reportSkipped(res Resolution) {
	if res.Skipped == 0 {
		return
	}
	s.metrics.Skipped(string(sheet.LeaveLog), res.Skipped)
	s.logger.Warn("leave rows with malformed dates ignored", "date", sheet.FormatDate(res.Date), "rows", res.Skipped)
}
