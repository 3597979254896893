package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/notify"
	"academy/internal/sheet"
)

type gridRow struct {
	Student attendanceStudent `json:"student"`
	Default attendance.Status `json:"default"`
	// Present is the initial state of the operator's checkbox.
	Present bool `json:"present"`
}

type attendanceStudent struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Batch string `json:"batch"`
}

type gridResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
	Date         string    `json:"date"`
	Batch        string    `json:"batch"`
	Rows         []gridRow `json:"rows"`
	SkippedLeave int       `json:"skipped_leave_rows"`
	Subjects     []string  `json:"subjects"`
	Warning      string    `json:"warning,omitempty"`
}

func (s *Server) listSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subjects": s.Attendance.Subjects()})
}

func (s *Server) startSession(c *gin.Context) {
	var req struct {
		Date  string `json:"date"`
		Batch string `json:"batch"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	day := s.Now()
	if strings.TrimSpace(req.Date) != "" {
		d, err := sheet.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			s.fail(c, apperr.Invalid("start attendance", "date", "isodate", "date must be YYYY-MM-DD"))
			return
		}
		day = d
	}
	grid, err := s.Attendance.Start(c.Request.Context(), day, req.Batch)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeGrid(c, http.StatusCreated, grid)
}

func (s *Server) acknowledgeSession(c *gin.Context) {
	var req struct {
		SessionToken string `json:"session_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	st, err := s.Signer.Parse(req.SessionToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	grid, err := s.Attendance.Acknowledge(c.Request.Context(), st)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeGrid(c, http.StatusOK, grid)
}

func (s *Server) writeGrid(c *gin.Context, status int, g attendance.Grid) {
	token, exp, err := s.Signer.Sign(g.State)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows := make([]gridRow, len(g.Resolution.Defaults))
	for i, d := range g.Resolution.Defaults {
		rows[i] = gridRow{
			Student: attendanceStudent{ID: d.Student.ID, Name: d.Student.Name, Batch: d.Student.Batch},
			Default: d.Status,
			Present: d.Status == attendance.Present,
		}
	}
	c.JSON(status, gridResponse{
		SessionToken: token,
		ExpiresAt:    exp,
		SessionID:    g.State.ID,
		Date:         g.State.Date,
		Batch:        g.State.Batch,
		Rows:         rows,
		SkippedLeave: g.Resolution.Skipped,
		Subjects:     s.Attendance.Subjects(),
		Warning:      g.Warning,
	})
}

type submitRequest struct {
	SessionToken string       `json:"session_token"`
	Subject      string       `json:"subject"`
	Topic        string       `json:"topic"`
	Present      map[int]bool `json:"present"`
	// Optional replacements for the fixed absence texts; {name} is
	// substituted literally.
	StudentTemplate  string `json:"student_template"`
	GuardianTemplate string `json:"guardian_template"`
	// Dispatch hands the composed messages to the outbox.
	Dispatch bool `json:"dispatch"`
}

type composed struct {
	notify.Message
	URI string `json:"uri"`
}

type messageError struct {
	StudentID int    `json:"student_id"`
	Role      string `json:"role"`
	Error     string `json:"error"`
}

func (s *Server) submitSession(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	st, err := s.Signer.Parse(req.SessionToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.Attendance.Submit(c.Request.Context(), st, attendance.Submission{
		Subject: req.Subject,
		Topic:   req.Topic,
		Present: req.Present,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	token, _, err := s.Signer.Sign(res.State)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := notify.Context{Subject: res.Records[0].Subject, Topic: res.Records[0].Topic}
	var messages []notify.Message
	var problems []messageError
	byRole := map[notify.Role][]composed{notify.Student: {}, notify.Guardian: {}}
	templates := map[notify.Role]string{notify.Student: req.StudentTemplate, notify.Guardian: req.GuardianTemplate}
	for _, a := range res.Outcome.AbsentRoll {
		r := notify.Recipient{Name: a.Name, StudentMobile: a.StudentMobile, ParentMobile: a.ParentMobile}
		for _, role := range []notify.Role{notify.Student, notify.Guardian} {
			m, err := s.Composer.Absence(role, r, ctx, templates[role])
			if err != nil {
				problems = append(problems, messageError{StudentID: a.StudentID, Role: string(role), Error: err.Error()})
				continue
			}
			messages = append(messages, m)
			byRole[role] = append(byRole[role], composed{Message: m, URI: m.URI()})
		}
	}
	dispatched := false
	if req.Dispatch && s.Outbox.Enabled() && len(messages) > 0 {
		if err := s.Outbox.Publish(c.Request.Context(), "absence", messages); err != nil {
			s.Logger.Warn("absence messages not queued", "session", st.ID, "err", err)
		} else {
			dispatched = true
		}
	}

	absent := res.Outcome.AbsentRoll
	if absent == nil {
		absent = []attendance.Absentee{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_token": token,
		"session_id":    res.State.ID,
		"records":       res.Records,
		"absent_roll":   absent,
		"messages": gin.H{
			"student":  byRole[notify.Student],
			"guardian": byRole[notify.Guardian],
		},
		"message_errors": problems,
		"dispatched":     dispatched,
	})
}

