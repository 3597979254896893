package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/notify"
)

type composeRequest struct {
	Role       string `json:"role"`
	Template   string `json:"template"`
	StudentIDs []int  `json:"student_ids"`
	// Recipients allows composing for people outside the roster.
	Recipients []notify.Recipient `json:"recipients"`
	Dispatch   bool               `json:"dispatch"`
}

// compose fills an operator-written template for each recipient. A
// recipient that cannot be reached is reported and the rest still go out.
func (s *Server) compose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	role, err := notify.ParseRole(req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !strings.Contains(req.Template, notify.NamePlaceholder) {
		s.fail(c, apperr.Invalid("compose", "template", "placeholder", "template must contain "+notify.NamePlaceholder))
		return
	}
	ctx := c.Request.Context()
	recipients := append([]notify.Recipient(nil), req.Recipients...)
	for _, id := range req.StudentIDs {
		st, err := s.Roster.Student(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		recipients = append(recipients, notify.Recipient{Name: st.Name, StudentMobile: st.StudentMobile, ParentMobile: st.ParentMobile})
	}
	if len(recipients) == 0 {
		s.fail(c, apperr.Invalid("compose", "recipients", "required", "at least one recipient is required"))
		return
	}

	out := []composed{}
	var msgs []notify.Message
	var problems []gin.H
	for _, r := range recipients {
		m, err := s.Composer.Custom(role, r, req.Template)
		if err != nil {
			problems = append(problems, gin.H{"name": r.Name, "error": err.Error()})
			continue
		}
		msgs = append(msgs, m)
		out = append(out, composed{Message: m, URI: m.URI()})
	}
	dispatched := false
	if req.Dispatch && s.Outbox.Enabled() && len(msgs) > 0 {
		if err := s.Outbox.Publish(ctx, "custom", msgs); err != nil {
			s.Logger.Warn("custom messages not queued", "err", err)
		} else {
			dispatched = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"messages": out, "message_errors": problems, "dispatched": dispatched})
}
