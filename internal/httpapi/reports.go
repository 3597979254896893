package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/report"
	"academy/internal/roster"
	"academy/internal/sheet"
)

const (
	pdfType  = "application/pdf"
	xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) studentAnalytics(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	st, err := s.Roster.Student(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.Attendance.Log().Records(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	f.StudentID = st.ID
	rows := report.Filtered(records, []roster.Student{st}, f).Rows
	sum, err := report.Summarize(rows, st)
	if apperr.Is(err, apperr.NoData) {
		c.JSON(http.StatusOK, gin.H{"student": st, "no_data": true, "message": "no attendance recorded yet"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st, "no_data": false, "summary": sum, "slices": sum.Slices()})
}

func (s *Server) batchAnalytics(c *gin.Context) {
	batch := strings.TrimSpace(c.Param("batch"))
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if batch != roster.AllBatches {
		batches, err := s.Roster.Batches(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !contains(batches, batch) {
			s.fail(c, apperr.New(apperr.NotFound, "batch analytics", fmt.Sprintf("batch %q is not registered", batch)))
			return
		}
	}
	students, err := s.Roster.Students(ctx, roster.AllBatches)
	if err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.Attendance.Log().Records(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report.Batch(records, students, batch, f))
}

func (s *Server) attendanceReport(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if f.StudentID, err = queryID(c, "student_id"); err != nil {
		s.fail(c, err)
		return
	}
	f.Batch = strings.TrimSpace(c.Query("batch"))
	ctx := c.Request.Context()
	students, err := s.Roster.Students(ctx, roster.AllBatches)
	if err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.Attendance.Log().Records(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	export := report.Filtered(records, students, f)
	if export.Skipped > 0 {
		s.Logger.Warn("attendance rows with malformed dates left out of report", "rows", export.Skipped)
	}

	doc := report.Document{
		Academy:     s.Academy,
		Title:       "Attendance Report",
		Scope:       scopeOf(f),
		GeneratedAt: s.Now(),
	}
	stamp := s.Now().Format("20060102")
	switch format := strings.ToLower(c.DefaultQuery("format", "json")); format {
	case "json":
		c.JSON(http.StatusOK, export)
	case "pdf":
		data, err := report.RenderAttendancePDF(doc, export.Rows)
		if err != nil {
			s.fail(c, err)
			return
		}
		download(c, "attendance-"+stamp+".pdf", pdfType, data)
	case "xlsx":
		data, err := report.RenderAttendanceXLSX(doc, export.Rows)
		if err != nil {
			s.fail(c, err)
			return
		}
		download(c, "attendance-"+stamp+".xlsx", xlsxType, data)
	default:
		s.fail(c, apperr.Invalid("attendance report", "format", "oneof", fmt.Sprintf("unknown format %q", format)))
	}
}

func parseFilter(c *gin.Context) (report.Filter, error) {
	var f report.Filter
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, apperr.Invalid("report", "to", "gtefield", "to is before from")
	}
	return f, nil
}

func queryDate(c *gin.Context, name string) (time.Time, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return time.Time{}, nil
	}
	d, err := sheet.ParseDate(v)
	if err != nil {
		return time.Time{}, apperr.Invalid("report", name, "isodate", name+" must be YYYY-MM-DD")
	}
	return d, nil
}

func scopeOf(f report.Filter) string {
	var parts []string
	if f.Batch != "" {
		parts = append(parts, "Batch: "+f.Batch)
	}
	if f.StudentID > 0 {
		parts = append(parts, fmt.Sprintf("Student: %d", f.StudentID))
	}
	if !f.From.IsZero() {
		parts = append(parts, "From: "+sheet.FormatDate(f.From))
	}
	if !f.To.IsZero() {
		parts = append(parts, "To: "+sheet.FormatDate(f.To))
	}
	return strings.Join(parts, "  ")
}

func download(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
