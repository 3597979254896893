package attendance

import (
	"context"
	"fmt"
	"strconv"

	"academy/internal/sheet"
)

// Record is one Attendance_Log row. StudentID is 0 on legacy rows that
// were written without an ID; SessionID is empty on rows that predate
// idempotency keys.
type Record struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Subject   string `json:"subject"`
	Topic     string `json:"topic"`
	SessionID string `json:"session_id,omitempty"`
}

func (r Record) row() []string {
	id := ""
	if r.StudentID > 0 {
		id = strconv.Itoa(r.StudentID)
	}
	return []string{r.Date, r.Time, id, r.Name, string(r.Status), r.Subject, r.Topic, r.SessionID}
}

func recordFromSheet(rec sheet.Record) Record {
	id, err := rec.Int("Student_ID")
	if err != nil {
		id = 0
	}
	return Record{
		Date:      rec.Get("Date"),
		Time:      rec.Get("Time"),
		StudentID: id,
		Name:      rec.Get("Name"),
		Status:    Status(rec.Get("Status")),
		Subject:   rec.Get("Subject"),
		Topic:     rec.Get("Topic"),
		SessionID: rec.Get("Session_ID"),
	}
}

// Log is the append-only Attendance_Log ledger.
type Log struct {
	tables sheet.Tables
}

// NewLog creates a ledger over tables.
func NewLog(tables sheet.Tables) *Log {
	return &Log{tables: tables}
}

// Records returns every row in insertion order.
func (l *Log) Records(ctx context.Context) ([]Record, error) {
	recs, err := l.tables.Records(ctx, sheet.AttendanceLog)
	if err != nil {
		return nil, fmt.Errorf("attendance: read log: %w", err)
	}
	out := make([]Record, len(recs))
	for i, rec := range recs {
		out[i] = recordFromSheet(rec)
	}
	return out, nil
}

// Count returns the number of rows, used as the log's version.
func (l *Log) Count(ctx context.Context) (int, error) {
	n, err := l.tables.Count(ctx, sheet.AttendanceLog)
	if err != nil {
		return 0, fmt.Errorf("attendance: count log: %w", err)
	}
	return n, nil
}

// Append writes all records in a single backing-store call.
func (l *Log) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.row()
	}
	if err := l.tables.Append(ctx, sheet.AttendanceLog, rows); err != nil {
		return fmt.Errorf("attendance: append %d rows: %w", len(rows), err)
	}
	return nil
}
