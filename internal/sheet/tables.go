package sheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Table names a worksheet of the backing spreadsheet.
type Table string

const (
	Students      Table = "Students"
	AttendanceLog Table = "Attendance_Log"
	LeaveLog      Table = "Leave_Log"
	Batches       Table = "Batches"
	FeesLog       Table = "Fees_Log"
)

// Serialization layouts of date and time cells.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Schemas lists the positional columns of every table. Row updates address
// cells by position, so the order here must match the worksheet.
var Schemas = map[Table][]string{
	Students:      {"Student_ID", "Name", "Batch", "Student_Mobile", "Parent_Mobile"},
	AttendanceLog: {"Date", "Time", "Student_ID", "Name", "Status", "Subject", "Topic", "Session_ID"},
	LeaveLog:      {"Student_ID", "Name", "Start_Date", "End_Date", "Reason"},
	Batches:       {"Batch_Name"},
	FeesLog:       {"Receipt_No", "Date", "Student_ID", "Name", "Amount", "Mode", "Status", "Remarks"},
}

// AllTables in creation order.
var AllTables = []Table{Students, AttendanceLog, LeaveLog, Batches, FeesLog}

// Record is one data row keyed by header.
type Record map[string]string

// Get returns the trimmed cell under col.
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Int parses the cell under col as an integer.
func (r Record) Int(col string) (int, error) {
	v := r.Get(col)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not an integer", col, v)
	}
	return n, nil
}

// Tables is the narrow contract the application needs from the
// spreadsheet. Row indexes are zero-based over data rows (the header row
// is not counted).
type Tables interface {
	Records(ctx context.Context, t Table) ([]Record, error)
	Append(ctx context.Context, t Table, rows [][]string) error
	Find(ctx context.Context, t Table, column, value string) (int, error)
	Update(ctx context.Context, t Table, row, startCol int, values []string) error
	Delete(ctx context.Context, t Table, row int) error
	Count(ctx context.Context, t Table) (int, error)
}

// ParseDate parses a stored date cell.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders a date the way it is stored.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ColumnIndex returns the position of column within table t, or -1.
func ColumnIndex(t Table, column string) int {
	for i, c := range Schemas[t] {
		if c == column {
			return i
		}
	}
	return -1
}

// toRecords zips data rows with a header. Short rows are padded with
// empty cells; extra cells beyond the header are dropped.
func toRecords(header []string, rows [][]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

func findIndex(header []string, rows [][]string, column, value string) int {
	idx := -1
	for i, h := range header {
		if h == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1
	}
	for i, row := range rows {
		if idx < len(row) && strings.TrimSpace(row[idx]) == value {
			return i
		}
	}
	return -1
}

func checkTable(op string, t Table) error {
	if _, ok := Schemas[t]; !ok {
		return fmt.Errorf("%s: unknown table %q", op, t)
	}
	return nil
}
