package fees

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"academy/internal/apperr"
	"academy/internal/metrics"
	"academy/internal/roster"
	"academy/internal/sheet"
	"academy/internal/validate"
)

// Status of a payment.
type Status string

const (
	Complete Status = "Complete"
	Partial  Status = "Partial"
	Pending  Status = "Pending"
)

// Modes accepted on the fee form.
var Modes = []string{"Cash", "UPI", "Card", "Bank Transfer", "Cheque"}

// Record is one Fees_Log row.
type Record struct {
	ReceiptNo string          `json:"receipt_no"`
	Date      string          `json:"date"`
	StudentID int             `json:"student_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	Status    Status          `json:"status"`
	Remarks   string          `json:"remarks"`
}

// row encodes r in Fees_Log column order. Amount is written exactly,
// never padded or rounded.
func (r Record) row() []string {
	return []string{r.ReceiptNo, r.Date, strconv.Itoa(r.StudentID), r.Name, r.Amount.String(), r.Mode, string(r.Status), r.Remarks}
}

func recordFromSheet(rec sheet.Record) (Record, error) {
	id, err := rec.Int("Student_ID")
	if err != nil {
		return Record{}, err
	}
	amount, err := decimal.NewFromString(rec.Get("Amount"))
	if err != nil {
		return Record{}, fmt.Errorf("column Amount: %w", err)
	}
	return Record{
		ReceiptNo: rec.Get("Receipt_No"),
		Date:      rec.Get("Date"),
		StudentID: id,
		Name:      rec.Get("Name"),
		Amount:    amount,
		Mode:      rec.Get("Mode"),
		Status:    Status(rec.Get("Status")),
		Remarks:   rec.Get("Remarks"),
	}, nil
}

// ReceiptNumber derives a receipt number from the submission time.
func ReceiptNumber(t time.Time) string {
	return "REC-" + t.Format("20060102150405")
}

// Payment is the fee form.
type Payment struct {
	StudentID int    `json:"student_id" validate:"gt=0"`
	Amount    string `json:"amount" validate:"required"`
	Mode      string `json:"mode" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=Complete Partial Pending"`
	Remarks   string `json:"remarks"`
}

// Ledger appends and reads Fees_Log rows.
type Ledger struct {
	tables  sheet.Tables
	roster  *roster.Service
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// NewLedger creates a ledger.
func NewLedger(tables sheet.Tables, rs *roster.Service, m *metrics.Metrics, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{tables: tables, roster: rs, metrics: m, logger: logger, now: time.Now}
}

// Record validates a payment and appends it with a fresh receipt number.
func (l *Ledger) Record(ctx context.Context, p Payment) (Record, roster.Student, error) {
	p.Amount = strings.TrimSpace(p.Amount)
	p.Mode = strings.TrimSpace(p.Mode)
	p.Remarks = strings.TrimSpace(p.Remarks)
	if err := validate.Struct("record fee", p); err != nil {
		return Record{}, roster.Student{}, err
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return Record{}, roster.Student{}, apperr.Invalid("record fee", "amount", "decimal", fmt.Sprintf("amount %q is not a number", p.Amount))
	}
	if !amount.IsPositive() {
		return Record{}, roster.Student{}, apperr.Invalid("record fee", "amount", "gt=0", "amount must be positive")
	}
	if amount.Exponent() < -2 {
		return Record{}, roster.Student{}, apperr.Invalid("record fee", "amount", "scale=2", fmt.Sprintf("amount %q has more than two decimal places", p.Amount))
	}
	if !knownMode(p.Mode) {
		return Record{}, roster.Student{}, apperr.Invalid("record fee", "mode", "oneof", fmt.Sprintf("unknown payment mode %q", p.Mode))
	}
	st, err := l.roster.Student(ctx, p.StudentID)
	if err != nil {
		return Record{}, roster.Student{}, err
	}
	now := l.now()
	receiptNo, err := l.freeReceiptNumber(ctx, now)
	if err != nil {
		return Record{}, roster.Student{}, err
	}
	rec := Record{
		ReceiptNo: receiptNo,
		Date:      sheet.FormatDate(now),
		StudentID: st.ID,
		Name:      st.Name,
		Amount:    amount,
		Mode:      p.Mode,
		Status:    p.Status,
		Remarks:   p.Remarks,
	}
	if err := l.tables.Append(ctx, sheet.FeesLog, [][]string{rec.row()}); err != nil {
		return Record{}, roster.Student{}, fmt.Errorf("fees: append: %w", err)
	}
	if l.metrics != nil {
		l.metrics.FeesRecorded.WithLabelValues(string(rec.Status)).Inc()
	}
	l.logger.Info("fee recorded", "receipt", rec.ReceiptNo, "student", st.ID, "amount", rec.Amount.StringFixed(2))
	return rec, st, nil
}

// freeReceiptNumber returns ReceiptNumber(t), suffixed with -2, -3 and so
// on when payments recorded in the same second already hold it.
func (l *Ledger) freeReceiptNumber(ctx context.Context, t time.Time) (string, error) {
	all, err := l.All(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(all))
	for _, r := range all {
		taken[r.ReceiptNo] = true
	}
	base := ReceiptNumber(t)
	no := base
	for n := 2; taken[no]; n++ {
		no = base + "-" + strconv.Itoa(n)
	}
	return no, nil
}

// All returns every payment in log order; malformed rows are skipped.
func (l *Ledger) All(ctx context.Context) ([]Record, error) {
	recs, err := l.tables.Records(ctx, sheet.FeesLog)
	if err != nil {
		return nil, fmt.Errorf("fees: list: %w", err)
	}
	out := make([]Record, 0, len(recs))
	skipped := 0
	for i, rec := range recs {
		r, err := recordFromSheet(rec)
		if err != nil {
			skipped++
			l.logger.Warn("skipping fee row", "row", i, "err", err)
			continue
		}
		out = append(out, r)
	}
	l.metrics.Skipped(string(sheet.FeesLog), skipped)
	return out, nil
}

// Receipt looks up one payment by receipt number.
func (l *Ledger) Receipt(ctx context.Context, receiptNo string) (Record, error) {
	all, err := l.All(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range all {
		if r.ReceiptNo == receiptNo {
			return r, nil
		}
	}
	return Record{}, apperr.New(apperr.NotFound, "fees", fmt.Sprintf("receipt %s not found", receiptNo))
}

// ForStudent lists one student's payments.
func (l *Ledger) ForStudent(ctx context.Context, id int) ([]Record, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if r.StudentID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func knownMode(mode string) bool {
	for _, m := range Modes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}
