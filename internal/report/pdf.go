package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"academy/internal/attendance"
	"academy/internal/fees"
)

// Document describes the fixed header of a rendered report.
type Document struct {
	Academy     string
	Title       string
	Scope       string
	GeneratedAt time.Time
}

// Columns of the attendance table, in order.
var Columns = []string{"Date", "Name", "Status", "Subject", "Topic"}

var columnWidths = []float64{28, 50, 26, 32, 54}

// absentFill is the background of Absent rows.
var absentFill = [3]int{255, 205, 210}

// Cells returns a record's values in Columns order.
func Cells(r attendance.Record) []string {
	return []string{r.Date, r.Name, string(r.Status), r.Subject, r.Topic}
}

// RenderAttendancePDF renders rows as a paginated A4 table. The table head
// repeats on every page and Absent rows are shaded.
func RenderAttendancePDF(doc Document, rows []attendance.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	tableHead := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(40, 145, 108)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range Columns {
			pdf.CellFormat(columnWidths[i], 8, col, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 15)
		pdf.CellFormat(0, 8, tr(doc.Academy), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 6, tr(doc.Title), "", 1, "C", false, 0, "")
		if doc.Scope != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 5, tr(doc.Scope), "", 1, "C", false, 0, "")
		}
		pdf.SetDrawColor(40, 145, 108)
		pdf.SetLineWidth(0.5)
		pdf.Line(10, pdf.GetY()+1, 200, pdf.GetY()+1)
		pdf.SetLineWidth(0.2)
		pdf.SetDrawColor(0, 0, 0)
		pdf.Ln(4)
		tableHead()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(95, 10, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)
	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No attendance records match the selected filters.", "1", 1, "C", false, 0, "")
	}
	for _, r := range rows {
		absent := r.Status == attendance.Absent
		if absent {
			pdf.SetFillColor(absentFill[0], absentFill[1], absentFill[2])
			pdf.SetFont("Arial", "B", 9)
		}
		for i, cell := range Cells(r) {
			pdf.CellFormat(columnWidths[i], 7, tr(cell), "1", 0, "L", absent, 0, "")
		}
		pdf.Ln(-1)
		if absent {
			pdf.SetFont("Arial", "", 9)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render attendance pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderReceiptPDF renders a single-payment receipt.
func RenderReceiptPDF(academy string, rec fees.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+rec.ReceiptNo, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(academy), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Fee Receipt", "", 1, "C", false, 0, "")
	pdf.SetDrawColor(40, 145, 108)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY()+2, 138, pdf.GetY()+2)
	pdf.Ln(8)

	fields := [][2]string{
		{"Receipt No", rec.ReceiptNo},
		{"Date", rec.Date},
		{"Name", rec.Name},
		{"Amount", rec.Amount.StringFixed(2)},
		{"Mode", rec.Mode},
		{"Status", string(rec.Status)},
	}
	if rec.Remarks != "" {
		fields = append(fields, [2]string{"Remarks", rec.Remarks})
	}
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(200, 200, 200)
	for _, f := range fields {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(40, 9, f[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(88, 9, tr(f[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "This is a computer generated receipt.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
