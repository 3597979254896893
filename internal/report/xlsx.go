package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"academy/internal/attendance"
)

const xlsxSheet = "Attendance"

// RenderAttendanceXLSX writes rows to a single-sheet workbook with the
// same five columns as the PDF. Absent rows get a red fill.
func RenderAttendanceXLSX(doc Document, rows []attendance.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"28916C"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	absentStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFCDD2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}

	title := doc.Title
	if doc.Scope != "" {
		title += " (" + doc.Scope + ")"
	}
	if err := f.SetCellStr(xlsxSheet, "A1", title); err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	head := make([]interface{}, len(Columns))
	for i, c := range Columns {
		head[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A3", &head); err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A3", "E3", headStyle); err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}

	for i, r := range rows {
		line := i + 4
		for j, v := range Cells(r) {
			cell, _ := excelize.CoordinatesToCellName(j+1, line)
			if err := f.SetCellStr(xlsxSheet, cell, v); err != nil {
				return nil, fmt.Errorf("report: xlsx: %w", err)
			}
		}
		if r.Status == attendance.Absent {
			first, _ := excelize.CoordinatesToCellName(1, line)
			last, _ := excelize.CoordinatesToCellName(len(Columns), line)
			if err := f.SetCellStyle(xlsxSheet, first, last, absentStyle); err != nil {
				return nil, fmt.Errorf("report: xlsx: %w", err)
			}
		}
	}
	_ = f.SetColWidth(xlsxSheet, "A", "A", 12)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 24)
	_ = f.SetColWidth(xlsxSheet, "C", "D", 14)
	_ = f.SetColWidth(xlsxSheet, "E", "E", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
