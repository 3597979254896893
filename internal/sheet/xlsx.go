package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"academy/internal/apperr"
)

// Workbook stores the tables as worksheets of a local .xlsx file. Each
// write is saved to disk before returning.
type Workbook struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
}

// OpenWorkbook opens path, creating the file and any missing worksheets
// with their header rows.
func OpenWorkbook(path string) (*Workbook, error) {
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.Connection, "workbook open", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else {
		return nil, apperr.Wrap(apperr.Connection, "workbook open", err)
	}
	w := &Workbook{path: path, f: f}
	if err := w.ensureSheets(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Workbook) ensureSheets() error {
	created := false
	for _, t := range AllTables {
		idx, err := w.f.GetSheetIndex(string(t))
		if err != nil {
			return apperr.Wrap(apperr.Connection, "workbook init", err)
		}
		if idx >= 0 {
			continue
		}
		if _, err := w.f.NewSheet(string(t)); err != nil {
			return apperr.Wrap(apperr.Connection, "workbook init", err)
		}
		for i, col := range Schemas[t] {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := w.f.SetCellStr(string(t), cell, col); err != nil {
				return apperr.Wrap(apperr.Connection, "workbook init", err)
			}
		}
		created = true
	}
	if !created {
		return nil
	}
	if idx, _ := w.f.GetSheetIndex("Sheet1"); idx >= 0 {
		_ = w.f.DeleteSheet("Sheet1")
	}
	return w.save()
}

func (w *Workbook) save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return apperr.Wrap(apperr.Connection, "workbook save", err)
	}
	return nil
}

func (w *Workbook) rows(t Table) (header []string, data [][]string, err error) {
	all, err := w.f.GetRows(string(t))
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Connection, "workbook read "+string(t), err)
	}
	if len(all) == 0 {
		return Schemas[t], nil, nil
	}
	return all[0], all[1:], nil
}

func (w *Workbook) writeRow(t Table, sheetRow, startCol int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(startCol+i+1, sheetRow)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStr(string(t), cell, v); err != nil {
			return err
		}
	}
	return nil
}

// Records returns every data row of t.
func (w *Workbook) Records(_ context.Context, t Table) ([]Record, error) {
	if err := checkTable("workbook records", t); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	header, data, err := w.rows(t)
	if err != nil {
		return nil, err
	}
	return toRecords(header, data), nil
}

// Append writes rows below the last data row and saves once.
func (w *Workbook) Append(_ context.Context, t Table, rows [][]string) error {
	if err := checkTable("workbook append", t); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, data, err := w.rows(t)
	if err != nil {
		return err
	}
	next := len(data) + 2
	for i, row := range rows {
		if err := w.writeRow(t, next+i, 0, row); err != nil {
			return apperr.Wrap(apperr.Connection, "workbook append "+string(t), err)
		}
	}
	return w.save()
}

// Find locates the first data row whose column equals value.
func (w *Workbook) Find(_ context.Context, t Table, column, value string) (int, error) {
	if err := checkTable("workbook find", t); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	header, data, err := w.rows(t)
	if err != nil {
		return 0, err
	}
	idx := findIndex(header, data, column, value)
	if idx < 0 {
		return 0, apperr.New(apperr.NotFound, "workbook find", fmt.Sprintf("%s: no row with %s=%s", t, column, value))
	}
	return idx, nil
}

// Update overwrites a contiguous cell range of a data row.
func (w *Workbook) Update(_ context.Context, t Table, row, startCol int, values []string) error {
	if err := checkTable("workbook update", t); err != nil {
		return err
	}
	if startCol < 0 || startCol+len(values) > len(Schemas[t]) {
		return fmt.Errorf("workbook update: %s: range %d+%d exceeds columns", t, startCol, len(values))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, data, err := w.rows(t)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(data) {
		return apperr.New(apperr.NotFound, "workbook update", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	if err := w.writeRow(t, row+2, startCol, values); err != nil {
		return apperr.Wrap(apperr.Connection, "workbook update "+string(t), err)
	}
	return w.save()
}

// Delete removes a data row and shifts the rest up.
func (w *Workbook) Delete(_ context.Context, t Table, row int) error {
	if err := checkTable("workbook delete", t); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, data, err := w.rows(t)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(data) {
		return apperr.New(apperr.NotFound, "workbook delete", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	if err := w.f.RemoveRow(string(t), row+2); err != nil {
		return apperr.Wrap(apperr.Connection, "workbook delete "+string(t), err)
	}
	return w.save()
}

// Count returns the number of data rows.
func (w *Workbook) Count(_ context.Context, t Table) (int, error) {
	if err := checkTable("workbook count", t); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, data, err := w.rows(t)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
