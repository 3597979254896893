package sheet

import (
	"context"
	"fmt"
	"sync"

	"academy/internal/apperr"
)

// Memory keeps tables in process memory. Used for dev runs and tests.
type Memory struct {
	mu   sync.Mutex
	rows map[Table][][]string
}

// NewMemory creates empty tables for every schema.
func NewMemory() *Memory {
	m := &Memory{rows: make(map[Table][][]string, len(Schemas))}
	for t := range Schemas {
		m.rows[t] = nil
	}
	return m
}

// Records returns all rows of t in insertion order.
func (m *Memory) Records(_ context.Context, t Table) ([]Record, error) {
	if err := checkTable("memory records", t); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return toRecords(Schemas[t], m.rows[t]), nil
}

// Append adds rows to the end of t.
func (m *Memory) Append(_ context.Context, t Table, rows [][]string) error {
	if err := checkTable("memory append", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		cp := make([]string, len(row))
		copy(cp, row)
		m.rows[t] = append(m.rows[t], cp)
	}
	return nil
}

// Find returns the index of the first row whose column equals value.
func (m *Memory) Find(_ context.Context, t Table, column, value string) (int, error) {
	if err := checkTable("memory find", t); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := findIndex(Schemas[t], m.rows[t], column, value)
	if idx < 0 {
		return 0, apperr.New(apperr.NotFound, "memory find", fmt.Sprintf("%s: no row with %s=%s", t, column, value))
	}
	return idx, nil
}

// Update overwrites a contiguous range of cells starting at startCol.
func (m *Memory) Update(_ context.Context, t Table, row, startCol int, values []string) error {
	if err := checkTable("memory update", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[t]
	if row < 0 || row >= len(rows) {
		return apperr.New(apperr.NotFound, "memory update", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	if startCol < 0 || startCol+len(values) > len(Schemas[t]) {
		return fmt.Errorf("memory update: %s: range %d+%d exceeds columns", t, startCol, len(values))
	}
	for len(rows[row]) < startCol+len(values) {
		rows[row] = append(rows[row], "")
	}
	copy(rows[row][startCol:], values)
	return nil
}

// Delete removes a row.
func (m *Memory) Delete(_ context.Context, t Table, row int) error {
	if err := checkTable("memory delete", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[t]
	if row < 0 || row >= len(rows) {
		return apperr.New(apperr.NotFound, "memory delete", fmt.Sprintf("%s: row %d out of range", t, row))
	}
	m.rows[t] = append(rows[:row], rows[row+1:]...)
	return nil
}

// Count returns the number of data rows in t.
func (m *Memory) Count(_ context.Context, t Table) (int, error) {
	if err := checkTable("memory count", t); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[t]), nil
}
