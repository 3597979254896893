package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"academy/internal/sheet"
)

// Tables serves reads of selected tables from a cache for up to window.
// Every write through it drops the written table's snapshot, so a process
// always reads its own writes. Find always goes to the backend because its
// row index is used for positional updates.
type Tables struct {
	sheet.Tables
	cache  Cache
	window time.Duration
	cached map[sheet.Table]bool
	logger *log.Logger
}

// NewTables wraps inner, caching only the listed tables.
func NewTables(inner sheet.Tables, c Cache, window time.Duration, logger *log.Logger, tables ...sheet.Table) *Tables {
	set := make(map[sheet.Table]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Tables{Tables: inner, cache: c, window: window, cached: set, logger: logger}
}

func key(t sheet.Table) string { return "table:" + string(t) }

// Records returns a cached snapshot when one is fresh.
func (c *Tables) Records(ctx context.Context, t sheet.Table) ([]sheet.Record, error) {
	if !c.cached[t] || c.window <= 0 {
		return c.Tables.Records(ctx, t)
	}
	var snap []sheet.Record
	if ok, err := c.cache.Get(ctx, key(t), &snap); err != nil {
		c.logger.Warn("cache read failed", "table", string(t), "err", err)
	} else if ok {
		return snap, nil
	}
	recs, err := c.Tables.Records(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key(t), recs, c.window); err != nil {
		c.logger.Warn("cache write failed", "table", string(t), "err", err)
	}
	return recs, nil
}

func (c *Tables) Append(ctx context.Context, t sheet.Table, rows [][]string) error {
	defer c.invalidate(ctx, t)
	return c.Tables.Append(ctx, t, rows)
}

func (c *Tables) Update(ctx context.Context, t sheet.Table, row, startCol int, values []string) error {
	defer c.invalidate(ctx, t)
	return c.Tables.Update(ctx, t, row, startCol, values)
}

func (c *Tables) Delete(ctx context.Context, t sheet.Table, row int) error {
	defer c.invalidate(ctx, t)
	return c.Tables.Delete(ctx, t, row)
}

// invalidate runs even when the write failed; a failed write may still
// have been partially applied.
func (c *Tables) invalidate(ctx context.Context, t sheet.Table) {
	if !c.cached[t] {
		return
	}
	if err := c.cache.Delete(ctx, key(t)); err != nil {
		c.logger.Warn("cache invalidate failed", "table", string(t), "err", err)
	}
}
