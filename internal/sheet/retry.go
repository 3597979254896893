package sheet

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"academy/internal/apperr"
)

// Retrying wraps a backend so that reads get exactly one fixed-delay retry
// after a rate-limit failure. Writes are passed through untouched; the
// operator decides whether to resubmit them.
type Retrying struct {
	Tables
	delay   time.Duration
	logger  *log.Logger
	onRetry func(op string)
}

// NewRetrying wraps inner. onRetry may be nil.
func NewRetrying(inner Tables, delay time.Duration, logger *log.Logger, onRetry func(op string)) *Retrying {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retrying{Tables: inner, delay: delay, logger: logger, onRetry: onRetry}
}

// Records reads a table, retrying once on a rate-limit response.
func (r *Retrying) Records(ctx context.Context, t Table) ([]Record, error) {
	var out []Record
	err := r.do(ctx, "records", t, func() error {
		var err error
		out, err = r.Tables.Records(ctx, t)
		return err
	})
	return out, err
}

// Find locates a row, retrying once on a rate-limit response.
func (r *Retrying) Find(ctx context.Context, t Table, column, value string) (int, error) {
	var idx int
	err := r.do(ctx, "find", t, func() error {
		var err error
		idx, err = r.Tables.Find(ctx, t, column, value)
		return err
	})
	return idx, err
}

// Count counts rows, retrying once on a rate-limit response.
func (r *Retrying) Count(ctx context.Context, t Table) (int, error) {
	var n int
	err := r.do(ctx, "count", t, func() error {
		var err error
		n, err = r.Tables.Count(ctx, t)
		return err
	})
	return n, err
}

func (r *Retrying) do(ctx context.Context, op string, t Table, fn func() error) error {
	err := fn()
	if !apperr.Is(err, apperr.RateLimited) {
		return err
	}
	r.logger.Warn("backing store rate limited, retrying once", "op", op, "table", string(t), "delay", r.delay)
	if r.onRetry != nil {
		r.onRetry(op)
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return fn()
}
