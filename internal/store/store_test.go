package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
)

func TestRedisConnects(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, srv.Addr(), "")
	require.NoError(t, err)
	assert.True(t, r.Healthy(ctx))

	require.NoError(t, r.Close())
	assert.False(t, r.Healthy(ctx))
}

func TestRedisUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedis(context.Background(), addr, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Connection))
}

func TestNilHandles(t *testing.T) {
	var r *Redis
	var d *DB
	ctx := context.Background()
	assert.False(t, r.Healthy(ctx))
	assert.False(t, d.Healthy(ctx))
	assert.NoError(t, r.Close())
	assert.NoError(t, d.Close())
}
