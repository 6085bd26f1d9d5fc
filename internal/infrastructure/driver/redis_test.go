package driver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := NewRedisClientWithAddr(mr.Addr(), "")
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, rdb.Ping(ctx))

	_, err := rdb.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, rdb.SetEX(ctx, "token", "v", time.Minute))
	v, err := rdb.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := rdb.Exists(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = rdb.Exists(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rdb.SetEX(ctx, "gone", "v", 0))
	require.NoError(t, rdb.Delete(ctx, "gone"))
	_, err = rdb.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
