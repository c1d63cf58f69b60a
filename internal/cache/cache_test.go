package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestRedisCacheSetGet(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	c, err := newRedisCache(mr.Addr())
	assert.NoError(t, err)

	ctx := context.Background()
	err = c.Set(ctx, "rent:token-account", uint64(2039280), time.Hour)
	assert.NoError(t, err)

	var got uint64
	err = c.Get(ctx, "rent:token-account", &got)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2039280), got)

	// A miss leaves the target untouched and returns no error.
	var missing uint64
	err = c.Get(ctx, "rent:missing", &missing)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), missing)

	err = c.Delete(ctx, "rent:token-account")
	assert.NoError(t, err)
}

func TestLocalCacheFallback(t *testing.T) {
	c := newLocalCache()
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "fee:SOL", 0.005, time.Minute))
	var got float64
	assert.NoError(t, c.Get(ctx, "fee:SOL", &got))
	assert.Equal(t, 0.005, got)
}
