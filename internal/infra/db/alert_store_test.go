package db

import (
	"context"
	"testing"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newStore(t *testing.T) (*AlertStore, *fakeClock) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(conn))

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewAlertStore(conn)
	store.now = clock.Now
	return store, clock
}

func key(user, pair string, threshold int64) domain.AlertKey {
	return domain.AlertKey{
		UserID:      user,
		PairAddress: pair,
		Metric:      domain.MetricMarketCap,
		Direction:   domain.DirectionBelow,
		Threshold:   decimal.NewFromInt(threshold),
	}
}

func TestPutExistsExpire(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	k := key("7", "0xpair", 500)

	require.NoError(t, store.Put(ctx, k, 10))
	ok, err := store.Exists(ctx, k)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(9 * time.Minute)
	ok, err = store.Exists(ctx, k)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	ok, err = store.Exists(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := store.ListKeys(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPutOverwritesExpiry(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	k := key("7", "0xpair", 500)

	require.NoError(t, store.Put(ctx, k, 1))
	clock.Advance(30 * time.Second)
	require.NoError(t, store.Put(ctx, k, 5))
	clock.Advance(2 * time.Minute)

	ok, err := store.Exists(ctx, k)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPutIfAbsent(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	k := key("7", "0xpair", 500)

	created, err := store.PutIfAbsent(ctx, k, 1)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.PutIfAbsent(ctx, k, 1)
	require.NoError(t, err)
	assert.False(t, created)

	clock.Advance(time.Minute)
	created, err = store.PutIfAbsent(ctx, k, 1)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, key("7", "0xa", 1), 5))
	require.NoError(t, store.Put(ctx, key("7", "0xa", 2), 5))
	require.NoError(t, store.Put(ctx, key("7", "0xb", 3), 5))
	require.NoError(t, store.Put(ctx, key("8", "0xa", 1), 5))

	require.NoError(t, store.Delete(ctx, key("7", "0xa", 1)))
	require.NoError(t, store.Delete(ctx, key("7", "0xa", 1)))

	n, err := store.DeleteAll(ctx, "7", "0xa")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys, err := store.ListKeys(ctx, "7")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "7:0xb:market_cap:below:3.0", keys[0].String())

	n, err = store.DeleteAll(ctx, "7", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys, err = store.ListKeys(ctx, "8")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestPurgeExpired(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, key("7", "0xa", 1), 1))
	require.NoError(t, store.Put(ctx, key("7", "0xb", 1), 10))
	clock.Advance(2 * time.Minute)

	n, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
