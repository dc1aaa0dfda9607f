package repository

import (
	"context"
	"testing"
	"time"

	"payout-invoice-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string) *models.ValidationRun {
	return &models.ValidationRun{
		ID:     id,
		Status: models.RunValid,
		Params: models.RunParams{SpreadsheetID: "sheet", RangeName: "A:Z", MaxPDFs: -1},
		Invoices: []models.OwnerInvoice{{
			Name:   "Alice",
			Period: "W1",
			Restaurants: []models.RestaurantBreakdown{{
				Name:      "R1",
				Platforms: []models.PlatformBreakdown{{Platform: "DoorDash", Orders: 5, GrossPay: 50}},
			}},
			Financials: models.Financials{TotalPayout: 50, AggregatorFee: 5},
		}},
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRunStore_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(time.Hour)
	require.NoError(t, store.Save(ctx, sampleRun("r1")))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	taken, err := store.Take(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", taken.Invoices[0].Name)

	_, err = store.Take(ctx, "r1")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = store.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryRunStore_IsolatesRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(time.Hour)
	require.NoError(t, store.Save(ctx, sampleRun("a")))
	require.NoError(t, store.Save(ctx, sampleRun("b")))

	_, err := store.Take(ctx, "a")
	require.NoError(t, err)

	_, err = store.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryRunStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryRunStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, sampleRun("old")))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, sampleRun("new")))

	now = now.Add(45 * time.Second)
	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Equal(t, 0, store.Sweep())
	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	_, err = store.Get(ctx, "new")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryRunStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(time.Hour)
	require.NoError(t, store.Save(ctx, sampleRun("gone")))

	require.NoError(t, store.Delete(ctx, "gone"))
	require.NoError(t, store.Delete(ctx, "never-existed"))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisRunStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRunStore(client, ttl), mr
}

func TestRedisRunStore_RoundTripAndTake(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	run := sampleRun("r1")
	require.NoError(t, store.Save(ctx, run))
	assert.True(t, mr.Exists(runKeyPrefix+"r1"))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, run.Invoices, got.Invoices)
	assert.Equal(t, run.Params, got.Params)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	_, err = store.Take(ctx, "r1")
	require.NoError(t, err)
	_, err = store.Take(ctx, "r1")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.False(t, mr.Exists(runKeyPrefix+"r1"))
}

func TestRedisRunStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, store.Save(ctx, sampleRun("r1")))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRedisRunStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, store.Save(ctx, sampleRun("r1")))

	require.NoError(t, store.Delete(ctx, "r1"))

	assert.False(t, mr.Exists(runKeyPrefix+"r1"))
}
