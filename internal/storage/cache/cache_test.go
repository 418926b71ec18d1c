package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dpr/internal/sim"
	"github.com/cory-johannsen/dpr/internal/storage/cache"
	"github.com/cory-johannsen/dpr/internal/testutil"
)

func report() *sim.Report {
	return &sim.Report{
		ID:        uuid.NewString(),
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Request:   sim.Request{Party: []string{"fighter"}, Levels: []int{5}, Iterations: 100},
		Rows: []sim.Row{{
			Level: 5, Label: "fighter",
			DPR:    sim.Summary{N: 100, Mean: 7.5, StdDev: 1.2},
			Wins:   280, Stalemates: 20,
			Spends: map[string]int{"action_surge": 300},
		}},
		Completed: 100,
		Elapsed:   250 * time.Millisecond,
	}
}

func TestReportCache_SetGet(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := cache.NewReportCache(client, time.Hour)
	ctx := context.Background()

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	rep := report()
	require.NoError(t, c.Set(ctx, "abc", rep))
	assert.True(t, mr.Exists("dpr:report:abc"))
	assert.Equal(t, time.Hour, mr.TTL("dpr:report:abc"))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, rep, got)
}

func TestReportCache_Expires(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := cache.NewReportCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", report()))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestReportCache_NoTTL(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := cache.NewReportCache(client, 0)

	require.NoError(t, c.Set(context.Background(), "abc", report()))
	assert.Equal(t, time.Duration(0), mr.TTL("dpr:report:abc"))
}

func TestReportCache_Delete(t *testing.T) {
	_, client := testutil.NewRedis(t)
	c := cache.NewReportCache(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", report()))
	require.NoError(t, c.Delete(ctx, "abc"))
	require.NoError(t, c.Delete(ctx, "abc"))

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestReportCache_CorruptEntry(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	c := cache.NewReportCache(client, time.Hour)

	require.NoError(t, mr.Set("dpr:report:abc", "{not json"))
	_, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrCacheMiss)
}
