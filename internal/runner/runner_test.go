package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dpr/internal/runner"
	runnermock "github.com/cory-johannsen/dpr/internal/runner/mock"
	"github.com/cory-johannsen/dpr/internal/sim"
	"github.com/cory-johannsen/dpr/internal/storage/cache"
	"github.com/cory-johannsen/dpr/internal/storage/postgres"
	"github.com/cory-johannsen/dpr/internal/testutil"
)

var request = sim.Request{Party: []string{"fighter"}, Levels: []int{5}, Iterations: 50, Seed: 7}

func anyCtx() gomock.Matcher { return gomock.Any() }

type mocks struct {
	sim   *runnermock.MockSimulator
	store *runnermock.MockStore
	cache *runnermock.MockCache
	logs  *observer.ObservedLogs
	svc   *runner.Service
}

func newMocks(t *testing.T) *mocks {
	t.Helper()
	ctrl := gomock.NewController(t)
	core, logs := observer.New(zap.DebugLevel)
	m := &mocks{
		sim:   runnermock.NewMockSimulator(ctrl),
		store: runnermock.NewMockStore(ctrl),
		cache: runnermock.NewMockCache(ctrl),
		logs:  logs,
	}
	m.svc = runner.New(m.sim,
		runner.WithStore(m.store),
		runner.WithCache(m.cache),
		runner.WithLogger(zap.New(core)),
	)
	return m
}

func key(t *testing.T, req sim.Request) string {
	t.Helper()
	k, err := runner.Key(req)
	require.NoError(t, err)
	return k
}

func TestKey_Canonical(t *testing.T) {
	base := key(t, request)
	assert.Len(t, base, 64)

	explicit := request
	explicit.RoundsPerEncounter = sim.DefaultRounds
	explicit.Levels = []int{5, 5}
	explicit.Workers = 8
	explicit.Budget = time.Second
	assert.Equal(t, base, key(t, explicit))

	other := request
	other.Seed = 8
	assert.NotEqual(t, base, key(t, other))
}

func TestRun_CacheHit(t *testing.T) {
	m := newMocks(t)
	rep := &sim.Report{ID: "cached"}
	m.cache.EXPECT().Get(anyCtx(), key(t, request)).Return(rep, nil)

	got, src, err := m.svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Equal(t, runner.FromCache, src)
}

func TestRun_StoreHitFillsCache(t *testing.T) {
	m := newMocks(t)
	k := key(t, request)
	rep := &sim.Report{ID: "stored"}
	gomock.InOrder(
		m.cache.EXPECT().Get(anyCtx(), k).Return(nil, cache.ErrCacheMiss),
		m.store.EXPECT().Latest(anyCtx(), k).Return(rep, nil),
		m.cache.EXPECT().Set(anyCtx(), k, rep).Return(nil),
	)

	got, src, err := m.svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Equal(t, runner.FromStore, src)
}

func TestRun_MissSimulatesAndPersists(t *testing.T) {
	m := newMocks(t)
	k := key(t, request)
	rep := &sim.Report{ID: "fresh"}
	gomock.InOrder(
		m.cache.EXPECT().Get(anyCtx(), k).Return(nil, cache.ErrCacheMiss),
		m.store.EXPECT().Latest(anyCtx(), k).Return(nil, postgres.ErrReportNotFound),
		m.sim.EXPECT().Run(anyCtx(), request).Return(rep, nil),
		m.store.EXPECT().Save(anyCtx(), k, rep).Return(nil),
		m.cache.EXPECT().Set(anyCtx(), k, rep).Return(nil),
	)

	got, src, err := m.svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Equal(t, runner.FromSimulator, src)
	assert.Zero(t, m.logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestRun_LookupFailuresFallThrough(t *testing.T) {
	m := newMocks(t)
	k := key(t, request)
	rep := &sim.Report{ID: "fresh"}
	m.cache.EXPECT().Get(anyCtx(), k).Return(nil, errors.New("connection refused"))
	m.store.EXPECT().Latest(anyCtx(), k).Return(nil, errors.New("pool closed"))
	m.sim.EXPECT().Run(anyCtx(), request).Return(rep, nil)
	m.store.EXPECT().Save(anyCtx(), k, rep).Return(nil)
	m.cache.EXPECT().Set(anyCtx(), k, rep).Return(errors.New("connection refused"))

	got, _, err := m.svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Same(t, rep, got)
	assert.Equal(t, 3, m.logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestRun_RefreshSkipsLookups(t *testing.T) {
	m := newMocks(t)
	k := key(t, request)
	rep := &sim.Report{ID: "fresh"}
	m.sim.EXPECT().Run(anyCtx(), request).Return(rep, nil)
	m.store.EXPECT().Save(anyCtx(), k, rep).Return(nil)
	m.cache.EXPECT().Set(anyCtx(), k, rep).Return(nil)

	_, src, err := m.svc.Run(context.Background(), request, runner.Options{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, runner.FromSimulator, src)
}

func TestRun_LoggedRequestsAlwaysSimulate(t *testing.T) {
	m := newMocks(t)
	req := request
	req.LogIterations = 1
	rep := &sim.Report{ID: "fresh"}
	m.sim.EXPECT().Run(anyCtx(), req).Return(rep, nil)
	m.store.EXPECT().Save(anyCtx(), key(t, req), rep).Return(nil)
	m.cache.EXPECT().Set(anyCtx(), key(t, req), rep).Return(nil)

	_, src, err := m.svc.Run(context.Background(), req, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, runner.FromSimulator, src)
}

func TestRun_TruncatedNotPersisted(t *testing.T) {
	m := newMocks(t)
	rep := &sim.Report{ID: "partial", Truncated: true}
	m.sim.EXPECT().Run(anyCtx(), request).Return(rep, nil)

	got, src, err := m.svc.Run(context.Background(), request, runner.Options{Refresh: true})
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Equal(t, runner.FromSimulator, src)
}

func TestRun_Errors(t *testing.T) {
	t.Run("simulation", func(t *testing.T) {
		m := newMocks(t)
		m.sim.EXPECT().Run(anyCtx(), request).Return(nil, sim.ErrFailureTolerance)
		_, _, err := m.svc.Run(context.Background(), request, runner.Options{Refresh: true})
		assert.ErrorIs(t, err, sim.ErrFailureTolerance)
	})
	t.Run("save", func(t *testing.T) {
		m := newMocks(t)
		rep := &sim.Report{ID: "fresh"}
		m.sim.EXPECT().Run(anyCtx(), request).Return(rep, nil)
		m.store.EXPECT().Save(anyCtx(), gomock.Any(), rep).Return(postgres.ErrReportExists)
		_, _, err := m.svc.Run(context.Background(), request, runner.Options{Refresh: true})
		assert.ErrorIs(t, err, postgres.ErrReportExists)
	})
}

func TestRun_WithoutBackends(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := runnermock.NewMockSimulator(ctrl)
	rep := &sim.Report{ID: "fresh"}
	s.EXPECT().Run(anyCtx(), request).Return(rep, nil).Times(2)

	svc := runner.New(s)
	for range 2 {
		_, src, err := svc.Run(context.Background(), request, runner.Options{})
		require.NoError(t, err)
		assert.Equal(t, runner.FromSimulator, src)
	}
}

func TestRun_RedisCacheServesRepeatRequests(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctrl := gomock.NewController(t)
	s := runnermock.NewMockSimulator(ctrl)
	rep := &sim.Report{ID: "fresh", Request: request, Rows: []sim.Row{{Level: 5, Label: "fighter"}}}
	s.EXPECT().Run(anyCtx(), request).Return(rep, nil).Times(1)

	svc := runner.New(s, runner.WithCache(cache.NewReportCache(client, time.Hour)))
	_, src, err := svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, runner.FromSimulator, src)

	got, src, err := svc.Run(context.Background(), request, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, runner.FromCache, src)
	assert.Equal(t, "fresh", got.ID)
	assert.Equal(t, rep.Rows, got.Rows)
}
