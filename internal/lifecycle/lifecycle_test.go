package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	order *[]string
	name  string
	err   error
}

func (r recorder) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestLifecycle_ClosesInReverseOrder(t *testing.T) {
	var order []string
	lc := New(zaptest.NewLogger(t))
	lc.Add("db", recorder{order: &order, name: "db"})
	lc.Add("cache", recorder{order: &order, name: "cache"})

	ran := false
	err := lc.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		assert.NoError(t, ctx.Err())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"cache", "db"}, order)

	require.NoError(t, lc.Close())
	assert.Len(t, order, 2)
}

func TestLifecycle_ResourcesAddedDuringRun(t *testing.T) {
	var order []string
	lc := New(nil)
	err := lc.Run(context.Background(), func(context.Context) error {
		lc.Add("pool", recorder{order: &order, name: "pool"})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pool"}, order)
}

func TestLifecycle_JoinsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var order []string
	closeErr := errors.New("connection reset")
	runErr := errors.New("simulation failed")

	lc := New(zap.New(core))
	lc.Add("db", recorder{order: &order, name: "db", err: closeErr})
	lc.Add("cache", recorder{order: &order, name: "cache"})

	err := lc.Run(context.Background(), func(context.Context) error { return runErr })
	assert.ErrorIs(t, err, runErr)
	assert.ErrorIs(t, err, closeErr)
	assert.ErrorContains(t, err, "closing db")
	assert.Equal(t, []string{"cache", "db"}, order)
	assert.Equal(t, 1, logs.FilterMessage("closing resource failed").Len())
}

func TestLifecycle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Run(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuiet(t *testing.T) {
	called := false
	require.NoError(t, Quiet(func() { called = true }).Close())
	assert.True(t, called)
}
