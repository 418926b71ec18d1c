package dice_test

import (
	"testing"

	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRoller_LogsEveryRollAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewSequence(2, 4), zap.New(core))

	res, err := r.Roll(dice.MustParse("2d6+4"))
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total())

	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(12), entries[0].ContextMap()["total"])
}

func TestRoller_NilLoggerIsNop(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSequence(19, 0), nil)
	d := r.RollD20()
	assert.Equal(t, dice.D20{First: 20, Second: 1}, d)
}

func TestRoller_RollModeKeepsByMode(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewSequence(3, 16, 3, 16, 9), zap.New(core))

	assert.Equal(t, 17, r.RollMode(dice.Advantage))
	assert.Equal(t, 4, r.RollMode(dice.Disadvantage))
	assert.Equal(t, 10, r.RollMode(dice.Normal))
	assert.Len(t, logs.FilterMessage("d20 roll").All(), 2)
}
