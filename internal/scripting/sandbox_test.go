package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpr/internal/scripting"
)

func sandbox(t *testing.T, instLimit int) *scripting.Sandbox {
	t.Helper()
	box := scripting.NewSandbox(instLimit)
	t.Cleanup(box.Close)
	return box
}

func TestSandbox_RestrictedGlobals(t *testing.T) {
	box := sandbox(t, 0)
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, box.L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestSandbox_SafeLibsAvailable(t *testing.T) {
	box := sandbox(t, 0)
	assert.NoError(t, box.L.DoString(`
		assert(math.sqrt(4) == 2.0)
		assert(string.upper("hit") == "HIT")
		local t = {3, 1, 2}
		table.sort(t)
		assert(t[1] == 1)
	`))
}

func TestSandbox_NoUnseededRandom(t *testing.T) {
	box := sandbox(t, 0)
	assert.Error(t, box.L.DoString(`return math.random(20)`))
	assert.Error(t, box.L.DoString(`math.randomseed(1)`))
	assert.NoError(t, box.L.DoString(`return math.floor(2.5)`))
}

func TestSandbox_InstructionLimit(t *testing.T) {
	box := sandbox(t, 10)
	err := box.L.DoString(`while true do end`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), scripting.ErrInstructionLimit.Error())
}

func TestSandbox_ArmRestoresBudget(t *testing.T) {
	box := sandbox(t, 200)
	require.Error(t, box.L.DoString(`while true do end`))

	// Without re-arming the exhausted budget stops the next chunk at once.
	assert.Error(t, box.L.DoString(`local x = 1`))

	box.Arm()
	assert.NoError(t, box.L.DoString(`local n = 0 for i = 1, 10 do n = n + i end`))
}

func TestSandbox_CloseIsIdempotent(t *testing.T) {
	box := scripting.NewSandbox(0)
	box.Close()
	box.Close()
	assert.Nil(t, box.L)
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		box := scripting.NewSandbox(limit)
		defer box.Close()
		if err := box.L.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
