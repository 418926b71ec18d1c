// Package scripting runs ability modules written in Lua. Scripts are compiled
// once per run and executed in a fresh sandboxed GopherLua state for every
// encounter, so nothing is shared between iterations.
package scripting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// hook call when no override is configured.
const DefaultInstructionLimit = 100_000

// ErrInstructionLimit is the cause reported when a hook exhausts its budget.
var ErrInstructionLimit = errors.New("instruction limit exceeded")

// budget is a context whose Done channel closes after a fixed number of
// calls. GopherLua's context loop calls Done once per opcode, so the count
// is an exact instruction limit. Coroutines derive child contexts that may
// watch Done from another goroutine.
type budget struct {
	context.Context
	limit     int64
	remaining atomic.Int64

	mu        sync.Mutex
	done      chan struct{}
	exhausted bool
}

func newBudget(limit int) *budget {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	b := &budget{Context: context.Background(), limit: int64(limit), done: make(chan struct{})}
	b.remaining.Store(b.limit)
	return b
}

// reset restores the full allowance. The channel is replaced only after it
// has been closed, so steady-state hook calls do not allocate.
func (b *budget) reset() {
	b.mu.Lock()
	if b.exhausted {
		b.done = make(chan struct{})
		b.exhausted = false
	}
	b.mu.Unlock()
	b.remaining.Store(b.limit)
}

func (b *budget) Done() <-chan struct{} {
	left := b.remaining.Add(-1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if left <= 0 && !b.exhausted {
		b.exhausted = true
		close(b.done)
	}
	return b.done
}

func (b *budget) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exhausted {
		return ErrInstructionLimit
	}
	return nil
}

// Sandbox is a GopherLua state restricted to safe libraries, with an
// instruction budget that is re-armed before every call.
type Sandbox struct {
	L      *lua.LState
	budget *budget
}

// NewSandbox creates a state with:
//   - only the base, table, string and math libraries
//   - dofile, loadfile, load, collectgarbage and require removed
//   - math.random and math.randomseed removed
//   - a budget of instLimit opcodes per call
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns the Sandbox and must call Close.
func NewSandbox(instLimit int) *Sandbox {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Dice must come from the iteration's seeded source.
	if m, ok := L.GetGlobal("math").(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	b := newBudget(instLimit)
	L.SetContext(b)
	return &Sandbox{L: L, budget: b}
}

// Arm restores the full instruction budget. Call it before every entry into
// the VM.
func (s *Sandbox) Arm() {
	s.budget.reset()
}

// Close releases the state. It is safe to call more than once.
func (s *Sandbox) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}
