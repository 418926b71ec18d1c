package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/game/ability"
	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

// hooks lists the events a script may handle by defining a global function
// of the same name, e.g. function attack_roll(ev) ... end.
var hooks = []event.Name{
	event.RoundStart, event.RoundEnd,
	event.BeginTurn, event.BeforeAction, event.AfterAction, event.EndTurn,
	event.Action,
	event.AttackRoll, event.AttackResult, event.DamageRoll,
	event.SavingThrow, event.SaveResult,
	event.Defeated, event.ResourceSpent, event.SpellCast,
}

// Ability is a script attached to one combatant for one encounter.
//
// Ability is not safe for concurrent use; it owns its LState.
type Ability struct {
	name      string
	proto     *lua.FunctionProto
	params    ability.Params
	instLimit int
	logger    *zap.Logger

	box   *Sandbox
	L     *lua.LState
	owner *combat.Combatant
	enc   *combat.Encounter
}

// ID returns the script name.
func (a *Ability) ID() string { return a.name }

// Attach creates the sandboxed state, runs the script body, and subscribes
// every hook function the script defines.
//
// Precondition: Attach is called at most once per Ability.
// Postcondition: a script error during load is returned and the state is closed.
func (a *Ability) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	if a.box != nil {
		return fmt.Errorf("script %s: already attached", a.name)
	}
	a.box = NewSandbox(a.instLimit)
	a.L, a.owner, a.enc = a.box.L, owner, enc
	a.registerModules()

	a.L.Push(a.L.NewFunctionFromProto(a.proto))
	a.box.Arm()
	if err := a.L.PCall(0, 0, nil); err != nil {
		a.Release()
		return fmt.Errorf("script %s: load: %w", a.name, err)
	}

	for _, name := range hooks {
		fn, ok := a.L.GetGlobal(string(name)).(*lua.LFunction)
		if !ok {
			continue
		}
		if _, err := enc.Bus().Subscribe(name, func(p event.Payload) error {
			return a.call(name, fn, p)
		}); err != nil {
			a.Release()
			return err
		}
	}
	return nil
}

// Release closes the script's state. It is safe to call more than once.
func (a *Ability) Release() {
	if a.box != nil {
		a.box.Close()
		a.box, a.L = nil, nil
	}
}

// call runs one hook with a fresh instruction budget and writes the
// script's changes back to the payload.
//
// Postcondition: Lua runtime errors and budget exhaustion are returned.
func (a *Ability) call(name event.Name, fn *lua.LFunction, p event.Payload) error {
	if a.L == nil {
		return fmt.Errorf("script %s: %s called after release", a.name, name)
	}
	tbl, writeBack := a.payloadTable(p)
	a.box.Arm()
	if err := a.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl); err != nil {
		return fmt.Errorf("script %s: %s: %w", a.name, name, err)
	}
	if writeBack != nil {
		writeBack()
	}
	return nil
}
