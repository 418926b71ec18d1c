package scripting

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// registerModules defines the engine global for the script:
//
//	engine.params                   feature parameters from the definition
//	engine.self()                   the owner as a combatant table
//	engine.round()                  current round number
//	engine.roll(expr)               total of a dice expression such as "2d6+1"
//	engine.d20(mode)                one d20 check; mode is "advantage", "disadvantage" or omitted
//	engine.spend(name, n)           spend a resource; true on success
//	engine.resource(name)           current amount of a resource
//	engine.flag(name)               encounter counter, 0 when unset
//	engine.set_flag(name, n)
//	engine.turn_flag(name)          flag cleared at the start of the owner's turn
//	engine.set_turn_flag(name)
//	engine.apply_condition(id, condition, rounds)
//	engine.grant_temp_hp(id, n)     temporary hit points; the higher value wins
//	engine.modifier(stat)           the owner's ability modifier, e.g. "cha"
//	engine.log(msg)                 debug log line
//
// Precondition: a.L, a.owner and a.enc are set.
func (a *Ability) registerModules() {
	L := a.L
	engine := L.NewTable()
	engine.RawSetString("params", toLValue(L, map[string]any(a.params)))

	fns := map[string]lua.LGFunction{
		"self": func(L *lua.LState) int {
			L.Push(a.combatantTable(a.owner))
			return 1
		},
		"round": func(L *lua.LState) int {
			L.Push(lua.LNumber(a.enc.Round()))
			return 1
		},
		"roll": func(L *lua.LState) int {
			expr, err := dice.Parse(L.CheckString(1))
			if err != nil {
				L.RaiseError("engine.roll: %s", err.Error())
				return 0
			}
			res, err := a.enc.Roller().Roll(expr)
			if err != nil {
				L.RaiseError("engine.roll: %s", err.Error())
				return 0
			}
			L.Push(lua.LNumber(res.Total()))
			return 1
		},
		"d20": func(L *lua.LState) int {
			mode := dice.Normal
			switch m := L.OptString(1, ""); m {
			case "":
			case "advantage":
				mode = dice.Advantage
			case "disadvantage":
				mode = dice.Disadvantage
			default:
				L.ArgError(1, "unknown mode "+m)
				return 0
			}
			L.Push(lua.LNumber(a.enc.Roller().RollMode(mode)))
			return 1
		},
		"spend": func(L *lua.LState) int {
			ok, err := a.enc.Spend(a.owner, L.CheckString(1), L.OptInt(2, 1))
			if err != nil {
				L.RaiseError("engine.spend: %s", err.Error())
				return 0
			}
			L.Push(lua.LBool(ok))
			return 1
		},
		"resource": func(L *lua.LState) int {
			L.Push(lua.LNumber(a.owner.Resources.Current(L.CheckString(1))))
			return 1
		},
		"flag": func(L *lua.LState) int {
			L.Push(lua.LNumber(a.owner.Flag(L.CheckString(1))))
			return 1
		},
		"set_flag": func(L *lua.LState) int {
			a.owner.SetFlag(L.CheckString(1), L.CheckInt(2))
			return 0
		},
		"turn_flag": func(L *lua.LState) int {
			L.Push(lua.LBool(a.owner.TurnFlag(L.CheckString(1))))
			return 1
		},
		"set_turn_flag": func(L *lua.LState) int {
			a.owner.SetTurnFlag(L.CheckString(1))
			return 0
		},
		"apply_condition": func(L *lua.LState) int {
			target := a.enc.Combatant(L.CheckString(1))
			if target == nil {
				L.ArgError(1, "unknown combatant")
				return 0
			}
			if err := a.enc.ApplyCondition(target, L.CheckString(2), L.OptInt(3, 1), a.name); err != nil {
				L.RaiseError("engine.apply_condition: %s", err.Error())
			}
			return 0
		},
		"grant_temp_hp": func(L *lua.LState) int {
			target := a.enc.Combatant(L.CheckString(1))
			if target == nil {
				L.ArgError(1, "unknown combatant")
				return 0
			}
			target.GrantTempHP(L.CheckInt(2))
			a.enc.Logf(combat.LogHeal, a.owner, target, target.TempHP, "%s grants temporary hit points", a.name)
			return 0
		},
		"modifier": func(L *lua.LState) int {
			L.Push(lua.LNumber(a.owner.Def.Mod(creature.Stat(L.CheckString(1)))))
			return 1
		},
		"log": func(L *lua.LState) int {
			a.logger.Debug("script log",
				zap.String("owner", a.owner.ID),
				zap.Int("round", a.enc.Round()),
				zap.String("msg", L.CheckString(1)),
			)
			return 0
		},
	}
	for name, fn := range fns {
		engine.RawSetString(name, L.NewFunction(fn))
	}
	L.SetGlobal("engine", engine)
}

// combatantTable snapshots c for a script.
func (a *Ability) combatantTable(c *combat.Combatant) lua.LValue {
	if c == nil {
		return lua.LNil
	}
	t := a.L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name()))
	t.RawSetString("team", lua.LString(c.Team))
	t.RawSetString("level", lua.LNumber(c.Def.Level))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP()))
	t.RawSetString("temp_hp", lua.LNumber(c.TempHP))
	t.RawSetString("ac", lua.LNumber(c.AC()))
	t.RawSetString("is_self", lua.LBool(c == a.owner))
	conds := a.L.NewTable()
	for _, ac := range c.Conditions.All() {
		conds.Append(lua.LString(ac.Def.ID))
	}
	t.RawSetString("conditions", conds)
	return t
}

// toLValue converts decoded YAML parameter values into Lua values.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []any:
		t := L.NewTable()
		for _, item := range x {
			t.Append(toLValue(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, item := range x {
			t.Append(lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, toLValue(L, x[k]))
		}
		return t
	default:
		return lua.LNil
	}
}
