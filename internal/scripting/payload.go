package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

// payloadTable converts p into the table handed to a hook. The returned
// function copies the fields a script may change back into p; it is nil for
// read-only payloads.
func (a *Ability) payloadTable(p event.Payload) (*lua.LTable, func()) {
	L := a.L
	t := L.NewTable()
	t.RawSetString("event", lua.LString(p.EventName()))
	t.RawSetString("round", lua.LNumber(a.enc.Round()))

	switch v := p.(type) {
	case *combat.RoundMarker:
		return t, nil

	case *combat.Turn:
		t.RawSetString("actor", a.combatantTable(v.Actor))
		t.RawSetString("actions", lua.LNumber(v.Actions))
		t.RawSetString("bonus_actions", lua.LNumber(v.BonusActions))
		return t, func() {
			v.Actions = intField(t, "actions", v.Actions)
			v.BonusActions = intField(t, "bonus_actions", v.BonusActions)
		}

	case *combat.ActionChoice:
		t.RawSetString("actor", a.combatantTable(v.Actor))
		t.RawSetString("bonus", lua.LBool(v.Bonus))
		t.RawSetString("handled", lua.LBool(v.Handled))
		if v.Action != nil {
			t.RawSetString("action", lua.LString(v.Action.Source))
		}
		return t, func() { v.Handled = boolField(t, "handled", v.Handled) }

	case *combat.AttackRoll:
		t.RawSetString("attacker", a.combatantTable(v.Attacker))
		t.RawSetString("target", a.combatantTable(v.Target))
		a.actionFields(t, v.Action)
		t.RawSetString("first", lua.LNumber(v.Roll.First))
		t.RawSetString("second", lua.LNumber(v.Roll.Second))
		t.RawSetString("natural", lua.LNumber(v.Natural()))
		t.RawSetString("hits", lua.LBool(v.Hits()))
		t.RawSetString("to_hit", lua.LNumber(v.ToHit))
		t.RawSetString("situational", lua.LNumber(v.Situational))
		t.RawSetString("advantage", lua.LBool(v.Advantage))
		t.RawSetString("disadvantage", lua.LBool(v.Disadvantage))
		t.RawSetString("crit_threshold", lua.LNumber(v.CritThreshold))
		t.RawSetString("defense", lua.LNumber(v.Defense))
		return t, func() {
			v.Situational = intField(t, "situational", v.Situational)
			v.Advantage = boolField(t, "advantage", v.Advantage)
			v.Disadvantage = boolField(t, "disadvantage", v.Disadvantage)
			v.CritThreshold = intField(t, "crit_threshold", v.CritThreshold)
			a.tagsBack(t, v.Action)
		}

	case *combat.AttackResult:
		t.RawSetString("attacker", a.combatantTable(v.Attacker))
		t.RawSetString("target", a.combatantTable(v.Target))
		a.actionFields(t, v.Action)
		t.RawSetString("natural", lua.LNumber(v.Natural))
		t.RawSetString("total", lua.LNumber(v.Total))
		t.RawSetString("defense", lua.LNumber(v.Defense))
		t.RawSetString("hit", lua.LBool(v.Hit))
		t.RawSetString("critical", lua.LBool(v.Critical))
		t.RawSetString("add_damage", L.NewFunction(func(L *lua.LState) int {
			v.Damage = append(v.Damage, combat.DamageComponent{
				Source: a.name,
				Count:  L.CheckInt(1),
				Sides:  L.CheckInt(2),
				Flat:   L.OptInt(3, 0),
				Type:   L.OptString(4, primaryType(v.Action)),
				OnMiss: !v.Hit,
			})
			return 0
		}))
		return t, func() {
			v.Critical = boolField(t, "critical", v.Critical)
			a.tagsBack(t, v.Action)
		}

	case *combat.DamageRoll:
		t.RawSetString("attacker", a.combatantTable(v.Attacker))
		t.RawSetString("target", a.combatantTable(v.Target))
		a.actionFields(t, v.Action)
		t.RawSetString("critical", lua.LBool(v.Critical))
		t.RawSetString("save", lua.LBool(v.Save))
		t.RawSetString("multiplier", lua.LNumber(v.Multiplier))
		t.RawSetString("add_flat", L.NewFunction(func(L *lua.LState) int {
			v.AddFlat(a.name, L.OptString(2, primaryType(v.Action)), L.CheckInt(1))
			return 0
		}))
		t.RawSetString("add_dice", L.NewFunction(func(L *lua.LState) int {
			v.AddDice(a.name, L.OptString(3, primaryType(v.Action)), L.CheckInt(1), L.CheckInt(2))
			return 0
		}))
		return t, func() {
			if n, ok := t.RawGetString("multiplier").(lua.LNumber); ok {
				v.Multiplier = float64(n)
			}
		}

	case *combat.SavingThrow:
		t.RawSetString("source", a.combatantTable(v.Source))
		t.RawSetString("target", a.combatantTable(v.Target))
		t.RawSetString("stat", lua.LString(v.Stat))
		t.RawSetString("dc", lua.LNumber(v.DC))
		t.RawSetString("bonus", lua.LNumber(v.Bonus))
		t.RawSetString("advantage", lua.LBool(v.Advantage))
		t.RawSetString("disadvantage", lua.LBool(v.Disadvantage))
		t.RawSetString("auto_fail", lua.LBool(v.AutoFail))
		return t, func() {
			v.DC = intField(t, "dc", v.DC)
			v.Bonus = intField(t, "bonus", v.Bonus)
			v.Advantage = boolField(t, "advantage", v.Advantage)
			v.Disadvantage = boolField(t, "disadvantage", v.Disadvantage)
			v.AutoFail = boolField(t, "auto_fail", v.AutoFail)
		}

	case *combat.SaveResult:
		t.RawSetString("source", a.combatantTable(v.Source))
		t.RawSetString("target", a.combatantTable(v.Target))
		t.RawSetString("natural", lua.LNumber(v.Natural))
		t.RawSetString("total", lua.LNumber(v.Total))
		t.RawSetString("dc", lua.LNumber(v.DC))
		t.RawSetString("success", lua.LBool(v.Success))
		return t, func() { v.Success = boolField(t, "success", v.Success) }

	case *combat.Defeat:
		t.RawSetString("attacker", a.combatantTable(v.Attacker))
		t.RawSetString("target", a.combatantTable(v.Target))
		return t, nil

	case *combat.SpellCast:
		t.RawSetString("caster", a.combatantTable(v.Caster))
		t.RawSetString("spell", lua.LString(v.Spell))
		t.RawSetString("level", lua.LNumber(v.Level))
		t.RawSetString("slot_level", lua.LNumber(v.SlotLevel))
		t.RawSetString("bonus", lua.LBool(v.Bonus))
		return t, nil

	case *combat.ResourceSpent:
		t.RawSetString("actor", a.combatantTable(v.Actor))
		t.RawSetString("resource", lua.LString(v.Resource))
		t.RawSetString("amount", lua.LNumber(v.Amount))
		t.RawSetString("remaining", lua.LNumber(v.Remaining))
		return t, nil
	}
	return t, nil
}

// actionFields adds the action's source, kind, range, and tags to t.
func (a *Ability) actionFields(t *lua.LTable, act *combat.Action) {
	if act == nil {
		return
	}
	t.RawSetString("action", lua.LString(act.Source))
	t.RawSetString("kind", lua.LString(act.Kind))
	t.RawSetString("ranged", lua.LBool(act.Ranged))
	tags := a.L.NewTable()
	for tag, on := range act.Tags {
		if on {
			tags.RawSetString(tag, lua.LTrue)
		}
	}
	t.RawSetString("tags", tags)
}

// tagsBack sets every truthy entry of t.tags on act.
func (a *Ability) tagsBack(t *lua.LTable, act *combat.Action) {
	tags, ok := t.RawGetString("tags").(*lua.LTable)
	if !ok || act == nil {
		return
	}
	tags.ForEach(func(k, v lua.LValue) {
		if s, ok := k.(lua.LString); ok && lua.LVAsBool(v) {
			act.Tag(string(s))
		}
	})
}

func primaryType(act *combat.Action) string {
	if act == nil || len(act.Damage) == 0 {
		return ""
	}
	return act.Damage[0].Type
}

func intField(t *lua.LTable, key string, fallback int) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return fallback
}

func boolField(t *lua.LTable, key string, fallback bool) bool {
	switch v := t.RawGetString(key).(type) {
	case lua.LBool:
		return bool(v)
	default:
		return fallback
	}
}
