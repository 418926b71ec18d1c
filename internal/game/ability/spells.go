package ability

import (
	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
)

const (
	huntersMarkID = "hunters_mark"
	hexID         = "hex"
	blessID       = "bless"
)

// spell is one entry of the spell book.
type spell struct {
	id            string
	level         int // 0 for cantrips
	bonus         bool
	concentration bool
	// mark spells can be moved to a new target once the marked one drops.
	mark   bool
	policy SlotPolicy
	// want reports whether the spell is worth casting now; nil means always.
	want func(s *Spellcasting) bool
	cast func(s *Spellcasting, slot int) error
}

var spellBook = map[string]*spell{
	"fire_bolt": {id: "fire_bolt", cast: func(s *Spellcasting, _ int) error {
		return s.attackOnce(s.spellAttack("fire_bolt", s.cantripDice(), 10, "fire"))
	}},
	"eldritch_blast": {id: "eldritch_blast", cast: castEldritchBlast},
	"sacred_flame":   {id: "sacred_flame", cast: castSacredFlame},
	"guiding_bolt": {id: "guiding_bolt", level: 1, policy: SlotHighest, cast: func(s *Spellcasting, slot int) error {
		return s.attackOnce(s.spellAttack("guiding_bolt", 3+slot, 6, "radiant"))
	}},
	"magic_missile": {id: "magic_missile", level: 1, policy: SlotHighest, cast: castMagicMissile},
	"cure_wounds": {id: "cure_wounds", level: 1, policy: SlotLowest, want: wantsHealing,
		cast: func(s *Spellcasting, slot int) error { return s.heal("cure_wounds", slot, 8) }},
	"healing_word": {id: "healing_word", level: 1, bonus: true, policy: SlotLowest, want: wantsHealing,
		cast: func(s *Spellcasting, slot int) error { return s.heal("healing_word", slot, 4) }},
	huntersMarkID: {id: huntersMarkID, level: 1, bonus: true, concentration: true, mark: true,
		policy: SlotLowest, want: hasTarget, cast: castMark},
	hexID: {id: hexID, level: 1, bonus: true, concentration: true, mark: true,
		policy: SlotHighest, want: hasTarget, cast: castMark},
	blessID: {id: blessID, level: 1, concentration: true, policy: SlotLowest, cast: castBless},
}

func hasTarget(s *Spellcasting) bool { return s.target() != nil }

func wantsHealing(s *Spellcasting) bool { return s.woundedAlly() != nil }

func (s *Spellcasting) attackOnce(a *combat.Action) error {
	t := s.target()
	if t == nil {
		return nil
	}
	return s.enc.Attack(s.owner, t, a)
}

// castEldritchBlast fires one beam per cantrip die, each a separate attack.
func castEldritchBlast(s *Spellcasting, _ int) error {
	for range s.cantripDice() {
		t := s.target()
		if t == nil {
			return nil
		}
		if err := s.enc.Attack(s.owner, t, s.spellAttack("eldritch_blast", 1, 10, "force")); err != nil {
			return err
		}
	}
	return nil
}

func castSacredFlame(s *Spellcasting, _ int) error {
	t := s.target()
	if t == nil {
		return nil
	}
	a := &combat.Action{
		Source:   "sacred_flame",
		Kind:     creature.ActionSave,
		DC:       s.owner.Def.SpellDC(),
		SaveStat: creature.Dex,
		OnSave:   creature.OnSaveNone,
		Ranged:   true,
		Damage:   []combat.DamageComponent{{Source: "sacred_flame", Count: s.cantripDice(), Sides: 8, Type: "radiant"}},
		Tags:     map[string]bool{combat.TagSpell: true},
	}
	return s.enc.ForceSave(s.owner, []*combat.Combatant{t}, a)
}

// castMagicMissile sends three darts plus one per slot level above first at
// one target. Darts always hit for 1d4+1 force each.
func castMagicMissile(s *Spellcasting, slot int) error {
	t := s.target()
	if t == nil {
		return nil
	}
	darts := 2 + slot
	return s.enc.Strike(s.owner, t, &combat.Action{
		Source: "magic_missile",
		Kind:   creature.ActionAttack,
		Damage: []combat.DamageComponent{{Source: "magic_missile", Count: darts, Sides: 4, Flat: darts, Type: "force"}},
		Tags:   map[string]bool{combat.TagSpell: true},
	})
}

// heal restores slot dice plus the casting modifier to the most wounded teammate.
func (s *Spellcasting) heal(id string, slot, sides int) error {
	t := s.woundedAlly()
	if t == nil {
		return nil
	}
	amount := s.owner.Def.CastingMod()
	for _, r := range s.enc.Roller().RollDice(slot, sides) {
		amount += r
	}
	s.enc.Heal(s.owner, t, amount, id)
	return nil
}

func castMark(s *Spellcasting, _ int) error {
	s.marked = s.target()
	return nil
}

// castBless blesses the owner and up to two allies, plus one per slot level
// above first.
func castBless(s *Spellcasting, slot int) error {
	team := s.team()
	for _, c := range team[:min(len(team), 2+slot)] {
		s.blessed[c] = true
	}
	return nil
}
