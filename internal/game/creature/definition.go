// Package creature defines the immutable character and monster templates
// that every simulated encounter instantiates combatants from.
package creature

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

// Kind distinguishes player characters from monsters.
type Kind string

const (
	KindCharacter Kind = "character"
	KindMonster   Kind = "monster"
)

// Stat names one of the six ability scores.
type Stat string

const (
	Str Stat = "str"
	Dex Stat = "dex"
	Con Stat = "con"
	Int Stat = "int"
	Wis Stat = "wis"
	Cha Stat = "cha"
)

// AllStats lists the ability scores in sheet order.
var AllStats = []Stat{Str, Dex, Con, Int, Wis, Cha}

// Stats holds the six ability scores.
type Stats struct {
	Str int `yaml:"str"`
	Dex int `yaml:"dex"`
	Con int `yaml:"con"`
	Int int `yaml:"int"`
	Wis int `yaml:"wis"`
	Cha int `yaml:"cha"`
}

// Score returns the score for s, or 10 for an unknown stat.
func (st Stats) Score(s Stat) int {
	switch s {
	case Str:
		return st.Str
	case Dex:
		return st.Dex
	case Con:
		return st.Con
	case Int:
		return st.Int
	case Wis:
		return st.Wis
	case Cha:
		return st.Cha
	default:
		return 10
	}
}

// Mod returns the ability modifier for a score, floor((score-10)/2).
func Mod(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// ProficiencyForLevel returns 2 + (level-1)/4.
func ProficiencyForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// ActionKind selects the resolution path of an action.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionSave   ActionKind = "save"
)

// Range of an attack; ranged attacks interact differently with prone targets.
const (
	RangeMelee  = "melee"
	RangeRanged = "ranged"
)

// Save outcomes for a successful saving throw.
const (
	OnSaveHalf = "half"
	OnSaveNone = "none"
)

// DamageSpec is one damage component of an action.
type DamageSpec struct {
	Dice string `yaml:"dice"` // "2d6"; empty for flat damage
	Flat int    `yaml:"flat"`
	Type string `yaml:"type"`
	// AddModifier adds the action's ability modifier to this component.
	AddModifier bool `yaml:"add_modifier"`
}

// Cost is a resource spent to take an action.
type Cost struct {
	Resource string `yaml:"resource"`
	Amount   int    `yaml:"amount"`
}

// ConditionEffect applies a condition when an attack hits or a save fails.
type ConditionEffect struct {
	ID     string `yaml:"id"`
	Rounds int    `yaml:"rounds"`
}

// ActionDef describes something a creature can do on its turn.
type ActionDef struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Kind  ActionKind `yaml:"kind"`
	Count int        `yaml:"count"` // attacks per use; 0 means 1
	Stat  Stat       `yaml:"stat"`  // attack or DC ability; empty means str
	// ToHit replaces proficiency + modifier + AttackBonus when set.
	ToHit       *int         `yaml:"to_hit"`
	AttackBonus int          `yaml:"attack_bonus"`
	Range       string       `yaml:"range"`
	Damage      []DamageSpec `yaml:"damage"`
	// DC replaces 8 + proficiency + modifier when set.
	DC            *int             `yaml:"dc"`
	SaveStat      Stat             `yaml:"save"`
	OnSave        string           `yaml:"on_save"`
	Targets       int              `yaml:"targets"` // save actions; 0 means 1
	Cost          *Cost            `yaml:"cost"`
	Condition     *ConditionEffect `yaml:"condition"`
	CritThreshold int              `yaml:"crit_threshold"`
	Tags          []string         `yaml:"tags"`
	// Weapon names the equipped item the action is made with.
	Weapon string `yaml:"weapon"`
}

// Attacks returns the number of attack rolls per use, at least one.
func (a *ActionDef) Attacks() int {
	return max(a.Count, 1)
}

// TargetCount returns the number of creatures a save action affects, at least one.
func (a *ActionDef) TargetCount() int {
	return max(a.Targets, 1)
}

// IsRanged reports whether the action is a ranged attack.
func (a *ActionDef) IsRanged() bool {
	return a.Range == RangeRanged
}

// Item is an equipped item granting flat bonuses.
type Item struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// AC and Saves apply while the item is equipped.
	AC    int `yaml:"ac"`
	Saves int `yaml:"saves"`
	// AttackBonus and DamageBonus apply to actions wielding the item.
	AttackBonus int `yaml:"attack_bonus"`
	DamageBonus int `yaml:"damage_bonus"`
	SpellAttack int `yaml:"spell_attack"`
}

// FeatureSpec attaches an ability module by ID with free-form parameters.
type FeatureSpec struct {
	ID     string         `yaml:"id"`
	Params map[string]any `yaml:"params"`
}

// Definition is an immutable character or monster template. Definitions are
// shared by every iteration and must never be mutated after validation.
type Definition struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Kind            Kind           `yaml:"kind"`
	Level           int            `yaml:"level"`
	Proficiency     int            `yaml:"proficiency"`
	Stats           Stats          `yaml:"stats"`
	HitDie          int            `yaml:"hit_die"`
	MaxHP           int            `yaml:"max_hp"`
	AC              int            `yaml:"ac"`
	InitiativeBonus int            `yaml:"initiative_bonus"`
	SaveProficient  []Stat         `yaml:"save_proficiencies"`
	SaveOverrides   map[Stat]int   `yaml:"saves"`
	Resistances     []string       `yaml:"resistances"`
	Vulnerabilities []string       `yaml:"vulnerabilities"`
	Immunities      []string       `yaml:"immunities"`
	Actions         []ActionDef    `yaml:"actions"`
	BonusActions    []ActionDef    `yaml:"bonus_actions"`
	Resources       []resource.Def `yaml:"resources"`
	Features        []FeatureSpec  `yaml:"features"`
	Targeting       string         `yaml:"targeting"`
	Threat          int            `yaml:"threat"`
	CritThreshold   int            `yaml:"crit_threshold"`
	Equipment       []Item         `yaml:"equipment"`
	Spellcasting    *Spellcasting  `yaml:"spellcasting"`
	Spells          []string       `yaml:"spells"`
}

// Mod returns the ability modifier for stat s.
func (d *Definition) Mod(s Stat) int {
	return Mod(d.Stats.Score(s))
}

// InitiativeMod returns the Dex modifier plus any flat initiative bonus.
func (d *Definition) InitiativeMod() int {
	return d.Mod(Dex) + d.InitiativeBonus
}

// ArmorClass returns AC plus the AC of every equipped item.
func (d *Definition) ArmorClass() int {
	ac := d.AC
	for _, it := range d.Equipment {
		ac += it.AC
	}
	return ac
}

// Item returns the equipped item with the given ID, or nil.
func (d *Definition) Item(id string) *Item {
	for i := range d.Equipment {
		if d.Equipment[i].ID == id {
			return &d.Equipment[i]
		}
	}
	return nil
}

// SaveBonus returns the saving throw bonus for stat s. Item save bonuses
// apply on top of overrides.
func (d *Definition) SaveBonus(s Stat) int {
	items := 0
	for _, it := range d.Equipment {
		items += it.Saves
	}
	if v, ok := d.SaveOverrides[s]; ok {
		return v + items
	}
	bonus := d.Mod(s) + items
	if slices.Contains(d.SaveProficient, s) {
		bonus += d.Proficiency
	}
	return bonus
}

// ToHit returns the attack bonus of action a for this creature, including
// the wielded item's bonus.
func (d *Definition) ToHit(a *ActionDef) int {
	if a.ToHit != nil {
		return *a.ToHit
	}
	bonus := d.Proficiency + d.Mod(statOr(a.Stat, Str)) + a.AttackBonus
	if it := d.Item(a.Weapon); it != nil {
		bonus += it.AttackBonus
	}
	return bonus
}

// DamageBonus returns the wielded item's damage bonus for action a.
func (d *Definition) DamageBonus(a *ActionDef) int {
	if it := d.Item(a.Weapon); it != nil {
		return it.DamageBonus
	}
	return 0
}

// SaveDC returns the save DC of action a for this creature.
func (d *Definition) SaveDC(a *ActionDef) int {
	if a.DC != nil {
		return *a.DC
	}
	return 8 + d.Proficiency + d.Mod(statOr(a.Stat, Str))
}

// ActionStat returns the ability used by action a.
func ActionStat(a *ActionDef) Stat {
	return statOr(a.Stat, Str)
}

func statOr(s, fallback Stat) Stat {
	if s == "" {
		return fallback
	}
	return s
}

// normalize fills derived defaults. It is applied once before validation.
func (d *Definition) normalize() {
	if d.Kind == "" {
		d.Kind = KindCharacter
	}
	if d.Level == 0 {
		d.Level = 1
	}
	if d.Proficiency == 0 {
		d.Proficiency = ProficiencyForLevel(d.Level)
	}
	if d.MaxHP == 0 && d.Kind == KindCharacter {
		hitDie := d.HitDie
		if hitDie == 0 {
			hitDie = 10
		}
		d.MaxHP = hitDie + (d.Level-1)*(hitDie/2+1) + d.Mod(Con)*d.Level
	}
	if d.Spellcasting != nil {
		d.Resources = withSlots(d.Resources, d.Spellcasting.slotDefs(d.Level))
	}
	for i := range d.Actions {
		normalizeAction(&d.Actions[i])
	}
	for i := range d.BonusActions {
		normalizeAction(&d.BonusActions[i])
	}
}

// withSlots appends every slot resource not already declared. Declared
// entries win, so a sheet may override the table.
func withSlots(declared, slots []resource.Def) []resource.Def {
	out := slices.Clone(declared)
	for _, s := range slots {
		if !slices.ContainsFunc(declared, func(r resource.Def) bool { return r.Name == s.Name }) {
			out = append(out, s)
		}
	}
	return out
}

func normalizeAction(a *ActionDef) {
	if a.Kind == "" {
		a.Kind = ActionAttack
	}
	if a.Range == "" {
		a.Range = RangeMelee
	}
	if a.Kind == ActionSave && a.OnSave == "" {
		a.OnSave = OnSaveHalf
	}
	if a.Name == "" {
		a.Name = a.ID
	}
}

// Validate returns every configuration problem in d joined into one error.
//
// Postcondition: nil return guarantees non-empty ID, Level in [1, 20], MaxHP >= 1,
// AC >= 0, parseable damage dice, known stats, and valid resource definitions.
func (d *Definition) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if d.ID == "" {
		add("id must not be empty")
	}
	switch d.Kind {
	case KindCharacter, KindMonster:
	default:
		add("unknown kind %q", d.Kind)
	}
	if d.Level < 1 || d.Level > 30 {
		add("level must be in [1, 30], got %d", d.Level)
	}
	if d.MaxHP < 1 {
		add("max_hp must be >= 1, got %d", d.MaxHP)
	}
	if d.AC < 0 {
		add("ac must be >= 0, got %d", d.AC)
	}
	if d.CritThreshold < 0 || d.CritThreshold > 20 {
		add("crit_threshold must be in [0, 20], got %d", d.CritThreshold)
	}
	for _, s := range d.SaveProficient {
		if !knownStat(s) {
			add("unknown save proficiency %q", s)
		}
	}
	seen := make(map[string]bool)
	for _, r := range d.Resources {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[r.Name] {
			add("duplicate resource %q", r.Name)
		}
		seen[r.Name] = true
	}
	items := make(map[string]bool, len(d.Equipment))
	for _, it := range d.Equipment {
		if it.ID == "" {
			add("item id must not be empty")
		}
		if items[it.ID] {
			add("duplicate item %q", it.ID)
		}
		items[it.ID] = true
	}
	for _, group := range [][]ActionDef{d.Actions, d.BonusActions} {
		for i := range group {
			if err := validateAction(&group[i], seen, items); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, f := range d.Features {
		if f.ID == "" {
			add("feature id must not be empty")
		}
	}
	if d.Spellcasting != nil {
		if err := d.Spellcasting.validate(); err != nil {
			errs = append(errs, err)
		}
	} else if len(d.Spells) > 0 {
		add("spells need a spellcasting block")
	}
	if len(errs) == 0 {
		return nil
	}
	id := d.ID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Errorf("creature %q: %w", id, errors.Join(errs...))
}

func validateAction(a *ActionDef, resources, items map[string]bool) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if a.ID == "" {
		add("id must not be empty")
	}
	switch a.Kind {
	case ActionAttack:
	case ActionSave:
		if !knownStat(a.SaveStat) {
			add("save action needs a known save stat, got %q", a.SaveStat)
		}
		if a.OnSave != OnSaveHalf && a.OnSave != OnSaveNone {
			add("on_save must be %q or %q, got %q", OnSaveHalf, OnSaveNone, a.OnSave)
		}
	default:
		add("unknown kind %q", a.Kind)
	}
	if a.Stat != "" && !knownStat(a.Stat) {
		add("unknown stat %q", a.Stat)
	}
	if a.Count < 0 || a.Targets < 0 {
		add("count and targets must be >= 0")
	}
	if a.Range != RangeMelee && a.Range != RangeRanged {
		add("range must be %q or %q, got %q", RangeMelee, RangeRanged, a.Range)
	}
	for _, dmg := range a.Damage {
		if dmg.Dice != "" {
			if _, err := dice.Parse(dmg.Dice); err != nil {
				errs = append(errs, err)
			}
		}
		if strings.TrimSpace(dmg.Type) == "" {
			add("damage type must not be empty")
		}
	}
	if a.Cost != nil {
		if a.Cost.Amount < 0 {
			add("cost amount must be >= 0")
		}
		if !resources[a.Cost.Resource] {
			add("cost references unknown resource %q", a.Cost.Resource)
		}
	}
	if a.Weapon != "" && !items[a.Weapon] {
		add("weapon references unknown item %q", a.Weapon)
	}
	if a.Condition != nil && a.Condition.ID == "" {
		add("condition id must not be empty")
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("action %q: %w", a.ID, errors.Join(errs...))
}

func knownStat(s Stat) bool {
	return slices.Contains(AllStats, s)
}
