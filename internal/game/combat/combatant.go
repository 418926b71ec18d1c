package combat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/dpr/internal/game/condition"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

// Damage modifiers reported in DamageOutcome.Modifier.
const (
	ModImmune     = "immune"
	ModResisted   = "resisted"
	ModVulnerable = "vulnerable"
)

// DamageOutcome describes one application of a single-type damage bundle.
type DamageOutcome struct {
	Type     string
	Raw      int    // amount before modifiers
	Adjusted int    // amount after immunity, resistance, or vulnerability
	Modifier string // "", ModImmune, ModResisted, ModVulnerable
	Absorbed int    // taken by temporary hit points
	Applied  int    // removed from hit points
	Defeated bool   // true only on the transition to zero hit points
}

// Dealt returns the damage that actually landed; overkill is not included.
func (o DamageOutcome) Dealt() int {
	return o.Absorbed + o.Applied
}

// Combatant is the live, per-encounter wrapper around a Definition.
//
// Invariant: 0 <= HP <= MaxHP(); HP never increases except through Heal.
type Combatant struct {
	ID         string
	Def        *creature.Definition
	Team       Team
	HP         int
	TempHP     int
	Initiative int
	Conditions *condition.ActiveSet
	Resources  *resource.Ledger

	// DamageDealt is the total damage this combatant landed this encounter.
	DamageDealt int

	order     int
	defeated  bool
	critFloor int
	// concentration is the spell being concentrated on; endSpell undoes it.
	concentration string
	endSpell      func()
	flags     map[string]int
	turnFlags map[string]bool
	resist    map[string]int
	abilities []Ability
	actions   map[*creature.ActionDef]*Action
}

// Option customises a Combatant at construction.
type Option func(*Combatant)

// WithHP starts the combatant at hp instead of full, clamped to [0, MaxHP].
func WithHP(hp int) Option {
	return func(c *Combatant) {
		c.HP = min(max(hp, 0), c.Def.MaxHP)
		c.defeated = c.HP == 0
	}
}

// WithLedger hands an existing ledger to the combatant, which then owns it
// for the duration of the encounter.
func WithLedger(l *resource.Ledger) Option {
	return func(c *Combatant) { c.Resources = l }
}

// WithAbilities attaches ability modules in order.
func WithAbilities(abilities ...Ability) Option {
	return func(c *Combatant) { c.abilities = append(c.abilities, abilities...) }
}

// NewCombatant creates a combatant at full hit points with a fresh ledger
// built from the definition's resources.
//
// Precondition: def has passed Validate.
func NewCombatant(id string, def *creature.Definition, team Team, opts ...Option) (*Combatant, error) {
	if id == "" {
		return nil, fmt.Errorf("combat.NewCombatant: id must not be empty")
	}
	if def == nil {
		return nil, fmt.Errorf("combat.NewCombatant %q: definition must not be nil", id)
	}
	c := &Combatant{
		ID:         id,
		Def:        def,
		Team:       team,
		HP:         def.MaxHP,
		Conditions: condition.NewActiveSet(),
		flags:      make(map[string]int),
		turnFlags:  make(map[string]bool),
		resist:     make(map[string]int),
		actions:    make(map[*creature.ActionDef]*Action),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Resources == nil {
		l, err := resource.FromDefs(def.Resources)
		if err != nil {
			return nil, fmt.Errorf("combat.NewCombatant %q: %w", id, err)
		}
		c.Resources = l
	}
	return c, nil
}

// Name returns the display name of the underlying definition.
func (c *Combatant) Name() string {
	if c.Def.Name != "" {
		return c.Def.Name
	}
	return c.Def.ID
}

// MaxHP returns the definition's hit point maximum.
func (c *Combatant) MaxHP() int { return c.Def.MaxHP }

// AC returns the current armor class including condition penalties.
func (c *Combatant) AC() int { return c.Def.ArmorClass() + condition.ACBonus(c.Conditions) }

// InitiativeMod returns the initiative modifier.
func (c *Combatant) InitiativeMod() int { return c.Def.InitiativeMod() }

// IsAlive reports whether the combatant has hit points left.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// IsIncapacitated reports whether an active condition removes its turn.
func (c *Combatant) IsIncapacitated() bool { return condition.IsIncapacitated(c.Conditions) }

// CanAct reports whether the combatant takes turns and counts toward its team.
func (c *Combatant) CanAct() bool { return c.IsAlive() && !c.IsIncapacitated() }

// Action returns the cached descriptor for def, building it on first use.
func (c *Combatant) Action(def *creature.ActionDef) (*Action, error) {
	if a, ok := c.actions[def]; ok {
		return a, nil
	}
	a, err := NewAction(c, def)
	if err != nil {
		return nil, err
	}
	c.actions[def] = a
	return a, nil
}

// Abilities returns the attached ability modules.
func (c *Combatant) Abilities() []Ability { return c.abilities }

// ApplyDamage applies a single-type damage bundle. Immunity zeroes the
// amount; otherwise resistance halves it (rounded down); otherwise
// vulnerability doubles it. Temporary hit points absorb first and hit points
// floor at zero.
//
// Postcondition: HP >= 0; result.Defeated is true only if HP moved from > 0 to 0.
func (c *Combatant) ApplyDamage(amount int, damageType string) DamageOutcome {
	out := DamageOutcome{Type: damageType, Raw: max(amount, 0)}
	out.Adjusted = out.Raw
	switch {
	case c.IsImmune(damageType):
		out.Adjusted = 0
		out.Modifier = ModImmune
	case c.Resists(damageType):
		out.Adjusted = out.Raw / 2
		out.Modifier = ModResisted
	case c.IsVulnerable(damageType):
		out.Adjusted = out.Raw * 2
		out.Modifier = ModVulnerable
	}

	remaining := out.Adjusted
	if c.TempHP > 0 && remaining > 0 {
		out.Absorbed = min(c.TempHP, remaining)
		c.TempHP -= out.Absorbed
		remaining -= out.Absorbed
	}
	out.Applied = min(remaining, c.HP)
	c.HP -= out.Applied
	if c.HP == 0 && !c.defeated {
		c.defeated = true
		out.Defeated = true
	}
	return out
}

// Heal restores hit points up to the maximum. A defeated combatant that is
// healed counts as alive again.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.HP
	c.HP = min(c.HP+amount, c.Def.MaxHP)
	if c.HP > 0 {
		c.defeated = false
	}
	return c.HP - before
}

// GrantTempHP sets temporary hit points; they do not stack, the higher value wins.
func (c *Combatant) GrantTempHP(amount int) {
	c.TempHP = max(c.TempHP, amount)
}

// LowerCritThreshold makes every attack by c critical on a natural n or
// higher. The lowest value set wins.
func (c *Combatant) LowerCritThreshold(n int) {
	if n > 0 && (c.critFloor == 0 || n < c.critFloor) {
		c.critFloor = n
	}
}

// CritThreshold returns the natural roll a's attacks crit on for c.
func (c *Combatant) CritThreshold(a *Action) int {
	if c.critFloor > 0 && c.critFloor < a.CritThreshold {
		return c.critFloor
	}
	return a.CritThreshold
}

// Concentration returns the spell c is concentrating on, or "".
func (c *Combatant) Concentration() string { return c.concentration }

// IsImmune reports immunity to damageType.
func (c *Combatant) IsImmune(damageType string) bool {
	return hasType(c.Def.Immunities, damageType)
}

// Resists reports resistance to damageType from the definition or a granted effect.
func (c *Combatant) Resists(damageType string) bool {
	return hasType(c.Def.Resistances, damageType) || c.resist[normalizeType(damageType)] > 0
}

// IsVulnerable reports vulnerability to damageType.
func (c *Combatant) IsVulnerable(damageType string) bool {
	return hasType(c.Def.Vulnerabilities, damageType)
}

// GrantResistance adds a temporary resistance. Grants are counted, so two
// sources granting the same type need two revocations.
func (c *Combatant) GrantResistance(damageTypes ...string) {
	for _, t := range damageTypes {
		c.resist[normalizeType(t)]++
	}
}

// RevokeResistance removes one grant of each type.
func (c *Combatant) RevokeResistance(damageTypes ...string) {
	for _, t := range damageTypes {
		key := normalizeType(t)
		if c.resist[key] > 0 {
			c.resist[key]--
		}
	}
}

// Flag returns an encounter-scoped counter, such as a once-per-encounter cooldown.
func (c *Combatant) Flag(name string) int { return c.flags[name] }

// SetFlag sets an encounter-scoped counter.
func (c *Combatant) SetFlag(name string, v int) { c.flags[name] = v }

// TurnFlag reports a flag that is cleared at the start of the combatant's turn.
func (c *Combatant) TurnFlag(name string) bool { return c.turnFlags[name] }

// SetTurnFlag sets a flag that is cleared at the start of the combatant's turn.
func (c *Combatant) SetTurnFlag(name string) { c.turnFlags[name] = true }

func (c *Combatant) resetTurnFlags() {
	clear(c.turnFlags)
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func hasType(list []string, damageType string) bool {
	want := normalizeType(damageType)
	return slices.ContainsFunc(list, func(s string) bool { return normalizeType(s) == want })
}
