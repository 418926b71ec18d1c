// Package condition defines tagged combat states (stunned, prone, poisoned)
// and the roll modifiers they impose.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Duration types.
const (
	DurationRounds       = "rounds"
	DurationUntilRemoved = "until_removed"
	DurationPermanent    = "permanent"
)

// Roll effects that a condition can impose.
const (
	EffectAdvantage    = "advantage"
	EffectDisadvantage = "disadvantage"
)

// ConditionDef is the static definition of a condition, loaded from YAML or
// taken from the built-in set.
type ConditionDef struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	DurationType string `yaml:"duration_type"` // "rounds" | "until_removed" | "permanent"
	MaxStacks    int    `yaml:"max_stacks"`    // 0 = unstackable

	Incapacitates bool `yaml:"incapacitates"`
	// OwnAttacks is the effect on attack rolls made by the affected creature.
	OwnAttacks string `yaml:"own_attacks"`
	// MeleeAttackers and RangedAttackers are the effects on attack rolls
	// made against the affected creature.
	MeleeAttackers  string `yaml:"melee_attackers"`
	RangedAttackers string `yaml:"ranged_attackers"`
	// MeleeHitsCrit turns every melee hit against the creature into a critical.
	MeleeHitsCrit    bool     `yaml:"melee_hits_crit"`
	AutoFailSaves    []string `yaml:"auto_fail_saves"`
	SaveDisadvantage []string `yaml:"save_disadvantage"`
	EndsAtTurnStart  bool     `yaml:"ends_at_turn_start"`
	AttackPenalty    int      `yaml:"attack_penalty"`
	ACPenalty        int      `yaml:"ac_penalty"`
}

// Validate returns every problem found in def joined into one error.
func (def *ConditionDef) Validate() error {
	var errs []error
	if def.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch def.DurationType {
	case DurationRounds, DurationUntilRemoved, DurationPermanent:
	default:
		errs = append(errs, fmt.Errorf("unknown duration_type %q", def.DurationType))
	}
	if def.MaxStacks < 0 {
		errs = append(errs, fmt.Errorf("max_stacks must be >= 0, got %d", def.MaxStacks))
	}
	for field, v := range map[string]string{
		"own_attacks":      def.OwnAttacks,
		"melee_attackers":  def.MeleeAttackers,
		"ranged_attackers": def.RangedAttackers,
	} {
		if v != "" && v != EffectAdvantage && v != EffectDisadvantage {
			errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", field, EffectAdvantage, EffectDisadvantage, v))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return fmt.Errorf("condition %q: %w", def.ID, errors.Join(errs...))
}

// Registry holds all known ConditionDefs keyed by ID.
type Registry struct {
	defs map[string]*ConditionDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ConditionDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *ConditionDef) {
	r.defs[def.ID] = def
}

// Get returns the ConditionDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*ConditionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered ConditionDefs sorted by ID.
func (r *Registry) All() []*ConditionDef {
	out := make([]*ConditionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Builtin returns a Registry holding the standard conditions the resolver
// understands without any YAML content.
func Builtin() *Registry {
	reg := NewRegistry()
	for _, def := range []*ConditionDef{
		{ID: "blinded", Name: "Blinded", DurationType: DurationRounds,
			OwnAttacks: EffectDisadvantage, MeleeAttackers: EffectAdvantage, RangedAttackers: EffectAdvantage},
		{ID: "incapacitated", Name: "Incapacitated", DurationType: DurationRounds, Incapacitates: true},
		{ID: "paralyzed", Name: "Paralyzed", DurationType: DurationRounds, Incapacitates: true,
			MeleeAttackers: EffectAdvantage, RangedAttackers: EffectAdvantage, MeleeHitsCrit: true,
			AutoFailSaves: []string{"str", "dex"}},
		{ID: "poisoned", Name: "Poisoned", DurationType: DurationRounds, OwnAttacks: EffectDisadvantage},
		{ID: "prone", Name: "Prone", DurationType: DurationUntilRemoved, EndsAtTurnStart: true,
			OwnAttacks: EffectDisadvantage, MeleeAttackers: EffectAdvantage, RangedAttackers: EffectDisadvantage},
		{ID: "restrained", Name: "Restrained", DurationType: DurationRounds,
			OwnAttacks: EffectDisadvantage, MeleeAttackers: EffectAdvantage, RangedAttackers: EffectAdvantage,
			SaveDisadvantage: []string{"dex"}},
		{ID: "stunned", Name: "Stunned", DurationType: DurationRounds, Incapacitates: true,
			MeleeAttackers: EffectAdvantage, RangedAttackers: EffectAdvantage,
			AutoFailSaves: []string{"str", "dex"}},
		{ID: "unconscious", Name: "Unconscious", DurationType: DurationUntilRemoved, Incapacitates: true,
			MeleeAttackers: EffectAdvantage, RangedAttackers: EffectAdvantage, MeleeHitsCrit: true,
			AutoFailSaves: []string{"str", "dex"}},
	} {
		reg.Register(def)
	}
	return reg
}

// LoadDirectory reads every *.yaml file in dir, parses each as a ConditionDef,
// and registers it on top of the built-in set.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := Builtin()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def ConditionDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
