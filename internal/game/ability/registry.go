// Package ability implements class features and weapon masteries as event
// listeners, and the registry that builds them from creature feature specs.
package ability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
)

// ErrUnknownAbility is returned when a feature ID has no registered builder.
var ErrUnknownAbility = errors.New("ability: unknown ability")

// Builder constructs a fresh ability instance from its parameters. A new
// instance is built for every encounter.
type Builder func(p Params) (combat.Ability, error)

// Registry maps feature IDs to builders.
//
// Invariant: each ID is registered at most once. A Registry is read-only
// after setup and may be shared between goroutines.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a Registry holding every built-in ability.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	for id, b := range map[string]Builder{
		ActionSurgeID:         newActionSurge,
		BrutalCriticalID:      newBrutalCritical,
		GrazeID:               newGraze,
		GreatWeaponFightingID: newGreatWeaponFighting,
		ImprovedCriticalID:    newImprovedCritical,
		PrecisionAttackID:     newPrecisionAttack,
		RageID:                newRage,
		RecklessAttackID:      newRecklessAttack,
		SneakAttackID:         newSneakAttack,
		SpellcastingID:        newSpellcasting,
		ToppleID:              newTopple,
		VexID:                 newVex,
	} {
		r.builders[id] = b
	}
	return r
}

// Register adds a builder under id.
//
// Postcondition: returns an error on collision or nil builder.
func (r *Registry) Register(id string, b Builder) error {
	if b == nil {
		return fmt.Errorf("ability.Register: builder for %q is nil", id)
	}
	if _, ok := r.builders[id]; ok {
		return fmt.Errorf("ability.Register: %q already registered", id)
	}
	r.builders[id] = b
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.builders[id]
	return ok
}

// IDs returns every registered ID sorted alphabetically.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.builders))
	for id := range r.builders {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Build constructs the ability described by spec.
func (r *Registry) Build(spec creature.FeatureSpec) (combat.Ability, error) {
	b, ok := r.builders[spec.ID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAbility, spec.ID)
	}
	a, err := b(Params(spec.Params))
	if err != nil {
		return nil, fmt.Errorf("ability %s: %w", spec.ID, err)
	}
	return a, nil
}

// BuildAll constructs every feature of def in order. A definition with a
// spellcasting block and a spell list also gets the spellcasting feature.
//
// Postcondition: every problem found is joined into the returned error.
func (r *Registry) BuildAll(def *creature.Definition) ([]combat.Ability, error) {
	var (
		out  []combat.Ability
		errs []error
	)
	features := def.Features
	if def.Spellcasting != nil && len(def.Spells) > 0 {
		features = withSpellcasting(features, def.Spells)
	}
	for _, spec := range features {
		a, err := r.Build(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, a)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", def.ID, errors.Join(errs...))
	}
	return out, nil
}
