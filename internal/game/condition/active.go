package condition

import (
	"fmt"
	"sort"
)

// ActiveCondition tracks one applied condition on a combatant.
type ActiveCondition struct {
	Def               *ConditionDef
	Stacks            int
	DurationRemaining int // rounds left; -1 = permanent or until removed
	Source            string
}

// ActiveSet tracks all conditions currently applied to one combatant.
// It is not safe for concurrent use.
type ActiveSet struct {
	conditions map[string]*ActiveCondition
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{conditions: make(map[string]*ActiveCondition)}
}

// Apply adds or refreshes a condition.
// Re-applying increments stacks (capped at MaxStacks; unstackable stays at 1)
// and keeps the longer of the two durations.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true.
func (s *ActiveSet) Apply(def *ConditionDef, stacks, duration int, source string) error {
	if def == nil {
		return fmt.Errorf("condition.Apply: def must not be nil")
	}
	if def.DurationType != DurationRounds {
		duration = -1
	}
	if existing, ok := s.conditions[def.ID]; ok {
		if def.MaxStacks > 0 {
			existing.Stacks = min(existing.Stacks+stacks, def.MaxStacks)
		}
		if existing.DurationRemaining >= 0 && (duration < 0 || duration > existing.DurationRemaining) {
			existing.DurationRemaining = duration
		}
		return nil
	}
	n := 1
	if def.MaxStacks > 0 {
		n = min(max(stacks, 1), def.MaxStacks)
	}
	s.conditions[def.ID] = &ActiveCondition{Def: def, Stacks: n, DurationRemaining: duration, Source: source}
	return nil
}

// Remove deletes the condition with the given ID. Absent IDs are a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	delete(s.conditions, id)
}

// Tick advances round-limited conditions by one round and removes those that
// reach zero. The engine calls it at the end of each of the owner's turns.
//
// Postcondition: returned IDs are sorted and no longer present.
func (s *ActiveSet) Tick() []string {
	var expired []string
	for id, ac := range s.conditions {
		if ac.DurationRemaining < 0 {
			continue
		}
		ac.DurationRemaining--
		if ac.DurationRemaining <= 0 {
			expired = append(expired, id)
			delete(s.conditions, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// EndTurnStart removes every condition that ends when its owner's turn begins
// (standing up from prone) and returns their sorted IDs.
func (s *ActiveSet) EndTurnStart() []string {
	var ended []string
	for id, ac := range s.conditions {
		if ac.Def.EndsAtTurnStart {
			ended = append(ended, id)
			delete(s.conditions, id)
		}
	}
	sort.Strings(ended)
	return ended
}

// Has reports whether the condition with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.conditions[id]
	return ok
}

// Stacks returns the current stack count for condition id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ac, ok := s.conditions[id]; ok {
		return ac.Stacks
	}
	return 0
}

// Len returns the number of active conditions.
func (s *ActiveSet) Len() int {
	return len(s.conditions)
}

// All returns the active conditions sorted by ID. The pointed-to values are
// shared; callers must not modify them.
func (s *ActiveSet) All() []*ActiveCondition {
	out := make([]*ActiveCondition, 0, len(s.conditions))
	for _, ac := range s.conditions {
		out = append(out, ac)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}
