package ai

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// Strategy names.
const (
	StrategyFirst         = "first"
	StrategyWeakest       = "weakest"
	StrategyLowestHP      = "lowest_hp"
	StrategyHighestThreat = "highest_threat"
	StrategyRandom        = "random"
)

// Strategy chooses a target from ws.Enemies.
//
// Postcondition: returns an index into ws.Enemies, or -1 when it is empty.
// Implementations draw randomness only from src.
type Strategy func(ws *WorldState, src dice.Source) int

func random(ws *WorldState, src dice.Source) int {
	if len(ws.Enemies) == 0 {
		return -1
	}
	return src.Intn(len(ws.Enemies))
}

// lowestHP picks the most damaged enemy, or a random one while nobody has
// been hurt yet so monsters spread early attacks.
func lowestHP(ws *WorldState, src dice.Source) int {
	if len(ws.Enemies) > 1 && ws.AllAtFull() {
		return random(ws, src)
	}
	return ws.LowestHP()
}

// Registry indexes strategies by name.
//
// Invariant: each name is registered at most once.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns a Registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.strategies[StrategyFirst] = func(ws *WorldState, _ dice.Source) int { return ws.Nearest() }
	r.strategies[StrategyWeakest] = func(ws *WorldState, _ dice.Source) int { return ws.Weakest() }
	r.strategies[StrategyLowestHP] = lowestHP
	r.strategies[StrategyHighestThreat] = func(ws *WorldState, _ dice.Source) int { return ws.HighestThreat() }
	r.strategies[StrategyRandom] = random
	return r
}

// Register adds a named strategy.
//
// Postcondition: returns error on name collision or nil strategy.
func (r *Registry) Register(name string, s Strategy) error {
	if s == nil {
		return fmt.Errorf("ai.Registry: strategy %q is nil", name)
	}
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("ai.Registry: strategy %q already registered", name)
	}
	r.strategies[name] = s
	return nil
}

// Get returns the strategy for name. The empty name resolves to "first".
func (r *Registry) Get(name string) (Strategy, bool) {
	if name == "" {
		name = StrategyFirst
	}
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns every registered name sorted alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
