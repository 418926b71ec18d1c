package combat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/game/ai"
	"github.com/cory-johannsen/dpr/internal/game/condition"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

// ErrIllegalTransition is returned when an encounter method is called in a
// state that does not allow it.
var ErrIllegalTransition = errors.New("combat: illegal state transition")

// DefaultCritMultiplier multiplies damage dice on a critical hit.
const DefaultCritMultiplier = 2

// Config controls one encounter. The zero value is usable.
type Config struct {
	// MaxRounds caps the encounter; 0 means DefaultMaxRounds.
	MaxRounds      int
	TieBreak       TieBreak
	CancelPolicy   dice.CancelPolicy
	CritMultiplier int
	// Log enables the structured per-encounter log.
	Log bool
	// Conditions resolves condition IDs; nil means condition.Builtin().
	Conditions *condition.Registry
	// Targeting resolves strategy names; nil means ai.NewRegistry().
	Targeting *ai.Registry
	Logger    *zap.Logger
}

// TurnError locates an error raised while resolving a combatant's turn.
type TurnError struct {
	Round int
	Actor string
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("round %d, %s: %v", e.Round, e.Actor, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// Result is the outcome of a finished encounter.
type Result struct {
	Outcome     Outcome
	Winner      Team // empty unless Outcome is Victory
	Rounds      int
	FinalHP     map[string]int
	DamageDealt map[string]int
	Log         []Entry
}

// Encounter runs one fight between two or more teams.
//
// Invariant: state only moves along the edges accepted by transition.
type Encounter struct {
	cfg        Config
	logger     *zap.Logger
	src        dice.Source
	roller     *dice.Roller
	bus        *event.Bus
	log        *Log
	combatants []*Combatant
	order      []*Combatant
	teams      []Team
	strategies map[string]ai.Strategy

	state   State
	round   int
	current *Combatant
	outcome Outcome
	winner  Team
}

// NewEncounter validates the roster, attaches every combatant's abilities,
// and returns an encounter in NotStarted.
//
// Precondition: src must be non-nil.
// Postcondition: returns an error for duplicate IDs, fewer than two teams,
// unknown targeting strategies, or a failing ability attach.
func NewEncounter(cfg Config, src dice.Source, combatants ...*Combatant) (*Encounter, error) {
	if src == nil {
		return nil, fmt.Errorf("combat.NewEncounter: source must not be nil")
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = TieBreakModifier
	}
	if cfg.CancelPolicy == "" {
		cfg.CancelPolicy = dice.CancelBoth
	}
	if cfg.CritMultiplier <= 0 {
		cfg.CritMultiplier = DefaultCritMultiplier
	}
	if cfg.Conditions == nil {
		cfg.Conditions = condition.Builtin()
	}
	if cfg.Targeting == nil {
		cfg.Targeting = ai.NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Encounter{
		cfg:        cfg,
		logger:     logger,
		src:        src,
		roller:     dice.NewLoggedRoller(src, logger),
		bus:        event.NewBus(),
		strategies: make(map[string]ai.Strategy),
	}
	if cfg.Log {
		e.log = &Log{}
	}

	seen := make(map[string]bool, len(combatants))
	for i, c := range combatants {
		if c == nil {
			return nil, fmt.Errorf("combat.NewEncounter: combatant %d is nil", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("combat.NewEncounter: duplicate combatant id %q", c.ID)
		}
		seen[c.ID] = true
		if !slices.Contains(e.teams, c.Team) {
			e.teams = append(e.teams, c.Team)
		}
		if _, ok := e.strategies[c.Def.Targeting]; !ok {
			s, ok := cfg.Targeting.Get(c.Def.Targeting)
			if !ok {
				return nil, fmt.Errorf("combat.NewEncounter: %s: unknown targeting strategy %q", c.ID, c.Def.Targeting)
			}
			e.strategies[c.Def.Targeting] = s
		}
		c.order = i
		e.combatants = append(e.combatants, c)
	}
	if len(e.teams) < 2 {
		return nil, fmt.Errorf("combat.NewEncounter: need at least two teams, have %d", len(e.teams))
	}
	for _, c := range e.combatants {
		for _, ab := range c.abilities {
			if err := ab.Attach(c, e); err != nil {
				e.Release()
				return nil, fmt.Errorf("combat.NewEncounter: %s: attach %s: %w", c.ID, ab.ID(), err)
			}
		}
	}
	return e, nil
}

// Bus returns the encounter's event bus.
func (e *Encounter) Bus() *event.Bus { return e.bus }

// Roller returns the encounter's logged dice roller.
func (e *Encounter) Roller() *dice.Roller { return e.roller }

// Source returns the encounter's random source.
func (e *Encounter) Source() dice.Source { return e.src }

// Round returns the current round number; 0 before the first round.
func (e *Encounter) Round() int { return e.round }

// State returns the current state.
func (e *Encounter) State() State { return e.state }

// Current returns the combatant whose turn is being resolved, or nil.
func (e *Encounter) Current() *Combatant { return e.current }

// Combatants returns every combatant in insertion order.
func (e *Encounter) Combatants() []*Combatant { return e.combatants }

// Order returns the initiative order; empty before RollInitiative.
func (e *Encounter) Order() []*Combatant { return e.order }

// Combatant returns the combatant with the given ID, or nil.
func (e *Encounter) Combatant(id string) *Combatant {
	for _, c := range e.combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Enemies returns living combatants on other teams, in initiative order once
// initiative has been rolled.
func (e *Encounter) Enemies(of *Combatant) []*Combatant {
	return e.filter(func(c *Combatant) bool { return c.Team != of.Team && c.IsAlive() })
}

// Allies returns living combatants on the same team, excluding of itself.
func (e *Encounter) Allies(of *Combatant) []*Combatant {
	return e.filter(func(c *Combatant) bool { return c != of && c.Team == of.Team && c.IsAlive() })
}

func (e *Encounter) filter(keep func(*Combatant) bool) []*Combatant {
	list := e.order
	if len(list) == 0 {
		list = e.combatants
	}
	var out []*Combatant
	for _, c := range list {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Logf appends a structured entry in the current round. It is a no-op when
// the encounter log is disabled.
func (e *Encounter) Logf(kind EntryKind, actor, target *Combatant, amount int, format string, args ...any) {
	if e.log == nil {
		return
	}
	entry := Entry{Round: e.round, Kind: kind, Amount: amount, Detail: fmt.Sprintf(format, args...)}
	if actor != nil {
		entry.Actor = actor.ID
	}
	if target != nil {
		entry.Target = target.ID
	}
	e.log.Add(entry)
}

// ApplyCondition applies the registered condition id to target.
//
// Postcondition: returns an error when id is not registered.
func (e *Encounter) ApplyCondition(target *Combatant, id string, rounds int, source string) error {
	def, ok := e.cfg.Conditions.Get(id)
	if !ok {
		return fmt.Errorf("combat.ApplyCondition: unknown condition %q", id)
	}
	if err := target.Conditions.Apply(def, 1, rounds, source); err != nil {
		return err
	}
	e.Logf(LogCondition, nil, target, rounds, "%s applied by %s", id, source)
	return nil
}

// Spend deducts amount of a resource from actor's ledger and publishes
// resource_spent on success.
//
// Postcondition: the ledger is unchanged when the first result is false.
func (e *Encounter) Spend(actor *Combatant, name string, amount int) (bool, error) {
	if !actor.Resources.Spend(name, amount) {
		return false, nil
	}
	remaining := actor.Resources.Current(name)
	e.Logf(LogResource, actor, nil, amount, "%s (%d left)", name, remaining)
	err := e.bus.Publish(&ResourceSpent{Encounter: e, Actor: actor, Resource: name, Amount: amount, Remaining: remaining})
	return true, err
}

func (e *Encounter) transition(to State) error {
	legal := false
	switch e.state {
	case NotStarted:
		legal = to == InitiativeRolled
	case InitiativeRolled:
		legal = to == RoundInProgress
	case RoundInProgress:
		legal = to == RoundComplete
	case RoundComplete:
		legal = to == RoundInProgress || to == EncounterEnded
	}
	if !legal {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.state, to)
	}
	e.state = to
	return nil
}

// RollInitiative rolls d20 + initiative modifier for every combatant and
// fixes the turn order: higher totals first, ties broken by the configured
// policy and then insertion order.
func (e *Encounter) RollInitiative() error {
	if err := e.transition(InitiativeRolled); err != nil {
		return err
	}
	for _, c := range e.combatants {
		c.Initiative = e.roller.RollDie(20) + c.InitiativeMod()
	}
	e.order = slices.Clone(e.combatants)
	slices.SortStableFunc(e.order, func(a, b *Combatant) int {
		if a.Initiative != b.Initiative {
			return b.Initiative - a.Initiative
		}
		if e.cfg.TieBreak == TieBreakModifier && a.InitiativeMod() != b.InitiativeMod() {
			return b.InitiativeMod() - a.InitiativeMod()
		}
		return a.order - b.order
	})
	return nil
}

// StartRound begins the next round and publishes round_start.
func (e *Encounter) StartRound() error {
	if err := e.transition(RoundInProgress); err != nil {
		return err
	}
	e.round++
	return e.bus.Publish(&RoundMarker{Name: event.RoundStart, Encounter: e, Round: e.round})
}

// PlayRound resolves every turn of the current round in initiative order and
// publishes round_end. The encounter ends when a team
// has no able members or the round cap is reached.
//
// Precondition: State() == RoundInProgress.
// Postcondition: State() is RoundComplete or EncounterEnded unless an error
// is returned; errors are *TurnError when raised inside a turn.
func (e *Encounter) PlayRound() error {
	if e.state != RoundInProgress {
		return fmt.Errorf("%w: play round in %s", ErrIllegalTransition, e.state)
	}
	for _, c := range e.order {
		if e.decided() {
			break
		}
		e.current = c
		if err := e.takeTurn(c); err != nil {
			return &TurnError{Round: e.round, Actor: c.ID, Err: err}
		}
	}
	e.current = nil
	if err := e.bus.Publish(&RoundMarker{Name: event.RoundEnd, Encounter: e, Round: e.round}); err != nil {
		return &TurnError{Round: e.round, Err: err}
	}
	if err := e.transition(RoundComplete); err != nil {
		return err
	}
	if e.decided() || e.round >= e.cfg.MaxRounds {
		if e.outcome == "" {
			e.outcome = Stalemate
		}
		return e.transition(EncounterEnded)
	}
	return nil
}

// Run plays the encounter to completion.
//
// Postcondition: State() == EncounterEnded on success.
func (e *Encounter) Run(ctx context.Context) (*Result, error) {
	if e.state == NotStarted {
		if err := e.RollInitiative(); err != nil {
			return nil, err
		}
	}
	for e.state != EncounterEnded {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.StartRound(); err != nil {
			return nil, err
		}
		if err := e.PlayRound(); err != nil {
			return nil, err
		}
	}
	res := e.Result()
	e.logger.Debug("encounter ended",
		zap.String("outcome", string(res.Outcome)),
		zap.String("winner", string(res.Winner)),
		zap.Int("rounds", res.Rounds),
	)
	return res, nil
}

// Result returns the encounter result, or nil before it has ended.
func (e *Encounter) Result() *Result {
	if e.state != EncounterEnded {
		return nil
	}
	res := &Result{
		Outcome:     e.outcome,
		Winner:      e.winner,
		Rounds:      e.round,
		FinalHP:     make(map[string]int, len(e.combatants)),
		DamageDealt: make(map[string]int, len(e.combatants)),
		Log:         e.log.Entries(),
	}
	for _, c := range e.combatants {
		res.FinalHP[c.ID] = c.HP
		res.DamageDealt[c.ID] = c.DamageDealt
	}
	return res
}

// Release frees resources held by attached abilities. It is safe to call
// more than once.
func (e *Encounter) Release() {
	for _, c := range e.combatants {
		for _, ab := range c.abilities {
			if r, ok := ab.(Releaser); ok {
				r.Release()
			}
		}
	}
}

// decided records the outcome once at most one team has an able member.
func (e *Encounter) decided() bool {
	if e.outcome == Victory || e.outcome == Draw {
		return true
	}
	var able []Team
	for _, c := range e.combatants {
		if c.CanAct() && !slices.Contains(able, c.Team) {
			able = append(able, c.Team)
		}
	}
	switch len(able) {
	case 0:
		e.outcome = Draw
		return true
	case 1:
		e.outcome, e.winner = Victory, able[0]
		return true
	}
	return false
}

// takeTurn resolves c's turn. Round-limited conditions on c count down when
// the turn ends, skipped or not, so a one-round condition always covers the
// owner's next turn whoever applied it.
func (e *Encounter) takeTurn(c *Combatant) error {
	defer e.expireConditions(c)
	turn := &Turn{Name: event.TurnSkipped, Encounter: e, Actor: c, Round: e.round}
	if !c.CanAct() {
		if c.IsAlive() {
			e.Logf(LogSkip, c, nil, 0, "incapacitated")
		}
		return e.bus.Publish(turn)
	}
	for _, id := range c.Conditions.EndTurnStart() {
		e.Logf(LogCondition, nil, c, 0, "%s ended", id)
	}
	c.resetTurnFlags()
	turn.Actions, turn.BonusActions = 1, 1

	for _, stage := range []event.Name{event.BeginTurn, event.BeforeAction} {
		turn.Name = stage
		if err := e.bus.Publish(turn); err != nil {
			return err
		}
	}
	for i := 0; i < turn.Actions; i++ {
		if e.decided() || !c.CanAct() {
			break
		}
		if err := e.act(c, c.Def.Actions, false); err != nil {
			return err
		}
	}
	for i := 0; i < turn.BonusActions; i++ {
		if e.decided() || !c.CanAct() {
			break
		}
		if err := e.act(c, c.Def.BonusActions, true); err != nil {
			return err
		}
	}
	for _, stage := range []event.Name{event.AfterAction, event.EndTurn} {
		turn.Name = stage
		if err := e.bus.Publish(turn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encounter) expireConditions(c *Combatant) {
	for _, id := range c.Conditions.Tick() {
		e.Logf(LogCondition, nil, c, 0, "%s expired", id)
	}
}

// act takes one action or bonus action: the first affordable definition is
// offered to listeners, which may replace or handle it, and otherwise it is
// resolved with the default tactic.
func (e *Encounter) act(c *Combatant, defs []creature.ActionDef, bonus bool) error {
	choice := &ActionChoice{Encounter: e, Actor: c, Round: e.round, Bonus: bonus}
	for i := range defs {
		def := &defs[i]
		if def.Cost != nil && c.Resources.Current(def.Cost.Resource) < def.Cost.Amount {
			continue
		}
		a, err := c.Action(def)
		if err != nil {
			return err
		}
		choice.Action = a
		break
	}
	if err := e.bus.Publish(choice); err != nil {
		return err
	}
	if choice.Handled || choice.Action == nil {
		return nil
	}
	a := choice.Action
	if a.Def != nil && a.Def.Cost != nil {
		ok, err := e.Spend(c, a.Def.Cost.Resource, a.Def.Cost.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return e.Execute(c, a)
}

// Execute resolves a with the default tactic: every attack of a multiattack
// against a target picked by the actor's strategy, or one saving throw
// effect against up to the action's target count.
func (e *Encounter) Execute(c *Combatant, a *Action) error {
	if a.Kind == creature.ActionSave {
		targets := e.PickTargets(c, a.targetCount())
		if len(targets) == 0 {
			return nil
		}
		return e.resolveSave(c, targets, a.attempt())
	}
	for range a.attacks() {
		if e.decided() {
			return nil
		}
		targets := e.PickTargets(c, 1)
		if len(targets) == 0 {
			return nil
		}
		if err := e.resolveAttack(c, targets[0], a.attempt()); err != nil {
			return err
		}
	}
	return nil
}

// PickTargets selects up to n distinct living enemies with the actor's strategy.
func (e *Encounter) PickTargets(c *Combatant, n int) []*Combatant {
	candidates := e.Enemies(c)
	strategy := e.strategies[c.Def.Targeting]
	var picked []*Combatant
	for len(picked) < n && len(candidates) > 0 {
		ws := &ai.WorldState{SelfID: c.ID, Round: e.round, Enemies: make([]*ai.CombatantState, len(candidates))}
		for i, t := range candidates {
			ws.Enemies[i] = &ai.CombatantState{
				ID: t.ID, Name: t.Name(), HP: t.HP, MaxHP: t.MaxHP(), AC: t.AC(), Threat: t.Def.Threat,
			}
		}
		idx := strategy(ws, e.src)
		if idx < 0 || idx >= len(candidates) {
			break
		}
		picked = append(picked, candidates[idx])
		candidates = slices.Delete(candidates, idx, idx+1)
	}
	return picked
}
