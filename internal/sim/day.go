package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

// DayResult is one simulated adventuring day at one level.
type DayResult struct {
	Level      int
	Iteration  int
	Encounters []EncounterSummary
	// Rounds is the number of rounds elapsed across every encounter.
	Rounds int
	// Dealt is the damage each party member landed across the day.
	Dealt map[string]int
	// Spends counts resource units spent per party member and resource.
	Spends map[string]map[string]int
}

// EncounterSummary is the outcome of one encounter of a day.
type EncounterSummary struct {
	Index   int            `json:"index"`
	Outcome combat.Outcome `json:"outcome"`
	Winner  combat.Team    `json:"winner,omitempty"`
	Rounds  int            `json:"rounds"`
	Log     []combat.Entry `json:"log,omitempty"`
}

// DPR returns the damage id dealt per round elapsed across the day.
func (d *DayResult) DPR(id string) float64 {
	if d.Rounds == 0 {
		return 0
	}
	return float64(d.Dealt[id]) / float64(d.Rounds)
}

// PartyDPR returns the combined damage of the party per round elapsed.
func (d *DayResult) PartyDPR() float64 {
	if d.Rounds == 0 {
		return 0
	}
	total := 0
	for _, v := range d.Dealt {
		total += v
	}
	return float64(total) / float64(d.Rounds)
}

// slot is one combatant of a plan.
type slot struct {
	id  string
	def *creature.Definition
}

// plan is the resolved roster for one level.
type plan struct {
	index   int
	level   int
	party   []slot
	enemies []slot
}

// day runs the encounters of one iteration in order.
type day struct {
	sim     *Simulator
	req     *Request
	plan    *plan
	iter    int
	src     dice.Source
	ledgers map[string]*resource.Ledger
	hp      map[string]int
	res     *DayResult

	enc   *combat.Encounter
	index int
}

// runDay simulates one day of p. It starts after a long rest, so every pool
// is full and every party member is at full hit points.
//
// Postcondition: a cancelled ctx returns ctx.Err() unwrapped; every other
// failure, including a panic, is returned as *IterationError.
func (s *Simulator) runDay(ctx context.Context, req *Request, p *plan, iter int) (res *DayResult, err error) {
	d := &day{
		sim:     s,
		req:     req,
		plan:    p,
		iter:    iter,
		ledgers: make(map[string]*resource.Ledger, len(p.party)),
		hp:      make(map[string]int, len(p.party)),
		res: &DayResult{
			Level:     p.level,
			Iteration: iter,
			Dealt:     make(map[string]int, len(p.party)),
			Spends:    make(map[string]map[string]int, len(p.party)),
		},
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, d.fail(fmt.Errorf("panic: %v", r))
		}
	}()
	d.src = s.sources(IterationSeed(req.Seed, p.level, iter))

	for _, sl := range p.party {
		l, err := resource.FromDefs(sl.def.Resources)
		if err != nil {
			return nil, d.fail(err)
		}
		spends := make(map[string]int)
		l.Observe(func(e resource.Entry, amount int) { spends[e.Name] += amount })
		d.ledgers[sl.id] = l
		d.res.Spends[sl.id] = spends
		d.hp[sl.id] = sl.def.MaxHP
	}

	for n := 1; n <= req.EncountersPerDay; n++ {
		d.index = n
		summary, err := d.encounter(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, d.fail(err)
		}
		d.res.Encounters = append(d.res.Encounters, summary)
		d.res.Rounds += summary.Rounds
		if req.ShortRestEvery > 0 && n%req.ShortRestEvery == 0 && n < req.EncountersPerDay {
			for _, l := range d.ledgers {
				l.Reset(resource.ShortRest)
			}
		}
	}
	return d.res, nil
}

// encounter builds and runs encounter d.index. Abilities are built fresh
// for every encounter; ledgers persist across the day.
func (d *day) encounter(ctx context.Context) (EncounterSummary, error) {
	roster := make([]*combat.Combatant, 0, len(d.plan.party)+len(d.plan.enemies))
	for _, sl := range d.plan.party {
		abilities, err := d.sim.abilities.BuildAll(sl.def)
		if err != nil {
			return EncounterSummary{}, err
		}
		opts := []combat.Option{
			combat.WithLedger(d.ledgers[sl.id]),
			combat.WithAbilities(abilities...),
		}
		if d.req.CarryHP {
			opts = append(opts, combat.WithHP(d.hp[sl.id]))
		}
		c, err := combat.NewCombatant(sl.id, sl.def, combat.TeamParty, opts...)
		if err != nil {
			return EncounterSummary{}, err
		}
		roster = append(roster, c)
	}
	for _, sl := range d.plan.enemies {
		abilities, err := d.sim.abilities.BuildAll(sl.def)
		if err != nil {
			return EncounterSummary{}, err
		}
		c, err := combat.NewCombatant(sl.id, sl.def, combat.TeamEnemies, combat.WithAbilities(abilities...))
		if err != nil {
			return EncounterSummary{}, err
		}
		roster = append(roster, c)
	}

	enc, err := combat.NewEncounter(combat.Config{
		MaxRounds:      d.req.RoundsPerEncounter,
		TieBreak:       d.req.TieBreak,
		CancelPolicy:   d.req.CancelPolicy,
		CritMultiplier: d.req.CritMultiplier,
		Log:            d.iter < d.req.LogIterations,
		Conditions:     d.sim.conditions,
		Targeting:      d.sim.targeting,
		Logger:         d.sim.logger,
	}, d.src, roster...)
	if err != nil {
		return EncounterSummary{}, err
	}
	d.enc = enc
	defer enc.Release()

	res, err := enc.Run(ctx)
	if err != nil {
		return EncounterSummary{}, err
	}
	for _, sl := range d.plan.party {
		d.res.Dealt[sl.id] += res.DamageDealt[sl.id]
		d.hp[sl.id] = res.FinalHP[sl.id]
	}
	return EncounterSummary{
		Index:   d.index,
		Outcome: res.Outcome,
		Winner:  res.Winner,
		Rounds:  res.Rounds,
		Log:     res.Log,
	}, nil
}

// fail locates err in the day.
func (d *day) fail(err error) *IterationError {
	ie := &IterationError{
		Level:     d.plan.level,
		Iteration: d.iter,
		Encounter: d.index,
		Err:       err,
	}
	var te *combat.TurnError
	switch {
	case errors.As(err, &te):
		ie.Round, ie.Actor = te.Round, te.Actor
	case d.enc != nil:
		ie.Round = d.enc.Round()
		if c := d.enc.Current(); c != nil {
			ie.Actor = c.ID
		}
	}
	return ie
}
