// Package resource implements the per-combatant ledger of consumable pools
// such as spell slots and per-rest ability charges.
package resource

import (
	"errors"
	"fmt"
	"sort"
)

// Trigger names the rest event that refills an Entry.
type Trigger string

const (
	ShortRest Trigger = "short_rest"
	LongRest  Trigger = "long_rest"
	Never     Trigger = "never"
)

// Recovery controls how much of an Entry a matching rest restores.
type Recovery string

const (
	// Full refills the entry to its maximum.
	Full Recovery = "full"
	// Half restores floor(max/2), clamped to the maximum.
	Half Recovery = "half"
)

// Def is the static description of an Entry.
type Def struct {
	Name     string   `yaml:"name"`
	Max      int      `yaml:"max"`
	Trigger  Trigger  `yaml:"reset"`
	Recovery Recovery `yaml:"recovery"`
}

// Validate reports a configuration error for malformed definitions.
func (d Def) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Max < 0 {
		errs = append(errs, fmt.Errorf("max must be >= 0, got %d", d.Max))
	}
	switch d.Trigger {
	case "", ShortRest, LongRest, Never:
	default:
		errs = append(errs, fmt.Errorf("unknown reset trigger %q", d.Trigger))
	}
	switch d.Recovery {
	case "", Full, Half:
	default:
		errs = append(errs, fmt.Errorf("unknown recovery %q", d.Recovery))
	}
	if len(errs) > 0 {
		return fmt.Errorf("resource %q: %w", d.Name, errors.Join(errs...))
	}
	return nil
}

// Entry is a read-only view of one pool.
//
// Invariant: 0 <= Current <= Max.
type Entry struct {
	Name     string
	Current  int
	Max      int
	Trigger  Trigger
	Recovery Recovery
}

// SpendObserver is notified after every successful spend.
type SpendObserver func(e Entry, amount int)

// Ledger tracks every pool owned by one combatant. The zero value is not
// usable; call New.
//
// Invariant: every entry satisfies 0 <= current <= max at every observation point.
type Ledger struct {
	entries  map[string]*entry
	order    []string
	observer SpendObserver
}

type entry struct {
	current  int
	max      int
	trigger  Trigger
	recovery Recovery
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

// FromDefs builds a Ledger with every definition added at full.
//
// Postcondition: returns an error if any definition is invalid or duplicated.
func FromDefs(defs []Def) (*Ledger, error) {
	l := New()
	for _, d := range defs {
		if err := l.Add(d); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Observe installs fn as the spend observer, replacing any previous one.
func (l *Ledger) Observe(fn SpendObserver) {
	l.observer = fn
}

// Add registers a new pool at full.
//
// Precondition: d.Name is not already present.
func (l *Ledger) Add(d Def) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, dup := l.entries[d.Name]; dup {
		return fmt.Errorf("resource %q: duplicate entry", d.Name)
	}
	trigger := d.Trigger
	if trigger == "" {
		trigger = LongRest
	}
	recovery := d.Recovery
	if recovery == "" {
		recovery = Full
	}
	l.entries[d.Name] = &entry{current: d.Max, max: d.Max, trigger: trigger, recovery: recovery}
	l.order = append(l.order, d.Name)
	return nil
}

// Has reports whether a pool with the given name exists.
func (l *Ledger) Has(name string) bool {
	_, ok := l.entries[name]
	return ok
}

// Current returns the current count of name, or 0 if absent.
func (l *Ledger) Current(name string) int {
	if e, ok := l.entries[name]; ok {
		return e.current
	}
	return 0
}

// Max returns the maximum of name, or 0 if absent.
func (l *Ledger) Max(name string) int {
	if e, ok := l.entries[name]; ok {
		return e.max
	}
	return 0
}

// Get returns a snapshot of name.
func (l *Ledger) Get(name string) (Entry, bool) {
	e, ok := l.entries[name]
	if !ok {
		return Entry{}, false
	}
	return e.view(name), true
}

// Entries returns snapshots of all pools in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.entries[name].view(name))
	}
	return out
}

// Spend removes amount from name.
//
// Postcondition: returns false without mutation when name is unknown, amount
// is negative, or the pool holds less than amount.
func (l *Ledger) Spend(name string, amount int) bool {
	e, ok := l.entries[name]
	if !ok || amount < 0 || e.current < amount {
		return false
	}
	e.current -= amount
	if l.observer != nil && amount > 0 {
		l.observer(e.view(name), amount)
	}
	return true
}

// Restore adds amount to name, clamped to the maximum. Unknown names and
// negative amounts are ignored.
func (l *Ledger) Restore(name string, amount int) {
	e, ok := l.entries[name]
	if !ok || amount <= 0 {
		return
	}
	e.current = min(e.current+amount, e.max)
}

// Reset applies a rest. A short rest refills short-rest pools; a long rest
// refills both short-rest and long-rest pools. Never pools are untouched.
func (l *Ledger) Reset(t Trigger) {
	for _, e := range l.entries {
		if !matches(e.trigger, t) {
			continue
		}
		switch e.recovery {
		case Half:
			e.current = min(e.current+e.max/2, e.max)
		default:
			e.current = e.max
		}
	}
}

func matches(entryTrigger, rest Trigger) bool {
	switch rest {
	case ShortRest:
		return entryTrigger == ShortRest
	case LongRest:
		return entryTrigger == ShortRest || entryTrigger == LongRest
	default:
		return false
	}
}

// Names returns the pool names sorted alphabetically.
func (l *Ledger) Names() []string {
	out := append([]string(nil), l.order...)
	sort.Strings(out)
	return out
}

func (e *entry) view(name string) Entry {
	return Entry{Name: name, Current: e.current, Max: e.max, Trigger: e.trigger, Recovery: e.recovery}
}
