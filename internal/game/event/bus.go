// Package event implements the synchronous publish/subscribe bus that
// ability modules use to observe and modify in-flight turns and rolls.
//
// Dispatch is delegated to the rpg-toolkit event bus. Listeners for one event
// name run in registration order and share the same payload pointer, so later
// listeners observe earlier mutations.
package event

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/KirkDiggler/rpg-toolkit/events"
)

// Name identifies an event.
type Name string

// Event names published by the combat engine.
const (
	RoundStart    Name = "round_start"
	RoundEnd      Name = "round_end"
	BeginTurn     Name = "begin_turn"
	TurnSkipped   Name = "turn_skipped"
	BeforeAction  Name = "before_action"
	Action        Name = "action"
	AfterAction   Name = "after_action"
	EndTurn       Name = "end_turn"
	AttackRoll    Name = "attack_roll"
	AttackResult  Name = "attack_result"
	DamageRoll    Name = "damage_roll"
	SavingThrow   Name = "saving_throw"
	SaveResult    Name = "save_result"
	Defeated      Name = "defeated"
	ResourceSpent Name = "resource_spent"
	SpellCast     Name = "spell_cast"
)

// Payload is the mutable record passed to every listener of one publication.
type Payload interface {
	EventName() Name
}

// Listener handles one publication. A non-nil error aborts the publication.
type Listener func(p Payload) error

// ErrSubscribeDuringPublish is returned when a listener tries to change the
// subscriptions of the event that is currently being published.
var ErrSubscribeDuringPublish = errors.New("event: cannot change subscriptions of an event while it is being published")

// ListenerError wraps the error of the listener that aborted a publication.
type ListenerError struct {
	Event Name
	Index int // registration position of the failing listener
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("event %s: listener %d: %v", e.Event, e.Index, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// Subscription identifies one registered listener.
type Subscription struct {
	name Name
	id   string
}

// Name returns the event name of the subscription.
func (s Subscription) Name() Name { return s.name }

// envelope carries a payload through the toolkit bus.
type envelope struct {
	*events.GameEvent
	payload Payload
}

// topPriority is the priority of the first subscription. The toolkit runs
// higher priorities first, so each later subscription gets a lower one.
const topPriority = 1 << 30

// Bus dispatches payloads to listeners. A Bus belongs to one encounter and is
// not safe for concurrent use.
type Bus struct {
	inner  events.EventBus
	order  map[Name][]string
	firing map[Name]int
	seq    int
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{
		inner:  events.NewBus(),
		order:  make(map[Name][]string),
		firing: make(map[Name]int),
	}
}

// Subscribe registers fn for name after any existing listeners.
//
// Postcondition: returns ErrSubscribeDuringPublish if name is being published.
func (b *Bus) Subscribe(name Name, fn Listener) (Subscription, error) {
	if fn == nil {
		return Subscription{}, fmt.Errorf("event: nil listener for %s", name)
	}
	if b.firing[name] > 0 {
		return Subscription{}, fmt.Errorf("subscribe %s: %w", name, ErrSubscribeDuringPublish)
	}
	b.seq++
	var id string
	id = b.inner.SubscribeFunc(string(name), topPriority-b.seq, func(_ context.Context, ev events.Event) error {
		env, ok := ev.(*envelope)
		if !ok {
			return fmt.Errorf("event %s: foreign event %T", name, ev)
		}
		if err := fn(env.payload); err != nil {
			return &ListenerError{Event: name, Index: slices.Index(b.order[name], id), Err: err}
		}
		return nil
	})
	b.order[name] = append(b.order[name], id)
	return Subscription{name: name, id: id}, nil
}

// Unsubscribe removes a listener. Unknown subscriptions are ignored.
//
// Postcondition: returns ErrSubscribeDuringPublish if the event is being published.
func (b *Bus) Unsubscribe(s Subscription) error {
	if b.firing[s.name] > 0 {
		return fmt.Errorf("unsubscribe %s: %w", s.name, ErrSubscribeDuringPublish)
	}
	ids := b.order[s.name]
	i := slices.Index(ids, s.id)
	if i < 0 {
		return nil
	}
	if err := b.inner.Unsubscribe(s.id); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", s.name, err)
	}
	b.order[s.name] = slices.Delete(ids, i, i+1)
	return nil
}

// Publish delivers p to every listener of p.EventName() in registration order.
//
// Postcondition: the first listener error stops delivery and is returned as
// a *ListenerError; listeners after it do not run.
func (b *Bus) Publish(p Payload) error {
	name := p.EventName()
	if len(b.order[name]) == 0 {
		return nil
	}
	b.firing[name]++
	defer func() { b.firing[name]-- }()

	env := &envelope{GameEvent: events.NewGameEvent(string(name), nil, nil), payload: p}
	if err := b.inner.Publish(context.Background(), env); err != nil {
		var le *ListenerError
		if errors.As(err, &le) {
			return le
		}
		return fmt.Errorf("event %s: %w", name, err)
	}
	return nil
}

// Count returns the number of listeners registered for name.
func (b *Bus) Count(name Name) int {
	return len(b.order[name])
}

// On subscribes a typed listener. Payloads of another concrete type are
// reported as errors so a wiring mistake aborts the resolution instead of
// being skipped.
func On[T Payload](b *Bus, name Name, fn func(T) error) (Subscription, error) {
	return b.Subscribe(name, func(p Payload) error {
		typed, ok := p.(T)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", name, p)
		}
		return fn(typed)
	})
}
