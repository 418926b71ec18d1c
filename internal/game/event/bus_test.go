package event_test

import (
	"errors"
	"testing"

	"github.com/cory-johannsen/dpr/internal/game/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type bonusPayload struct {
	Bonus int
	Seen  []int
}

func (*bonusPayload) EventName() event.Name { return event.AttackRoll }

type otherPayload struct{}

func (*otherPayload) EventName() event.Name { return event.AttackRoll }

func TestBus_ListenersSeePriorMutationsInOrder(t *testing.T) {
	b := event.NewBus()
	for i := 1; i <= 3; i++ {
		i := i
		_, err := event.On(b, event.AttackRoll, func(p *bonusPayload) error {
			p.Seen = append(p.Seen, p.Bonus)
			p.Bonus += i
			return nil
		})
		require.NoError(t, err)
	}
	p := &bonusPayload{}
	require.NoError(t, b.Publish(p))
	assert.Equal(t, []int{0, 1, 3}, p.Seen)
	assert.Equal(t, 6, p.Bonus)
}

func TestBus_ErrorStopsPublication(t *testing.T) {
	b := event.NewBus()
	boom := errors.New("boom")
	ran := false
	_, _ = b.Subscribe(event.AttackRoll, func(event.Payload) error { return boom })
	_, _ = b.Subscribe(event.AttackRoll, func(event.Payload) error { ran = true; return nil })

	err := b.Publish(&bonusPayload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, event.AttackRoll, le.Event)
	assert.Equal(t, 0, le.Index)
	assert.False(t, ran)
}

func TestBus_SubscribeDuringPublishOfSameEventIsRejected(t *testing.T) {
	b := event.NewBus()
	var inner error
	_, _ = b.Subscribe(event.AttackRoll, func(event.Payload) error {
		_, inner = b.Subscribe(event.AttackRoll, func(event.Payload) error { return nil })
		_, other := b.Subscribe(event.DamageRoll, func(event.Payload) error { return nil })
		return other
	})
	require.NoError(t, b.Publish(&bonusPayload{}))
	assert.ErrorIs(t, inner, event.ErrSubscribeDuringPublish)
	assert.Equal(t, 1, b.Count(event.AttackRoll))
	assert.Equal(t, 1, b.Count(event.DamageRoll))
}

func TestBus_Unsubscribe(t *testing.T) {
	b := event.NewBus()
	calls := 0
	s, err := b.Subscribe(event.AttackRoll, func(event.Payload) error { calls++; return nil })
	require.NoError(t, err)
	require.NoError(t, b.Unsubscribe(s))
	require.NoError(t, b.Publish(&bonusPayload{}))
	assert.Zero(t, calls)
}

func TestOn_WrongPayloadTypeIsAnError(t *testing.T) {
	b := event.NewBus()
	_, err := event.On(b, event.AttackRoll, func(*bonusPayload) error { return nil })
	require.NoError(t, err)
	assert.Error(t, b.Publish(&otherPayload{}))
}

func TestBus_RegistrationOrder_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "listeners")
		b := event.NewBus()
		var order []int
		for i := 0; i < n; i++ {
			i := i
			_, err := b.Subscribe(event.AttackRoll, func(event.Payload) error { order = append(order, i); return nil })
			require.NoError(rt, err)
		}
		require.NoError(rt, b.Publish(&bonusPayload{}))
		require.Len(rt, order, n)
		for i, v := range order {
			assert.Equal(rt, i, v)
		}
	})
}

func TestBus_OrderAndIndexSurviveUnsubscribe(t *testing.T) {
	b := event.NewBus()
	var order []string
	add := func(tag string, err error) event.Subscription {
		s, subErr := b.Subscribe(event.AttackRoll, func(event.Payload) error {
			order = append(order, tag)
			return err
		})
		require.NoError(t, subErr)
		return s
	}
	add("a", nil)
	middle := add("b", nil)
	add("c", nil)
	require.NoError(t, b.Unsubscribe(middle))
	boom := errors.New("boom")
	add("d", boom)

	err := b.Publish(&bonusPayload{})
	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Index)
	assert.Equal(t, []string{"a", "c", "d"}, order)
	assert.Equal(t, 3, b.Count(event.AttackRoll))
	assert.Equal(t, event.AttackRoll, middle.Name())
	assert.NoError(t, b.Unsubscribe(middle), "second unsubscribe is ignored")
}

func TestBus_UnsubscribeDuringPublishIsRejected(t *testing.T) {
	b := event.NewBus()
	var self event.Subscription
	var inner error
	self, err := b.Subscribe(event.AttackRoll, func(event.Payload) error {
		inner = b.Unsubscribe(self)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(&bonusPayload{}))
	assert.ErrorIs(t, inner, event.ErrSubscribeDuringPublish)
	assert.Equal(t, 1, b.Count(event.AttackRoll))
}
