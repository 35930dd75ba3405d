package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_PublishReachesRoomSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a := hub.Subscribe("room-1", "alice")
	b := hub.Subscribe("room-1", "bob")
	other := hub.Subscribe("room-2", "carol")

	hub.Publish("room-1", CategoryCardMoved)

	for _, sub := range []*Subscription{a, b} {
		select {
		case n := <-sub.C:
			assert.Equal(t, "room-1", n.RoomID)
			assert.Equal(t, CategoryCardMoved, n.Category)
		default:
			t.Fatalf("subscriber %s did not receive notification", sub.ID)
		}
	}

	select {
	case n := <-other.C:
		t.Fatalf("room-2 subscriber received %v", n)
	default:
	}
}

func TestHub_FIFOPerSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("room-1", "alice")

	order := []Category{CategoryMatchStarted, CategoryPhaseChanged, CategoryCardMoved, CategoryLifeUpdated}
	for _, c := range order {
		hub.Publish("room-1", c)
	}

	for _, want := range order {
		n := <-sub.C
		assert.Equal(t, want, n.Category)
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("room-1", "alice")

	// Overfill the buffer; Publish must not block.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish("room-1", CategoryCardTapped)
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
		default:
			assert.Equal(t, subscriberBuffer, received)
			return
		}
	}
}

func TestHub_UnsubscribeIsolation(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a := hub.Subscribe("room-1", "alice")
	b := hub.Subscribe("room-1", "bob")
	require.Equal(t, 2, hub.SubscriberCount("room-1"))

	a.Unsubscribe()
	a.Unsubscribe() // idempotent

	assert.Equal(t, 1, hub.SubscriberCount("room-1"))

	hub.Publish("room-1", CategoryRoomUpdated)
	n := <-b.C
	assert.Equal(t, CategoryRoomUpdated, n.Category)

	// Channel of the departed subscriber is closed.
	_, open := <-a.C
	assert.False(t, open)
}

func TestHub_CloseRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a := hub.Subscribe("room-1", "alice")
	b := hub.Subscribe("room-1", "bob")

	hub.CloseRoom("room-1")

	assert.Equal(t, 0, hub.SubscriberCount("room-1"))
	for _, sub := range []*Subscription{a, b} {
		_, open := <-sub.C
		assert.False(t, open)
	}

	// Publishing to a closed room is a no-op.
	hub.Publish("room-1", CategoryRoomDeleted)
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.Publish("room-1", CategoryCardMoved)
		}
	}()

	for i := 0; i < 50; i++ {
		sub := hub.Subscribe("room-1", "p")
		sub.Unsubscribe()
	}
	<-done
}
