package live

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesEverySubscriber(t *testing.T) {
	hub := NewHub()
	a := hub.add(nil)
	b := hub.add(nil)

	hub.Publish("sponsor.assigned", map[string]any{"slot": 1})

	for _, sub := range []*subscriber{a, b} {
		select {
		case event := <-sub.send:
			require.Equal(t, "sponsor.assigned", event.Type)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHub_RemoveStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := hub.add(nil)
	require.Equal(t, 1, hub.SubscriberCount())

	hub.remove(sub.id)
	require.Equal(t, 0, hub.SubscriberCount())

	// Removing twice is safe.
	hub.remove(sub.id)

	hub.Publish("sponsor.expired", nil)
	select {
	case <-sub.send:
		t.Fatal("removed subscriber received an event")
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	sub := hub.add(nil)

	// Fill the buffer past capacity; Publish must drop, not block.
	for i := 0; i < cap(sub.send)+10; i++ {
		hub.Publish("metrics.refreshed", i)
	}

	require.Len(t, sub.send, cap(sub.send))
}
