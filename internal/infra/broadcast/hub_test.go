package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func TestHub_PublishToRoom(t *testing.T) {
	hub := NewHub(4, nil)
	sprintSub := hub.Subscribe(domain.SprintRoom("s1"))
	otherSub := hub.Subscribe(domain.SprintRoom("s2"))

	hub.Publish(domain.SprintRoom("s1"), domain.EventSprintProgressUpdated, domain.ProgressPayload{SprintID: "s1", Progress: 50})

	select {
	case ev := <-sprintSub.Events():
		assert.Equal(t, domain.EventSprintProgressUpdated, ev.Name)
		assert.Equal(t, "sprint:s1", ev.Room)
		payload, ok := ev.Payload.(domain.ProgressPayload)
		require.True(t, ok)
		assert.Equal(t, 50, payload.Progress)
	default:
		t.Fatal("expected an event in sprint room")
	}

	select {
	case ev := <-otherSub.Events():
		t.Fatalf("unexpected event in other room: %+v", ev)
	default:
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(1, nil)
	assert.NotPanics(t, func() {
		hub.Publish(domain.ProjectRoom("p1"), domain.EventSprintCreated, nil)
	})
}

func TestHub_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("project:p1")

	hub.Publish("project:p1", "first", nil)
	hub.Publish("project:p1", "second", nil) // buffer full, dropped

	ev := <-sub.Events()
	assert.Equal(t, "first", ev.Name)
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected drop, got %+v", ev)
	default:
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("sprint:s1")
	require.Equal(t, 1, hub.Subscribers("sprint:s1"))

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub) // idempotent

	assert.Equal(t, 0, hub.Subscribers("sprint:s1"))
	_, ok := <-sub.Events()
	assert.False(t, ok, "channel should be closed")

	assert.NotPanics(t, func() { hub.Publish("sprint:s1", "x", nil) })
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1, nil)
	a := hub.Subscribe("a")
	b := hub.Subscribe("b")

	hub.Close()

	_, okA := <-a.Events()
	_, okB := <-b.Events()
	assert.False(t, okA)
	assert.False(t, okB)
	assert.NotPanics(t, func() { hub.Unsubscribe(a) })
}
