package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "alarm.due", Data: "a1"})

	select {
	case e := <-ch:
		if e.Type != "alarm.due" {
			t.Fatalf("Type = %q, want alarm.due", e.Type)
		}
		if e.Time.IsZero() {
			t.Fatal("Publish did not stamp Time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: "alarm.ring"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := len(ch); got != 1 {
		t.Fatalf("buffered events = %d, want 1", got)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	unsub()
	unsub() // second call must not panic

	// Publishing after unsubscribe must not panic either.
	b.Publish(Event{Type: "alarm.expired"})
}
