package event

import (
	"testing"
	"time"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe(4)
	ch2, cancel2 := b.Subscribe(4)
	defer cancel1()
	defer cancel2()

	b.Publish(Event{Type: TypeAgentSpawned, AgentID: "a1", At: time.Now()})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeAgentSpawned || ev.AgentID != "a1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatal("expected event in subscriber queue")
		}
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: TypeAgentError})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber queue")
	}

	if b.Dropped() != 9 {
		t.Fatalf("expected 9 dropped events, got %d", b.Dropped())
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe(1)
	cancel()

	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}

	// Second cancel is a no-op.
	cancel()
}
