package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventAuthChanged)

	bus.Publish(NewTypedEvent(SourceAuth, AuthChangedPayload{Token: "t1", UserID: "u1"}))
	bus.Publish(NewTypedEvent(SourceDialogue, ConversationUpdatedPayload{Messages: 2}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventAuthChanged {
		t.Errorf("expected auth.changed, got %s", received[0].Type)
	}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(16, EventConversationUpdated)
	defer unsub()

	for i := 1; i <= 5; i++ {
		bus.Publish(NewTypedEvent(SourceDialogue, ConversationUpdatedPayload{Messages: i}))
	}

	for i := 1; i <= 5; i++ {
		select {
		case e := <-ch:
			p, ok := ExtractPayload[ConversationUpdatedPayload](e)
			if !ok {
				t.Fatal("extract payload failed")
			}
			if p.Messages != i {
				t.Fatalf("event %d carried messages=%d", i, p.Messages)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestSubscribeChanUnsubscribeCloses(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(1)
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	// Publishing after unsubscribe must not panic.
	bus.Publish(NewTypedEvent(SourceGateway, HistorySavedPayload{Messages: 1}))
	time.Sleep(10 * time.Millisecond)
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventModelCall, SourceDialogue, map[string]any{"i": i}))
	}

	got := rb.Get(10)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Payload["i"] != 2 {
		t.Errorf("oldest retained = %v, want 2", got[0].Payload["i"])
	}
}

func TestNewTypedEventForUser(t *testing.T) {
	e := NewTypedEventForUser(SourceDialogue, ConversationUpdatedPayload{Messages: 1, Error: "boom"}, "u1")
	if e.UserID != "u1" || e.Type != EventConversationUpdated {
		t.Fatalf("unexpected event %+v", e)
	}
	p, ok := ExtractPayload[ConversationUpdatedPayload](e)
	if !ok || p.Error != "boom" {
		t.Fatalf("payload = %+v, ok=%v", p, ok)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Close()
	bus.Publish(NewTypedEvent(SourceAuth, AuthChangedPayload{Token: "t"}))
}
