package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/relayops/relay/internal/event"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub()

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()

	// A channel cannot be marshaled to JSON. Should log, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &client{ws: nil, cancel: cancel}
	hub.remove(c)
}

func TestRelayDeliversBusEvents(t *testing.T) {
	hub := NewHub()
	bus := event.NewBus()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close(websocket.StatusNormalClosure, "") }()

	// Wait for the server side to register the connection.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Relay(ctx, bus)
	// Give the relay goroutine a moment to subscribe before publishing.
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("relay never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(event.Event{
		Type:    event.TypeAgentSpawned,
		AgentID: "a-1",
		At:      time.Now(),
	})

	_, data, err := client.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != string(event.TypeAgentSpawned) {
		t.Fatalf("unexpected message type %q", msg.Type)
	}

	var ev event.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if ev.AgentID != "a-1" {
		t.Fatalf("unexpected agent id %q", ev.AgentID)
	}
}
