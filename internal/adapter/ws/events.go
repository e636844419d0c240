package ws

import (
	"context"
	"encoding/json"

	"github.com/relayops/relay/internal/event"
	"github.com/relayops/relay/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// BroadcastEvent marshals a typed payload and broadcasts it to all clients.
// Implements the broadcast port.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// Relay subscribes to the bus and pushes every orchestrator event to the
// connected clients until ctx is cancelled.
func (h *Hub) Relay(ctx context.Context, bus *event.Bus) {
	events, cancel := bus.Subscribe(256)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.BroadcastEvent(ctx, string(ev.Type), ev)
			}
		}
	}()
}
