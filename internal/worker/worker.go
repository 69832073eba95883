package worker

import (
	"context"
	"encoding/json"
	"time"

	"qms/walkin-service/internal/hub"
	"qms/walkin-service/internal/store"
)

// Broadcaster drains the store's change-event feed and pushes each
// event to subscribed observers. The feed is the authoritative record
// of mutations; polling it from a cursor is the bounded fallback that
// keeps observers converging even when an in-process notification is
// missed.
type Broadcaster struct {
	store     store.QueueStore
	hub       *hub.Hub
	batchSize int
	cursor    time.Time
}

type envelope struct {
	Type      string          `json:"type"`
	ServiceID string          `json:"service_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Config struct {
	BatchSize int
}

func NewBroadcaster(queueStore store.QueueStore, h *hub.Hub, cfg Config) *Broadcaster {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Broadcaster{
		store:     queueStore,
		hub:       h,
		batchSize: batch,
	}
}

// Run drains all events newer than the cursor and advances it. Called
// from a ticker loop in main.
func (b *Broadcaster) Run(ctx context.Context) (int, error) {
	events, err := b.store.ListChangeEvents(ctx, b.cursor, b.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, event := range events {
		payload, err := json.Marshal(envelope{
			Type:      event.Type,
			ServiceID: event.ServiceID,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt,
		})
		if err != nil {
			continue
		}
		b.hub.Broadcast(payload, hub.Subscription{ServiceID: event.ServiceID})
		b.cursor = event.CreatedAt
		sent++
	}
	return sent, nil
}
