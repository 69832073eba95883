package worker

import (
	"context"
	"encoding/json"
	"testing"

	"qms/walkin-service/internal/hub"
	"qms/walkin-service/internal/store"
	"qms/walkin-service/internal/store/memory"
)

func TestBroadcasterDeliversAndAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	queueStore := memory.NewStore(memory.Options{})
	h := hub.New()
	client := &hub.Client{ID: "display", Send: make(chan []byte, 16)}
	h.Register(client)

	b := NewBroadcaster(queueStore, h, Config{})

	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	sent, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}

	var got envelope
	select {
	case msg := <-client.Send:
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	default:
		t.Fatal("client received no event")
	}
	if got.Type != store.EventTicketCreated || got.ServiceID != "general" {
		t.Fatalf("envelope = %+v", got)
	}

	// Second run starts from the cursor and finds nothing new.
	sent, err = b.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second run sent = %d, want 0", sent)
	}
}

func TestBroadcasterFiltersByServiceSubscription(t *testing.T) {
	ctx := context.Background()
	queueStore := memory.NewStore(memory.Options{})
	h := hub.New()
	facilityOnly := &hub.Client{ID: "facility", Send: make(chan []byte, 16), Subscription: hub.Subscription{ServiceID: "facility"}}
	h.Register(facilityOnly)

	b := NewBroadcaster(queueStore, h, Config{})

	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create general ticket: %v", err)
	}
	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "facility"}); err != nil {
		t.Fatalf("create facility ticket: %v", err)
	}
	if _, err := b.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	var delivered []envelope
	for {
		select {
		case msg := <-facilityOnly.Send:
			var e envelope
			if err := json.Unmarshal(msg, &e); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			delivered = append(delivered, e)
			continue
		default:
		}
		break
	}
	if len(delivered) != 1 || delivered[0].ServiceID != "facility" {
		t.Fatalf("delivered = %+v, want only the facility event", delivered)
	}
}
