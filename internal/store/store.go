package store

import (
	"context"
	"encoding/json"
	"time"

	"qms/walkin-service/internal/models"
)

type CreateTicketInput struct {
	ServiceID    string
	CustomerName string
	Purpose      string
	Priority     string
	CreatedAt    time.Time
}

type CallNextInput struct {
	CounterID int
	ServiceID string
	CalledAt  time.Time
}

type CompleteTicketInput struct {
	TicketID    string
	Notes       string
	CompletedAt time.Time
}

// QueueStore is the authoritative queue state. All mutations go through
// named operations so derived fields (per-service waiting counts) stay
// consistent, and every mutation appends a change event for observers.
type QueueStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, bool, error)
	GetLastTicket(ctx context.Context) (models.Ticket, bool, error)
	ListWaitingTickets(ctx context.Context, serviceID string) ([]models.Ticket, error)
	TicketPosition(ctx context.Context, ticketID string) (int, bool, error)

	CallNext(ctx context.Context, input CallNextInput) (models.Ticket, error)
	CompleteTicket(ctx context.Context, input CompleteTicketInput) (models.Ticket, bool, error)

	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, serviceID string) (models.Service, bool, error)
	GetServiceByPrefix(ctx context.Context, prefix string) (models.Service, bool, error)
	WaitingCount(ctx context.Context, serviceID string) (int, error)
	EstimatedWaitMinutes(ctx context.Context, serviceID string) (int, error)

	ListCounters(ctx context.Context) ([]models.Counter, error)
	UpdateCounterStatus(ctx context.Context, counterID int, status string) (models.Counter, error)
	UpdateCounterService(ctx context.Context, counterID int, serviceID *string) (models.Counter, error)

	Snapshot(ctx context.Context) (Snapshot, error)
	ServiceStats(ctx context.Context) ([]ServiceStats, error)
	Reset(ctx context.Context) error

	ListChangeEvents(ctx context.Context, after time.Time, limit int) ([]ChangeEvent, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Snapshot is the full queue state as one document, used by observers
// to rebuild their local view after reconnect or focus regain.
type Snapshot struct {
	Services []models.Service `json:"services"`
	Counters []models.Counter `json:"counters"`
	Tickets  []models.Ticket  `json:"tickets"`
}

type ServiceStats struct {
	ServiceID            string `json:"service_id"`
	Name                 string `json:"name"`
	Prefix               string `json:"prefix"`
	CurrentNumber        int    `json:"current_number"`
	Waiting              int    `json:"waiting"`
	Served               int    `json:"served"`
	AverageWaitMinutes   int    `json:"average_wait_minutes"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

type ChangeEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	ServiceID string          `json:"service_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	EventTicketCreated   = "ticket_created"
	EventTicketCalled    = "ticket_called"
	EventTicketCompleted = "ticket_completed"
	EventCounterUpdated  = "counter_updated"
	EventQueueReset      = "queue_reset"
)

type Session struct {
	SessionID string    `json:"session_id"`
	Operator  string    `json:"operator"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

const RoleAdmin = "admin"
