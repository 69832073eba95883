package models

import "time"

type Ticket struct {
	TicketID             string     `json:"ticket_id"`
	TicketNumber         string     `json:"ticket_number"`
	ServiceID            string     `json:"service_id"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	CalledAt             *time.Time `json:"called_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CounterID            *int       `json:"counter_id,omitempty"`
	CustomerName         string     `json:"customer_name,omitempty"`
	Purpose              string     `json:"purpose,omitempty"`
	Priority             string     `json:"priority,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusCompleted = "completed"
)

const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
	PriorityVIP    = "vip"
)

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityNormal, PriorityUrgent, PriorityVIP:
		return true
	}
	return false
}
