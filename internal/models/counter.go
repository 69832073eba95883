package models

type Counter struct {
	CounterID        int     `json:"counter_id"`
	Name             string  `json:"name"`
	Status           string  `json:"status"`
	CurrentlyServing *string `json:"currently_serving"`
	ServiceID        *string `json:"service_id"`
}

const (
	CounterActive   = "active"
	CounterInactive = "inactive"
)
