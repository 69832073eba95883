package models

type Service struct {
	ServiceID          string `json:"service_id"`
	Name               string `json:"name"`
	Prefix             string `json:"prefix"`
	CurrentNumber      int    `json:"current_number"`
	Served             int    `json:"served"`
	Waiting            int    `json:"waiting"`
	AverageWaitMinutes int    `json:"average_wait_minutes,omitempty"`
}
