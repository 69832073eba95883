package store

import "qms/walkin-service/internal/models"

// DefaultServices is the fixed service catalog. Services are not
// user-creatable; Reset restores these defaults with counters at zero.
func DefaultServices() []models.Service {
	return []models.Service{
		{ServiceID: "general", Name: "General Service", Prefix: "A", AverageWaitMinutes: 5},
		{ServiceID: "facility", Name: "Facility Service", Prefix: "D", AverageWaitMinutes: 8},
	}
}

func DefaultCounters() []models.Counter {
	return []models.Counter{
		{CounterID: 1, Name: "Counter 1", Status: models.CounterActive},
		{CounterID: 2, Name: "Counter 2", Status: models.CounterActive},
		{CounterID: 3, Name: "Counter 3", Status: models.CounterInactive},
		{CounterID: 4, Name: "Counter 4", Status: models.CounterInactive},
	}
}
