package store

import "qms/walkin-service/internal/models"

var transitionMap = map[string][]string{
	"call_next": {models.StatusWaiting},
	"complete":  {models.StatusServing},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
