package store

import "errors"

var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrCounterNotFound    = errors.New("counter not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrNoTicket           = errors.New("no ticket available")
	ErrInvalidState       = errors.New("invalid ticket state")
	ErrValidation         = errors.New("invalid input")
	ErrCounterUnavailable = errors.New("counter unavailable")
	ErrSessionNotFound    = errors.New("session not found")
	ErrAccessDenied       = errors.New("access denied")
)
