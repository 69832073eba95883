package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"qms/walkin-service/internal/models"
	"qms/walkin-service/internal/store"

	"github.com/google/uuid"
)

const (
	ticketNumberPad           = 3
	defaultAverageWaitMinutes = 5
	defaultEventLimit         = 100
)

// Store holds the whole queue state behind one mutex. The per-service
// sequence counter and the ticket list are owned by the same lock, so
// number issuance is atomic with ticket creation and duplicate numbers
// cannot be issued under concurrent requests.
type Store struct {
	mu        sync.RWMutex
	services  []models.Service
	counters  []models.Counter
	tickets   []models.Ticket
	events    []store.ChangeEvent
	lastEvent time.Time
	sessions  map[string]store.Session

	requireCustomerName bool
}

type Options struct {
	RequireCustomerName bool
}

func NewStore(options Options) *Store {
	s := &Store{
		services:            store.DefaultServices(),
		counters:            store.DefaultCounters(),
		sessions:            make(map[string]store.Session),
		requireCustomerName: options.RequireCustomerName,
	}
	return s
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc := s.findService(input.ServiceID)
	if svc == nil {
		return models.Ticket{}, store.ErrServiceNotFound
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.ValidPriority(priority) {
		return models.Ticket{}, store.ErrValidation
	}
	if s.requireCustomerName && input.CustomerName == "" {
		return models.Ticket{}, store.ErrValidation
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	svc.CurrentNumber++
	ticket := models.Ticket{
		TicketID:             uuid.NewString(),
		TicketNumber:         formatTicketNumber(svc.Prefix, svc.CurrentNumber),
		ServiceID:            svc.ServiceID,
		Status:               models.StatusWaiting,
		CreatedAt:            createdAt,
		CustomerName:         input.CustomerName,
		Purpose:              input.Purpose,
		Priority:             priority,
		EstimatedWaitMinutes: s.waitingCountLocked(svc.ServiceID) * averageMinutes(*svc),
	}
	s.tickets = append(s.tickets, ticket)
	s.recomputeWaitingLocked()
	s.appendEventLocked(store.EventTicketCreated, svc.ServiceID, ticket)

	return ticket, nil
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.findCounter(input.CounterID)
	if counter == nil {
		return models.Ticket{}, store.ErrCounterNotFound
	}
	if counter.Status != models.CounterActive {
		return models.Ticket{}, store.ErrCounterUnavailable
	}
	svc := s.findService(input.ServiceID)
	if svc == nil {
		return models.Ticket{}, store.ErrServiceNotFound
	}

	// FIFO head is the earliest created_at; equal timestamps keep
	// insertion order, matching the waiting-list and position
	// orderings. Priority is recorded but never reorders selection.
	var next *models.Ticket
	for i := range s.tickets {
		t := &s.tickets[i]
		if t.ServiceID != svc.ServiceID {
			continue
		}
		if !store.ValidTransition("call_next", t.Status) {
			continue
		}
		if next == nil || t.CreatedAt.Before(next.CreatedAt) {
			next = t
		}
	}
	if next == nil {
		return models.Ticket{}, store.ErrNoTicket
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	next.Status = models.StatusServing
	next.CalledAt = &calledAt
	counterID := input.CounterID
	next.CounterID = &counterID

	number := next.TicketNumber
	serviceID := svc.ServiceID
	counter.CurrentlyServing = &number
	counter.ServiceID = &serviceID

	s.recomputeWaitingLocked()
	s.appendEventLocked(store.EventTicketCalled, svc.ServiceID, *next)

	return *next, nil
}

func (s *Store) CompleteTicket(ctx context.Context, input store.CompleteTicketInput) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findTicket(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, false, store.ErrTicketNotFound
	}
	if !store.ValidTransition("complete", ticket.Status) {
		// Deliberate no-op: completing a ticket that is not being served
		// leaves the queue untouched.
		return *ticket, false, nil
	}

	completedAt := input.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	ticket.Status = models.StatusCompleted
	ticket.CompletedAt = &completedAt
	if input.Notes != "" {
		ticket.Notes = input.Notes
	}

	if ticket.CounterID != nil {
		if counter := s.findCounter(*ticket.CounterID); counter != nil {
			// The counter keeps its service assignment so it can call the
			// next ticket of the same type.
			counter.CurrentlyServing = nil
		}
	}
	if svc := s.findService(ticket.ServiceID); svc != nil {
		svc.Served++
	}

	s.recomputeWaitingLocked()
	s.appendEventLocked(store.EventTicketCompleted, ticket.ServiceID, *ticket)

	return *ticket, true, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket := s.findTicket(ticketID)
	if ticket == nil {
		return models.Ticket{}, false, nil
	}
	return *ticket, true, nil
}

func (s *Store) GetLastTicket(ctx context.Context) (models.Ticket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.tickets) == 0 {
		return models.Ticket{}, false, nil
	}
	return s.tickets[len(s.tickets)-1], true, nil
}

func (s *Store) ListWaitingTickets(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if serviceID != "" && s.findService(serviceID) == nil {
		return nil, store.ErrServiceNotFound
	}
	return s.waitingTicketsLocked(serviceID), nil
}

func (s *Store) TicketPosition(ctx context.Context, ticketID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket := s.findTicket(ticketID)
	if ticket == nil || ticket.Status != models.StatusWaiting {
		return 0, false, nil
	}
	waiting := s.waitingTicketsLocked(ticket.ServiceID)
	for i, t := range waiting {
		if t.TicketID == ticketID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]models.Service, len(s.services))
	copy(services, s.services)
	return services, nil
}

func (s *Store) GetService(ctx context.Context, serviceID string) (models.Service, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc := s.findService(serviceID)
	if svc == nil {
		return models.Service{}, false, nil
	}
	return *svc, true, nil
}

func (s *Store) GetServiceByPrefix(ctx context.Context, prefix string) (models.Service, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, svc := range s.services {
		if svc.Prefix == prefix {
			return svc, true, nil
		}
	}
	return models.Service{}, false, nil
}

func (s *Store) WaitingCount(ctx context.Context, serviceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.findService(serviceID) == nil {
		return 0, store.ErrServiceNotFound
	}
	return s.waitingCountLocked(serviceID), nil
}

// EstimatedWaitMinutes is waiting count times the service's configured
// average wait, defaulting to 5 minutes when the catalog leaves it
// unset. Recomputed on every call.
func (s *Store) EstimatedWaitMinutes(ctx context.Context, serviceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc := s.findService(serviceID)
	if svc == nil {
		return 0, store.ErrServiceNotFound
	}
	return s.waitingCountLocked(serviceID) * averageMinutes(*svc), nil
}

func (s *Store) ListCounters(ctx context.Context) ([]models.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counters := make([]models.Counter, len(s.counters))
	for i, counter := range s.counters {
		counters[i] = cloneCounter(counter)
	}
	return counters, nil
}

func (s *Store) UpdateCounterStatus(ctx context.Context, counterID int, status string) (models.Counter, error) {
	if status != models.CounterActive && status != models.CounterInactive {
		return models.Counter{}, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.findCounter(counterID)
	if counter == nil {
		return models.Counter{}, store.ErrCounterNotFound
	}
	// Deactivating a counter does not touch an in-flight ticket.
	counter.Status = status
	s.appendEventLocked(store.EventCounterUpdated, "", cloneCounter(*counter))
	return cloneCounter(*counter), nil
}

func (s *Store) UpdateCounterService(ctx context.Context, counterID int, serviceID *string) (models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.findCounter(counterID)
	if counter == nil {
		return models.Counter{}, store.ErrCounterNotFound
	}
	if serviceID != nil && s.findService(*serviceID) == nil {
		return models.Counter{}, store.ErrServiceNotFound
	}
	if serviceID == nil {
		counter.ServiceID = nil
	} else {
		id := *serviceID
		counter.ServiceID = &id
	}
	s.appendEventLocked(store.EventCounterUpdated, "", cloneCounter(*counter))
	return cloneCounter(*counter), nil
}

func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := store.Snapshot{
		Services: make([]models.Service, len(s.services)),
		Counters: make([]models.Counter, len(s.counters)),
		Tickets:  make([]models.Ticket, len(s.tickets)),
	}
	copy(snapshot.Services, s.services)
	for i, counter := range s.counters {
		snapshot.Counters[i] = cloneCounter(counter)
	}
	for i, ticket := range s.tickets {
		snapshot.Tickets[i] = cloneTicket(ticket)
	}
	return snapshot, nil
}

// LoadSnapshot replaces the whole state with a previously captured
// snapshot. Waiting counts are derived, so they are recomputed rather
// than trusted from the payload.
func (s *Store) LoadSnapshot(snapshot store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services = make([]models.Service, len(snapshot.Services))
	copy(s.services, snapshot.Services)
	s.counters = make([]models.Counter, len(snapshot.Counters))
	for i, counter := range snapshot.Counters {
		s.counters[i] = cloneCounter(counter)
	}
	s.tickets = make([]models.Ticket, len(snapshot.Tickets))
	for i, ticket := range snapshot.Tickets {
		s.tickets[i] = cloneTicket(ticket)
	}
	s.recomputeWaitingLocked()
}

func (s *Store) ServiceStats(ctx context.Context) ([]store.ServiceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]store.ServiceStats, len(s.services))
	for i, svc := range s.services {
		waiting := s.waitingCountLocked(svc.ServiceID)
		stats[i] = store.ServiceStats{
			ServiceID:            svc.ServiceID,
			Name:                 svc.Name,
			Prefix:               svc.Prefix,
			CurrentNumber:        svc.CurrentNumber,
			Waiting:              waiting,
			Served:               svc.Served,
			AverageWaitMinutes:   averageMinutes(svc),
			EstimatedWaitMinutes: waiting * averageMinutes(svc),
		}
	}
	return stats, nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services = store.DefaultServices()
	s.counters = store.DefaultCounters()
	s.tickets = nil
	s.appendEventLocked(store.EventQueueReset, "", struct{}{})
	return nil
}

func (s *Store) ListChangeEvents(ctx context.Context, after time.Time, limit int) ([]store.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultEventLimit
	}
	var events []store.ChangeEvent
	for _, event := range s.events {
		if !event.CreatedAt.After(after) {
			continue
		}
		events = append(events, event)
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (s *Store) CreateSession(ctx context.Context, session store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return store.Session{}, store.ErrSessionNotFound
	}
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(time.Now().UTC()) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) findService(serviceID string) *models.Service {
	for i := range s.services {
		if s.services[i].ServiceID == serviceID {
			return &s.services[i]
		}
	}
	return nil
}

func (s *Store) findCounter(counterID int) *models.Counter {
	for i := range s.counters {
		if s.counters[i].CounterID == counterID {
			return &s.counters[i]
		}
	}
	return nil
}

func (s *Store) findTicket(ticketID string) *models.Ticket {
	for i := range s.tickets {
		if s.tickets[i].TicketID == ticketID {
			return &s.tickets[i]
		}
	}
	return nil
}

func (s *Store) waitingTicketsLocked(serviceID string) []models.Ticket {
	var waiting []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.Status != models.StatusWaiting {
			continue
		}
		if serviceID != "" && ticket.ServiceID != serviceID {
			continue
		}
		waiting = append(waiting, cloneTicket(ticket))
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	return waiting
}

func (s *Store) waitingCountLocked(serviceID string) int {
	count := 0
	for _, ticket := range s.tickets {
		if ticket.ServiceID == serviceID && ticket.Status == models.StatusWaiting {
			count++
		}
	}
	return count
}

// recomputeWaitingLocked keeps Service.Waiting equal to the count of
// waiting tickets for that service after every ticket-list change.
func (s *Store) recomputeWaitingLocked() {
	for i := range s.services {
		s.services[i].Waiting = s.waitingCountLocked(s.services[i].ServiceID)
	}
}

func (s *Store) appendEventLocked(eventType, serviceID string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	// Event times are strictly increasing so an after-cursor never skips
	// or re-reads an event.
	now := time.Now().UTC()
	if !now.After(s.lastEvent) {
		now = s.lastEvent.Add(time.Nanosecond)
	}
	s.lastEvent = now
	s.events = append(s.events, store.ChangeEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		ServiceID: serviceID,
		Payload:   raw,
		CreatedAt: now,
	})
}

func formatTicketNumber(prefix string, number int) string {
	return fmt.Sprintf("%s%0*d", prefix, ticketNumberPad, number)
}

func averageMinutes(svc models.Service) int {
	if svc.AverageWaitMinutes > 0 {
		return svc.AverageWaitMinutes
	}
	return defaultAverageWaitMinutes
}

func cloneTicket(ticket models.Ticket) models.Ticket {
	clone := ticket
	if ticket.CalledAt != nil {
		calledAt := *ticket.CalledAt
		clone.CalledAt = &calledAt
	}
	if ticket.CompletedAt != nil {
		completedAt := *ticket.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if ticket.CounterID != nil {
		counterID := *ticket.CounterID
		clone.CounterID = &counterID
	}
	return clone
}

func cloneCounter(counter models.Counter) models.Counter {
	clone := counter
	if counter.CurrentlyServing != nil {
		serving := *counter.CurrentlyServing
		clone.CurrentlyServing = &serving
	}
	if counter.ServiceID != nil {
		serviceID := *counter.ServiceID
		clone.ServiceID = &serviceID
	}
	return clone
}
