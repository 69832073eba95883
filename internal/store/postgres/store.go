package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qms/walkin-service/internal/models"
	"qms/walkin-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNumberPad = 3

const defaultAverageWaitMinutes = 5

const defaultEventLimit = 100

const ticketColumns = `ticket_id, ticket_number, service_id, status, created_at, called_at, completed_at, counter_id, customer_name, purpose, priority, notes, estimated_wait_minutes`

const serviceColumns = `s.service_id, s.name, s.prefix, s.current_number, s.served,
	(SELECT COUNT(*) FROM tickets t WHERE t.service_id = s.service_id AND t.status = 'waiting'),
	s.average_wait_minutes`

// Store keeps queue state in Postgres. Ticket number issuance and
// call-next selection run inside transactions, so concurrent writers
// cannot issue duplicate numbers or call the same ticket twice.
type Store struct {
	pool                *pgxpool.Pool
	requireCustomerName bool
}

type Options struct {
	RequireCustomerName bool
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	return &Store{
		pool:                pool,
		requireCustomerName: options.RequireCustomerName,
	}
}

// Seed inserts the default service catalog and counters, skipping rows
// that already exist.
func (s *Store) Seed(ctx context.Context) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, svc := range store.DefaultServices() {
		_, err = tx.Exec(ctx, `
			INSERT INTO services (service_id, name, prefix, current_number, served, average_wait_minutes)
			VALUES ($1, $2, $3, 0, 0, $4)
			ON CONFLICT (service_id) DO NOTHING
		`, svc.ServiceID, svc.Name, svc.Prefix, svc.AverageWaitMinutes)
		if err != nil {
			return err
		}
	}
	for _, counter := range store.DefaultCounters() {
		_, err = tx.Exec(ctx, `
			INSERT INTO counters (counter_id, name, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (counter_id) DO NOTHING
		`, counter.CounterID, counter.Name, counter.Status)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var prefix string
	var number int
	var averageWait int
	row := tx.QueryRow(ctx, `
		UPDATE services
		SET current_number = current_number + 1
		WHERE service_id = $1
		RETURNING prefix, current_number, average_wait_minutes
	`, input.ServiceID)
	if err = row.Scan(&prefix, &number, &averageWait); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return models.Ticket{}, err
	}

	var waiting int
	row = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets WHERE service_id = $1 AND status = 'waiting'
	`, input.ServiceID)
	if err = row.Scan(&waiting); err != nil {
		return models.Ticket{}, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if averageWait <= 0 {
		averageWait = defaultAverageWaitMinutes
	}

	ticket := models.Ticket{
		TicketID:             uuid.NewString(),
		TicketNumber:         fmt.Sprintf("%s%0*d", prefix, ticketNumberPad, number),
		ServiceID:            input.ServiceID,
		Status:               models.StatusWaiting,
		CreatedAt:            createdAt,
		CustomerName:         input.CustomerName,
		Purpose:              input.Purpose,
		Priority:             priority,
		EstimatedWaitMinutes: waiting * averageWait,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (
			ticket_id, ticket_number, service_id, status, created_at,
			customer_name, purpose, priority, estimated_wait_minutes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, ticket.TicketID, ticket.TicketNumber, ticket.ServiceID, ticket.Status, ticket.CreatedAt,
		ticket.CustomerName, ticket.Purpose, ticket.Priority, ticket.EstimatedWaitMinutes)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = insertChangeEvent(ctx, tx, store.EventTicketCreated, ticket.ServiceID, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var counterStatus string
	row := tx.QueryRow(ctx, `
		SELECT status FROM counters WHERE counter_id = $1 FOR UPDATE
	`, input.CounterID)
	if err = row.Scan(&counterStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCounterNotFound
		}
		return models.Ticket{}, err
	}
	if counterStatus != models.CounterActive {
		err = store.ErrCounterUnavailable
		return models.Ticket{}, err
	}

	var serviceID string
	row = tx.QueryRow(ctx, `
		SELECT service_id FROM services WHERE service_id = $1
	`, input.ServiceID)
	if err = row.Scan(&serviceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return models.Ticket{}, err
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	// Strict arrival order per service, ties broken by insertion order
	// so selection agrees with the waiting-list and position queries.
	// Priority is recorded but never reorders selection.
	row = tx.QueryRow(ctx, `
		WITH next_ticket AS (
			SELECT ticket_id
			FROM tickets
			WHERE service_id = $1 AND status = 'waiting'
			ORDER BY created_at ASC, seq ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tickets
		SET status = 'serving',
			called_at = $2,
			counter_id = $3
		FROM next_ticket
		WHERE tickets.ticket_id = next_ticket.ticket_id
		RETURNING `+ticketColumns+`
	`, input.ServiceID, calledAt, input.CounterID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNoTicket
		}
		return models.Ticket{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE counters
		SET currently_serving = $1, service_id = $2
		WHERE counter_id = $3
	`, ticket.TicketNumber, ticket.ServiceID, input.CounterID)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = insertChangeEvent(ctx, tx, store.EventTicketCalled, ticket.ServiceID, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CompleteTicket(ctx context.Context, input store.CompleteTicketInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	completedAt := input.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'completed',
			completed_at = $2,
			notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
		WHERE ticket_id = $1 AND status = 'serving'
		RETURNING `+ticketColumns+`
	`, input.TicketID, completedAt, input.Notes)
	ticket, err := scanTicket(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, err
		}
		// Not serving: either unknown or a no-op that leaves the queue
		// untouched.
		row = tx.QueryRow(ctx, `
			SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1
		`, input.TicketID)
		ticket, err = scanTicket(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = store.ErrTicketNotFound
			}
			return models.Ticket{}, false, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		return ticket, false, nil
	}

	if ticket.CounterID != nil {
		// The counter keeps its service assignment so it can call the
		// next ticket of the same type.
		_, err = tx.Exec(ctx, `
			UPDATE counters SET currently_serving = NULL WHERE counter_id = $1
		`, *ticket.CounterID)
		if err != nil {
			return models.Ticket{}, false, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE services SET served = served + 1 WHERE service_id = $1
	`, ticket.ServiceID)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = insertChangeEvent(ctx, tx, store.EventTicketCompleted, ticket.ServiceID, ticket); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1
	`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) GetLastTicket(ctx context.Context) (models.Ticket, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ` + ticketColumns + ` FROM tickets ORDER BY seq DESC LIMIT 1
	`)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) ListWaitingTickets(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	if serviceID != "" {
		if _, found, err := s.GetService(ctx, serviceID); err != nil {
			return nil, err
		} else if !found {
			return nil, store.ErrServiceNotFound
		}
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status = 'waiting'`
	args := []interface{}{}
	if serviceID != "" {
		query += ` AND service_id = $1`
		args = append(args, serviceID)
	}
	query += ` ORDER BY created_at ASC, seq ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) TicketPosition(ctx context.Context, ticketID string) (int, bool, error) {
	var position int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tickets t
		JOIN tickets target ON target.ticket_id = $1 AND target.status = 'waiting'
		WHERE t.service_id = target.service_id AND t.status = 'waiting'
			AND (t.created_at, t.seq) <= (target.created_at, target.seq)
	`, ticketID)
	if err := row.Scan(&position); err != nil {
		return 0, false, err
	}
	if position == 0 {
		return 0, false, nil
	}
	return position, true, nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ` + serviceColumns + ` FROM services s ORDER BY s.service_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) GetService(ctx context.Context, serviceID string) (models.Service, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services s WHERE s.service_id = $1
	`, serviceID)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, false, nil
		}
		return models.Service{}, false, err
	}
	return svc, true, nil
}

func (s *Store) GetServiceByPrefix(ctx context.Context, prefix string) (models.Service, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services s WHERE s.prefix = $1
	`, prefix)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, false, nil
		}
		return models.Service{}, false, err
	}
	return svc, true, nil
}

func (s *Store) WaitingCount(ctx context.Context, serviceID string) (int, error) {
	svc, found, err := s.GetService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, store.ErrServiceNotFound
	}
	return svc.Waiting, nil
}

func (s *Store) EstimatedWaitMinutes(ctx context.Context, serviceID string) (int, error) {
	svc, found, err := s.GetService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, store.ErrServiceNotFound
	}
	average := svc.AverageWaitMinutes
	if average <= 0 {
		average = defaultAverageWaitMinutes
	}
	return svc.Waiting * average, nil
}

func (s *Store) ListCounters(ctx context.Context) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, name, status, currently_serving, service_id
		FROM counters
		ORDER BY counter_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []models.Counter
	for rows.Next() {
		counter, err := scanCounter(rows)
		if err != nil {
			return nil, err
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *Store) UpdateCounterStatus(ctx context.Context, counterID int, status string) (models.Counter, error) {
	if status != models.CounterActive && status != models.CounterInactive {
		return models.Counter{}, store.ErrValidation
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		UPDATE counters
		SET status = $1
		WHERE counter_id = $2
		RETURNING counter_id, name, status, currently_serving, service_id
	`, status, counterID)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}

	if err = insertChangeEvent(ctx, tx, store.EventCounterUpdated, "", counter); err != nil {
		return models.Counter{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) UpdateCounterService(ctx context.Context, counterID int, serviceID *string) (models.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if serviceID != nil {
		var exists string
		row := tx.QueryRow(ctx, `SELECT service_id FROM services WHERE service_id = $1`, *serviceID)
		if err = row.Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = store.ErrServiceNotFound
			}
			return models.Counter{}, err
		}
	}

	row := tx.QueryRow(ctx, `
		UPDATE counters
		SET service_id = $1
		WHERE counter_id = $2
		RETURNING counter_id, name, status, currently_serving, service_id
	`, serviceID, counterID)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}

	if err = insertChangeEvent(ctx, tx, store.EventCounterUpdated, "", counter); err != nil {
		return models.Counter{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	counters, err := s.ListCounters(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ` + ticketColumns + ` FROM tickets ORDER BY seq ASC
	`)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return store.Snapshot{}, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, err
	}

	return store.Snapshot{Services: services, Counters: counters, Tickets: tickets}, nil
}

func (s *Store) ServiceStats(ctx context.Context) ([]store.ServiceStats, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]store.ServiceStats, len(services))
	for i, svc := range services {
		average := svc.AverageWaitMinutes
		if average <= 0 {
			average = defaultAverageWaitMinutes
		}
		stats[i] = store.ServiceStats{
			ServiceID:            svc.ServiceID,
			Name:                 svc.Name,
			Prefix:               svc.Prefix,
			CurrentNumber:        svc.CurrentNumber,
			Waiting:              svc.Waiting,
			Served:               svc.Served,
			AverageWaitMinutes:   average,
			EstimatedWaitMinutes: svc.Waiting * average,
		}
	}
	return stats, nil
}

func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM tickets`); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE services SET current_number = 0, served = 0`); err != nil {
		return err
	}
	for _, counter := range store.DefaultCounters() {
		_, err = tx.Exec(ctx, `
			UPDATE counters
			SET status = $1, currently_serving = NULL, service_id = NULL
			WHERE counter_id = $2
		`, counter.Status, counter.CounterID)
		if err != nil {
			return err
		}
	}

	if err = insertChangeEvent(ctx, tx, store.EventQueueReset, "", struct{}{}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListChangeEvents(ctx context.Context, after time.Time, limit int) ([]store.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	query := `
		SELECT event_id, type, service_id, payload, created_at
		FROM change_events
	`
	args := []interface{}{}
	if !after.IsZero() {
		query += ` WHERE created_at > $1 ORDER BY created_at ASC LIMIT $2`
		args = append(args, after, limit)
	} else {
		query += ` ORDER BY created_at ASC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.ChangeEvent
	for rows.Next() {
		var event store.ChangeEvent
		if err := rows.Scan(&event.EventID, &event.Type, &event.ServiceID, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) CreateSession(ctx context.Context, session store.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, operator, role, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET operator = $2, role = $3, expires_at = $4
	`, session.SessionID, session.Operator, session.Role, session.ExpiresAt)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, operator, role, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > NOW()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.Operator, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	return err
}

func insertChangeEvent(ctx context.Context, tx pgx.Tx, eventType, serviceID string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO change_events (event_id, type, service_id, payload, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
	`, uuid.NewString(), eventType, serviceID, raw)
	return err
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var calledAtNull sql.NullTime
	var completedAtNull sql.NullTime
	var counterIDNull sql.NullInt64
	if err := row.Scan(&ticket.TicketID, &ticket.TicketNumber, &ticket.ServiceID, &ticket.Status, &ticket.CreatedAt,
		&calledAtNull, &completedAtNull, &counterIDNull, &ticket.CustomerName, &ticket.Purpose,
		&ticket.Priority, &ticket.Notes, &ticket.EstimatedWaitMinutes); err != nil {
		return models.Ticket{}, err
	}
	ticket.CalledAt = nullTimePtr(calledAtNull)
	ticket.CompletedAt = nullTimePtr(completedAtNull)
	if counterIDNull.Valid {
		counterID := int(counterIDNull.Int64)
		ticket.CounterID = &counterID
	}
	return ticket, nil
}

func scanService(row pgx.Row) (models.Service, error) {
	var svc models.Service
	if err := row.Scan(&svc.ServiceID, &svc.Name, &svc.Prefix, &svc.CurrentNumber, &svc.Served, &svc.Waiting, &svc.AverageWaitMinutes); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

func scanCounter(row pgx.Row) (models.Counter, error) {
	var counter models.Counter
	var servingNull sql.NullString
	var serviceIDNull sql.NullString
	if err := row.Scan(&counter.CounterID, &counter.Name, &counter.Status, &servingNull, &serviceIDNull); err != nil {
		return models.Counter{}, err
	}
	counter.CurrentlyServing = nullStringPtr(servingNull)
	counter.ServiceID = nullStringPtr(serviceIDNull)
	return counter, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
