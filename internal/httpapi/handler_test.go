package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qms/walkin-service/internal/models"
	"qms/walkin-service/internal/store"
	"qms/walkin-service/internal/store/memory"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "counter-staff-123"

func newTestServer(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	queueStore := memory.NewStore(memory.Options{})
	handler := NewHandler(queueStore, Options{AdminPasswordHash: string(hash), SessionTTL: time.Hour})
	return queueStore, AuthMiddleware(queueStore, handler.Routes())
}

func adminSession(t *testing.T, queueStore *memory.Store) string {
	t.Helper()
	session := store.Session{
		SessionID: "admin-session",
		Operator:  "supervisor",
		Role:      store.RoleAdmin,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if err := queueStore.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session.SessionID
}

func postJSON(t *testing.T, routes http.Handler, path string, payload interface{}, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	resp := httptest.NewRecorder()
	routes.ServeHTTP(resp, req)
	return resp
}

func getPath(t *testing.T, routes http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	routes.ServeHTTP(resp, req)
	return resp
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	queueStore, routes := newTestServer(t)
	sessionID := adminSession(t, queueStore)

	resp := postJSON(t, routes, "/api/tickets", map[string]string{"service_id": "general", "customer_name": "Budi"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("create ticket status = %d: %s", resp.Code, resp.Body.String())
	}
	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket.TicketNumber != "A001" || ticket.Status != models.StatusWaiting {
		t.Fatalf("ticket = %+v", ticket)
	}

	resp = postJSON(t, routes, "/api/tickets/actions/call-next", map[string]interface{}{"counter_id": 1, "service_id": "general"}, sessionID)
	if resp.Code != http.StatusOK {
		t.Fatalf("call next status = %d: %s", resp.Code, resp.Body.String())
	}
	var called models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&called); err != nil {
		t.Fatalf("decode called ticket: %v", err)
	}
	if called.Status != models.StatusServing || called.TicketNumber != "A001" {
		t.Fatalf("called = %+v", called)
	}

	resp = getPath(t, routes, "/api/counters")
	if resp.Code != http.StatusOK {
		t.Fatalf("list counters status = %d", resp.Code)
	}
	var counters []models.Counter
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		t.Fatalf("decode counters: %v", err)
	}
	if counters[0].CurrentlyServing == nil || *counters[0].CurrentlyServing != "A001" {
		t.Fatalf("counter 1 = %+v", counters[0])
	}

	resp = postJSON(t, routes, "/api/tickets/"+called.TicketID+"/actions/complete", map[string]string{"notes": "all good"}, sessionID)
	if resp.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", resp.Code, resp.Body.String())
	}
	var completed models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&completed); err != nil {
		t.Fatalf("decode completed ticket: %v", err)
	}
	if completed.Status != models.StatusCompleted || completed.Notes != "all good" {
		t.Fatalf("completed = %+v", completed)
	}
}

func TestCreateTicketValidationOverHTTP(t *testing.T) {
	_, routes := newTestServer(t)

	resp := postJSON(t, routes, "/api/tickets", map[string]string{}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing service_id status = %d", resp.Code)
	}

	resp = postJSON(t, routes, "/api/tickets", map[string]string{"service_id": "missing"}, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown service status = %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error.Code != "service_not_found" {
		t.Fatalf("error code = %s", errResp.Error.Code)
	}
}

func TestCallNextEmptyQueueReturnsNoContent(t *testing.T) {
	queueStore, routes := newTestServer(t)
	sessionID := adminSession(t, queueStore)

	resp := postJSON(t, routes, "/api/tickets/actions/call-next", map[string]interface{}{"counter_id": 1, "service_id": "general"}, sessionID)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("empty queue status = %d, want 204", resp.Code)
	}
}

func TestCallNextValidation(t *testing.T) {
	queueStore, routes := newTestServer(t)
	sessionID := adminSession(t, queueStore)

	resp := postJSON(t, routes, "/api/tickets/actions/call-next", map[string]interface{}{"service_id": "general"}, sessionID)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing counter status = %d", resp.Code)
	}

	resp = postJSON(t, routes, "/api/tickets/actions/call-next", map[string]interface{}{"counter_id": 3, "service_id": "general"}, sessionID)
	if resp.Code != http.StatusConflict {
		t.Fatalf("inactive counter status = %d, want 409", resp.Code)
	}
}

func TestTicketPositionEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)
	sessionID := adminSession(t, queueStore)

	first, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	second, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := getPath(t, routes, "/api/tickets/"+second.TicketID+"/position")
	if resp.Code != http.StatusOK {
		t.Fatalf("position status = %d", resp.Code)
	}
	var position positionResponse
	if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if position.Position == nil || *position.Position != 2 {
		t.Fatalf("position = %+v, want 2", position)
	}

	resp = postJSON(t, routes, "/api/tickets/actions/call-next", map[string]interface{}{"counter_id": 1, "service_id": "general"}, sessionID)
	if resp.Code != http.StatusOK {
		t.Fatalf("call next status = %d", resp.Code)
	}

	resp = getPath(t, routes, "/api/tickets/"+first.TicketID+"/position")
	if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
		t.Fatalf("decode position: %v", err)
	}
	if position.Position != nil {
		t.Fatalf("serving ticket position = %v, want null", *position.Position)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	_, routes := newTestServer(t)
	resp := getPath(t, routes, "/api/tickets/nope")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestWaitingTicketsEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)
	ctx := context.Background()

	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "facility"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := getPath(t, routes, "/api/tickets/waiting")
	if resp.Code != http.StatusOK {
		t.Fatalf("waiting status = %d", resp.Code)
	}
	var tickets []models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("waiting count = %d, want 2", len(tickets))
	}

	resp = getPath(t, routes, "/api/tickets/waiting?service_id=general")
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ServiceID != "general" {
		t.Fatalf("filtered tickets = %+v", tickets)
	}

	resp = getPath(t, routes, "/api/tickets/waiting?service_id=missing")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown service status = %d", resp.Code)
	}
}

func TestListTicketsEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "general"}); err != nil {
			t.Fatalf("create ticket: %v", err)
		}
	}

	resp := getPath(t, routes, "/api/tickets")
	if resp.Code != http.StatusOK {
		t.Fatalf("list tickets status = %d", resp.Code)
	}
	var tickets []models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("tickets = %d, want 3", len(tickets))
	}
}

func TestLastTicketEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)

	resp := getPath(t, routes, "/api/tickets/last")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("empty queue last status = %d, want 204", resp.Code)
	}

	if _, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	resp = getPath(t, routes, "/api/tickets/last")
	if resp.Code != http.StatusOK {
		t.Fatalf("last status = %d", resp.Code)
	}
}

func TestServiceLookupEndpoints(t *testing.T) {
	_, routes := newTestServer(t)

	resp := getPath(t, routes, "/api/services")
	if resp.Code != http.StatusOK {
		t.Fatalf("services status = %d", resp.Code)
	}
	var services []models.Service
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		t.Fatalf("decode services: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2", len(services))
	}

	resp = getPath(t, routes, "/api/services/by-prefix?prefix=A")
	if resp.Code != http.StatusOK {
		t.Fatalf("by-prefix status = %d", resp.Code)
	}
	resp = getPath(t, routes, "/api/services/by-prefix?prefix=Z")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown prefix status = %d", resp.Code)
	}
	resp = getPath(t, routes, "/api/services/by-prefix")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing prefix status = %d", resp.Code)
	}
}

func TestWaitTimeEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "facility"}); err != nil {
			t.Fatalf("create ticket: %v", err)
		}
	}

	resp := getPath(t, routes, "/api/services/wait-time?service_id=facility")
	if resp.Code != http.StatusOK {
		t.Fatalf("wait-time status = %d", resp.Code)
	}
	var payload struct {
		ServiceID            string `json:"service_id"`
		EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode wait-time: %v", err)
	}
	if payload.EstimatedWaitMinutes != 16 {
		t.Fatalf("estimated wait = %d, want 16", payload.EstimatedWaitMinutes)
	}

	resp = getPath(t, routes, "/api/services/wait-time")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing service_id status = %d", resp.Code)
	}
}

func TestAdminGate(t *testing.T) {
	queueStore, routes := newTestServer(t)

	resp := postJSON(t, routes, "/api/counters/1/status", map[string]string{"status": "inactive"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("no session status = %d, want 401", resp.Code)
	}

	staff := store.Session{SessionID: "staff-session", Operator: "staff", Role: "staff", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	if err := queueStore.CreateSession(context.Background(), staff); err != nil {
		t.Fatalf("create session: %v", err)
	}
	resp = postJSON(t, routes, "/api/counters/1/status", map[string]string{"status": "inactive"}, staff.SessionID)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("staff session status = %d, want 403", resp.Code)
	}

	adminID := adminSession(t, queueStore)
	resp = postJSON(t, routes, "/api/counters/1/status", map[string]string{"status": "inactive"}, adminID)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin session status = %d: %s", resp.Code, resp.Body.String())
	}
	var counter models.Counter
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	if counter.Status != models.CounterInactive {
		t.Fatalf("counter status = %s", counter.Status)
	}
}

func TestCounterServiceAssignment(t *testing.T) {
	queueStore, routes := newTestServer(t)
	adminID := adminSession(t, queueStore)

	resp := postJSON(t, routes, "/api/counters/2/service", map[string]string{"service_id": "facility"}, adminID)
	if resp.Code != http.StatusOK {
		t.Fatalf("assign status = %d: %s", resp.Code, resp.Body.String())
	}
	var counter models.Counter
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	if counter.ServiceID == nil || *counter.ServiceID != "facility" {
		t.Fatalf("counter service = %v", counter.ServiceID)
	}

	resp = postJSON(t, routes, "/api/counters/2/service", map[string]interface{}{"service_id": nil}, adminID)
	if resp.Code != http.StatusOK {
		t.Fatalf("clear status = %d", resp.Code)
	}
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	if counter.ServiceID != nil {
		t.Fatalf("counter service = %v, want nil", counter.ServiceID)
	}

	resp = postJSON(t, routes, "/api/counters/99/service", map[string]string{"service_id": "facility"}, adminID)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown counter status = %d", resp.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)
	adminID := adminSession(t, queueStore)
	ctx := context.Background()

	if _, err := queueStore.CreateTicket(ctx, store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := postJSON(t, routes, "/api/admin/reset", map[string]string{}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated reset status = %d", resp.Code)
	}

	resp = postJSON(t, routes, "/api/admin/reset", map[string]string{}, adminID)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", resp.Code)
	}

	count, err := queueStore.WaitingCount(ctx, "general")
	if err != nil {
		t.Fatalf("waiting count: %v", err)
	}
	if count != 0 {
		t.Fatalf("waiting after reset = %d, want 0", count)
	}
}

func TestLoginFlow(t *testing.T) {
	_, routes := newTestServer(t)

	resp := postJSON(t, routes, "/api/auth/login", map[string]string{"operator": "supervisor", "password": "wrong"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", resp.Code)
	}

	resp = postJSON(t, routes, "/api/auth/login", map[string]string{"operator": "supervisor", "password": testPassword}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", resp.Code, resp.Body.String())
	}
	var session store.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.SessionID == "" || session.Role != store.RoleAdmin {
		t.Fatalf("session = %+v", session)
	}

	resp = postJSON(t, routes, "/api/counters/1/status", map[string]string{"status": "inactive"}, session.SessionID)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin action with login session status = %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", bytes.NewReader(nil))
	req.Header.Set("X-Session-ID", session.SessionID)
	logoutResp := httptest.NewRecorder()
	routes.ServeHTTP(logoutResp, req)
	if logoutResp.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", logoutResp.Code)
	}

	resp = postJSON(t, routes, "/api/counters/1/status", map[string]string{"status": "active"}, session.SessionID)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d, want 401", resp.Code)
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	queueStore := memory.NewStore(memory.Options{})
	handler := NewHandler(queueStore, Options{})
	routes := AuthMiddleware(queueStore, handler.Routes())

	resp := postJSON(t, routes, "/api/auth/login", map[string]string{"operator": "supervisor", "password": "anything"}, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("login status = %d, want 503", resp.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)

	if _, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := getPath(t, routes, "/api/events")
	if resp.Code != http.StatusOK {
		t.Fatalf("events status = %d", resp.Code)
	}
	var events []store.ChangeEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Type != store.EventTicketCreated {
		t.Fatalf("events = %+v", events)
	}

	resp = getPath(t, routes, "/api/events?after=not-a-time")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad after status = %d", resp.Code)
	}
	resp = getPath(t, routes, "/api/events?limit=0")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", resp.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)

	if _, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := getPath(t, routes, "/api/queue/snapshot")
	if resp.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", resp.Code)
	}
	var snapshot store.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Services) != 2 || len(snapshot.Counters) != 4 || len(snapshot.Tickets) != 1 {
		t.Fatalf("snapshot sizes = %d/%d/%d", len(snapshot.Services), len(snapshot.Counters), len(snapshot.Tickets))
	}
}

func TestStatsEndpoint(t *testing.T) {
	queueStore, routes := newTestServer(t)

	if _, err := queueStore.CreateTicket(context.Background(), store.CreateTicketInput{ServiceID: "general"}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	resp := getPath(t, routes, "/api/stats")
	if resp.Code != http.StatusOK {
		t.Fatalf("stats status = %d", resp.Code)
	}
	var stats []store.ServiceStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d entries, want 2", len(stats))
	}
}

type failingStore struct {
	store.QueueStore
}

func (failingStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	return models.Ticket{}, errors.New("connection refused")
}

func TestStorageFailureMapsToInternalError(t *testing.T) {
	handler := NewHandler(failingStore{}, Options{})

	resp := postJSON(t, handler.Routes(), "/api/tickets", map[string]string{"service_id": "general"}, "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error.Code != "internal_error" {
		t.Fatalf("error code = %s", errResp.Error.Code)
	}
}
