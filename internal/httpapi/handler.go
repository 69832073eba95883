package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qms/walkin-service/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	store             store.QueueStore
	adminPasswordHash string
	sessionTTL        time.Duration
}

type Options struct {
	AdminPasswordHash string
	SessionTTL        time.Duration
}

func NewHandler(queueStore store.QueueStore, options Options) *Handler {
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Handler{
		store:             queueStore,
		adminPasswordHash: options.AdminPasswordHash,
		sessionTTL:        ttl,
	}
}

type createTicketRequest struct {
	ServiceID    string `json:"service_id"`
	CustomerName string `json:"customer_name"`
	Purpose      string `json:"purpose"`
	Priority     string `json:"priority"`
}

type callNextRequest struct {
	CounterID int    `json:"counter_id"`
	ServiceID string `json:"service_id"`
}

type completeRequest struct {
	Notes string `json:"notes"`
}

type counterStatusRequest struct {
	Status string `json:"status"`
}

type counterServiceRequest struct {
	ServiceID *string `json:"service_id"`
}

type loginRequest struct {
	Operator string `json:"operator"`
	Password string `json:"password"`
}

type positionResponse struct {
	TicketID string `json:"ticket_id"`
	Position *int   `json:"position"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/waiting", h.handleWaitingTickets)
	mux.HandleFunc("/api/tickets/last", h.handleLastTicket)
	mux.HandleFunc("/api/tickets/", h.handleTicketSubpaths)
	mux.HandleFunc("/api/services", h.handleServices)
	mux.HandleFunc("/api/services/by-prefix", h.handleServiceByPrefix)
	mux.HandleFunc("/api/services/wait-time", h.handleWaitTime)
	mux.HandleFunc("/api/counters", h.handleCounters)
	mux.HandleFunc("/api/counters/", h.handleCounterActions)
	mux.HandleFunc("/api/queue/snapshot", h.handleSnapshot)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/events", h.handleEvents)
	mux.HandleFunc("/api/admin/reset", h.handleReset)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Operator = strings.TrimSpace(req.Operator)
	if req.Operator == "" || req.Password == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "operator and password are required")
		return
	}
	if h.adminPasswordHash == "" {
		writeError(w, requestIDFromRequest(r), http.StatusServiceUnavailable, "login_disabled", "admin login is not configured")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(req.Password)); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	session := store.Session{
		SessionID: uuid.NewString(),
		Operator:  req.Operator,
		Role:      store.RoleAdmin,
		ExpiresAt: time.Now().UTC().Add(h.sessionTTL),
	}
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID != "" {
		if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListTickets(w, r)
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createTicketRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Purpose = strings.TrimSpace(req.Purpose)
	req.Priority = strings.TrimSpace(req.Priority)
	if req.ServiceID == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "service_id is required")
		return
	}

	ticket, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{
		ServiceID:    req.ServiceID,
		CustomerName: req.CustomerName,
		Purpose:      req.Purpose,
		Priority:     req.Priority,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Snapshot(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Tickets)
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req callNextRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.CounterID <= 0 || req.ServiceID == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "counter_id and service_id are required")
		return
	}

	ticket, err := h.store.CallNext(r.Context(), store.CallNextInput{
		CounterID: req.CounterID,
		ServiceID: req.ServiceID,
		CalledAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNoTicket) {
			// An empty queue is expected, not exceptional.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleGetTicket(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "position":
		h.handleTicketPosition(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "actions" && parts[2] == "complete":
		h.handleCompleteTicket(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticket, found, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	if !found {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "ticket_not_found", "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketPosition(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	position, ok, err := h.store.TicketPosition(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	response := positionResponse{TicketID: ticketID}
	if ok {
		response.Position = &position
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleCompleteTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req completeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ticket, applied, err := h.store.CompleteTicket(r.Context(), store.CompleteTicketInput{
		TicketID:    ticketID,
		Notes:       strings.TrimSpace(req.Notes),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	if !applied {
		log.Printf("complete ignored ticket=%s status=%s", ticket.TicketID, ticket.Status)
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleWaitingTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	tickets, err := h.store.ListWaitingTickets(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleLastTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticket, found, err := h.store.GetLastTicket(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *Handler) handleServiceByPrefix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))
	if prefix == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "prefix is required")
		return
	}
	service, found, err := h.store.GetServiceByPrefix(r.Context(), prefix)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	if !found {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "service_not_found", "service not found")
		return
	}
	writeJSON(w, http.StatusOK, service)
}

func (h *Handler) handleWaitTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if serviceID == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "service_id is required")
		return
	}
	minutes, err := h.store.EstimatedWaitMinutes(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service_id":             serviceID,
		"estimated_wait_minutes": minutes,
	})
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counters, err := h.store.ListCounters(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func (h *Handler) handleCounterActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/counters/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	counterID, err := strconv.Atoi(parts[0])
	if err != nil || counterID <= 0 {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "counter id must be a positive integer")
		return
	}

	if !requireAdmin(w, r) {
		return
	}

	switch parts[1] {
	case "status":
		h.handleCounterStatus(w, r, counterID)
	case "service":
		h.handleCounterService(w, r, counterID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCounterStatus(w http.ResponseWriter, r *http.Request, counterID int) {
	var req counterStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	counter, err := h.store.UpdateCounterStatus(r.Context(), counterID, req.Status)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counter)
}

func (h *Handler) handleCounterService(w http.ResponseWriter, r *http.Request, counterID int) {
	var req counterServiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	counter, err := h.store.UpdateCounterService(r.Context(), counterID, req.ServiceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counter)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snapshot, err := h.store.Snapshot(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.store.ServiceStats(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	afterRaw := strings.TrimSpace(r.URL.Query().Get("after"))
	var after time.Time
	if afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, afterRaw)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "after must be an RFC3339 timestamp")
			return
		}
		after = parsed
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListChangeEvents(r.Context(), after, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	if err := h.store.Reset(r.Context()); err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrCounterNotFound):
		return http.StatusNotFound, "counter_not_found", "counter not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, "invalid_request", "invalid input"
	case errors.Is(err, store.ErrCounterUnavailable):
		return http.StatusConflict, "counter_unavailable", "counter is not active"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrAccessDenied):
		return http.StatusForbidden, "access_denied", "access denied"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
