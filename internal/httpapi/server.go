// Package httpapi exposes the hub's record store over JSON: identities,
// access events and the supervisor authorization queue.  Terminals are the
// only intended clients.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

type Dependencies struct {
	Logger *log.Logger
	Addr   string
	Store  store.RecordStore
	Auth   *service.SupervisorAuthorizer
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	store      store.RecordStore
	auth       *service.SupervisorAuthorizer
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger: d.Logger,
		mux:    mux,
		store:  d.Store,
		auth:   d.Auth,
	}

	mux.HandleFunc("GET /v1/identities", s.handleListIdentities)
	mux.HandleFunc("POST /v1/identities", s.handleInsertIdentity)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("POST /v1/events", s.handleInsertEvent)
	mux.HandleFunc("GET /v1/events/last", s.handleLastEvent)
	mux.HandleFunc("GET /v1/authorizations", s.handleListAuthorizations)
	mux.HandleFunc("POST /v1/authorizations/{id}/resolve", s.requireSupervisor(s.handleResolveAuthorization))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── identities ──

func (s *Server) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListIdentities(r.Context())
	if err != nil {
		s.internalError(w, "list identities", err)
		return
	}
	if ids == nil {
		ids = []types.Identity{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleInsertIdentity(w http.ResponseWriter, r *http.Request) {
	var id types.Identity
	if !decodeBody(w, r, &id) {
		return
	}
	if id.EmployeeCode == "" {
		writeError(w, http.StatusBadRequest, "missing_employee_code", "employee_code is required")
		return
	}
	if len(id.Descriptor) != 0 && len(id.Descriptor) != types.DescriptorLength {
		writeError(w, http.StatusBadRequest, "bad_descriptor", "descriptor has the wrong length")
		return
	}

	stored, err := s.store.InsertIdentity(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmployee) {
			writeError(w, http.StatusConflict, "duplicate_employee", err.Error())
			return
		}
		s.internalError(w, "insert identity", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ── events ──

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListAccessEvents(r.Context())
	if err != nil {
		s.internalError(w, "list events", err)
		return
	}
	if events == nil {
		events = []types.AccessEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("employee_code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_employee_code", "employee_code query parameter is required")
		return
	}
	last, err := s.store.QueryLastEvent(r.Context(), code)
	if err != nil {
		s.internalError(w, "query last event", err)
		return
	}
	if last == nil {
		writeError(w, http.StatusNotFound, "not_found", "no approved event for employee")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleInsertEvent(w http.ResponseWriter, r *http.Request) {
	var ev types.AccessEvent
	if !decodeBody(w, r, &ev) {
		return
	}
	if ev.EmployeeCode == "" {
		writeError(w, http.StatusBadRequest, "missing_employee_code", "employee_code is required")
		return
	}
	if !ev.Type.Valid() {
		writeError(w, http.StatusBadRequest, "bad_type", "type must be entry or exit")
		return
	}
	switch ev.Status {
	case types.StatusApproved, types.StatusRejected, types.StatusPending:
	default:
		writeError(w, http.StatusBadRequest, "bad_status", "unknown event status")
		return
	}

	stored, err := s.store.InsertAccessEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, store.ErrPendingExists) {
			writeError(w, http.StatusConflict, "pending_exists", err.Error())
			return
		}
		s.internalError(w, "insert event", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ── authorizations ──

func (s *Server) handleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.ListPendingAuthorizations(r.Context())
	if err != nil {
		s.internalError(w, "list authorizations", err)
		return
	}
	if pending == nil {
		pending = []types.AccessEvent{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type resolveRequest struct {
	Outcome types.EventStatus `json:"outcome"`
}

func (s *Server) handleResolveAuthorization(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resolved, err := s.store.ResolveAuthorization(r.Context(), recordID, req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidOutcome):
			writeError(w, http.StatusBadRequest, "bad_outcome", err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "no such authorization record")
		case errors.Is(err, store.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "already_resolved", err.Error())
		default:
			s.internalError(w, "resolve authorization", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// ── helpers ──

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("%s error: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
