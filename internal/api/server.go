// Package api exposes the pacer HTTP surface: event ingestion, recent
// dispatch history, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/pacer/internal/core/domain"
	"github.com/vietddude/pacer/internal/dispatch"
	"github.com/vietddude/pacer/internal/infra/storage"
	"github.com/vietddude/pacer/internal/pacing"
)

// Server provides the HTTP endpoints.
type Server struct {
	dispatcher *dispatch.Dispatcher
	history    storage.DispatchRepository
	health     func(ctx context.Context) error
	log        *slog.Logger
	server     *http.Server
}

// Config holds server dependencies.
type Config struct {
	Port       int
	Dispatcher *dispatch.Dispatcher
	History    storage.DispatchRepository

	// Health reports backing-store connectivity; nil means always
	// healthy (in-memory mode).
	Health func(ctx context.Context) error

	Logger *slog.Logger
}

// NewServer creates the HTTP server and registers routes.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		dispatcher: cfg.Dispatcher,
		history:    cfg.History,
		health:     cfg.Health,
		log:        log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /v1/events", s.handleDispatch)
	mux.HandleFunc("GET /v1/dispatches", s.handleDispatches)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// dispatchRequest is the POST /v1/events body.
type dispatchRequest struct {
	SubjectID string         `json:"subject_id"`
	Operation string         `json:"operation"`
	Policy    string         `json:"policy"`
	Custom    *pacing.Policy `json:"custom_policy"`
	Event     map[string]any `json:"event"`
}

// dispatchResponse echoes the recorded outcome.
type dispatchResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	EventType string `json:"event_type,omitempty"`
	PageType  string `json:"page_type,omitempty"`
	TargetURL string `json:"target_url,omitempty"`
	Attempt   int    `json:"attempt"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var body dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if body.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}
	if len(body.Event) == 0 {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	kind := domain.OperationKind(body.Operation)
	if body.Operation == "" {
		kind = domain.OpUpdate
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", body.Operation))
		return
	}

	policy, err := resolvePolicy(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, dispatchErr := s.dispatcher.Dispatch(r.Context(), &dispatch.Request{
		SubjectID: body.SubjectID,
		Kind:      kind,
		Payload:   body.Event,
		Policy:    policy,
	})

	resp := dispatchResponse{
		ID:        record.ID,
		Status:    string(record.Status),
		EventType: record.EventType,
		PageType:  record.PageType,
		TargetURL: record.TargetURL,
		Attempt:   record.Attempt,
		Error:     record.Error,
	}

	status := http.StatusOK
	switch record.Status {
	case domain.DispatchRejected:
		status = http.StatusBadRequest
	case domain.DispatchRetrying, domain.DispatchExhausted:
		status = http.StatusBadGateway
	}
	if dispatchErr != nil && record.Status == domain.DispatchSucceeded {
		// Should not happen; keep the record authoritative.
		s.log.Error("dispatch error with succeeded record", "error", dispatchErr)
	}

	writeJSON(w, status, resp)
}

// resolvePolicy picks the preset, the custom policy, or neither.
func resolvePolicy(body *dispatchRequest) (*pacing.Policy, error) {
	if body.Policy != "" && body.Custom != nil {
		return nil, errors.New("policy and custom_policy are mutually exclusive")
	}

	if body.Policy != "" {
		p, ok := pacing.LookupPolicy(body.Policy)
		if !ok {
			return nil, fmt.Errorf("unknown policy %q, expected one of %v", body.Policy, pacing.PresetNames())
		}
		return &p, nil
	}

	if body.Custom != nil {
		if err := body.Custom.Validate(); err != nil {
			return nil, err
		}
		return body.Custom, nil
	}

	return nil, nil
}

func (s *Server) handleDispatches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be in 1..500")
			return
		}
		limit = n
	}

	dispatches, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list dispatches", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list dispatches")
		return
	}

	out := make([]dispatchResponse, 0, len(dispatches))
	for _, d := range dispatches {
		out = append(out, dispatchResponse{
			ID:        d.ID,
			Status:    string(d.Status),
			EventType: d.EventType,
			PageType:  d.PageType,
			TargetURL: d.TargetURL,
			Attempt:   d.Attempt,
			Error:     d.Error,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"dispatches": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
