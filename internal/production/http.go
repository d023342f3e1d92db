package production

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/internal/primitives"
)

// Server exposes a running machine over HTTP.
type Server struct {
	runner   *core.Runner
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	viz      DOTVisualizer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithServerLogger sets the request logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// EventResponse is the body returned by POST /events.
type EventResponse struct {
	Result core.Result `json:"result"`
	Active []string    `json:"active"`
	Error  string      `json:"error,omitempty"`
}

// StateResponse is the body returned by GET /state.
type StateResponse struct {
	Snapshot core.MachineSnapshot `json:"snapshot"`
	States   []string             `json:"states"`
}

// NewHandler routes:
//
//	POST /events   dispatch {"type": "...", "data": ...} and wait for the result
//	GET  /state    snapshot plus every active state
//	GET  /dot      Graphviz source with the active configuration highlighted
//	GET  /metrics  Prometheus metrics, when WithMetrics is set
func NewHandler(runner *core.Runner, opts ...ServerOption) http.Handler {
	s := &Server{runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Post("/events", s.postEvent)
	r.Get("/state", s.getState)
	r.Get("/dot", s.getDOT)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var evt primitives.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil || evt.Type == "" {
		http.Error(w, "body must be an event with a type", http.StatusBadRequest)
		return
	}

	res, err := s.runner.Dispatch(r.Context(), evt)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, core.ErrRunnerStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, primitives.ErrHistoryInconsistency):
		// The event was processed; the rejected history operation is reported in the body.
	default:
		status = http.StatusUnprocessableEntity
	}
	if err != nil {
		s.logger.Warn("event rejected", "event", evt.Type, "error", err)
	}

	resp := EventResponse{Result: res}
	_ = s.runner.Do(r.Context(), func(m *core.Machine) error {
		resp.Active = m.ActiveLeaves()
		return nil
	})
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := s.runner.Do(r.Context(), func(m *core.Machine) error {
		resp.Snapshot = m.Snapshot()
		resp.States = m.ActiveStates()
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getDOT(w http.ResponseWriter, r *http.Request) {
	var dot string
	err := s.runner.Do(r.Context(), func(m *core.Machine) error {
		dot = s.viz.ExportDOT(m.Config(), m.ActiveStates())
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
