// Package service exposes the agent over HTTP: one analyze operation, a
// health probe, and a metrics snapshot. Transport concerns only; all
// workflow logic lives in runtime/agent.
package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/debug"
	"goa.design/clue/health"
	"goa.design/clue/log"

	"github.com/storelens/storelens/runtime/agent"
	"github.com/storelens/storelens/runtime/agent/metrics"
)

// sessionIdleTTL bounds how long a store's conversation stays registered
// without a request.
const sessionIdleTTL = time.Hour

type (
	// Service is the HTTP boundary around the agent.
	Service struct {
		agent     *agent.Agent
		collector *metrics.Collector
		checker   health.Checker
		window    int
		debug     bool

		// sessions holds one conversation per store, dropped after
		// sessionIdleTTL without a request so the registry stays bounded.
		// The service does not serialize requests within a session:
		// concurrent questions for the same store get answers, but their
		// history order is undefined.
		mu       sync.Mutex
		sessions map[string]*sessionEntry

		now func() time.Time
	}

	sessionEntry struct {
		sess     *agent.Session
		lastSeen time.Time
	}

	// Options configures optional Service behavior.
	Options struct {
		// HistoryWindow bounds retained exchanges per session.
		HistoryWindow int
		// Pingers are backend dependencies covered by the health probe.
		Pingers []health.Pinger
		// Debug mounts the pprof handlers and the debug log enabler.
		Debug bool
	}

	// AnalyzeRequest is the analyze operation payload.
	AnalyzeRequest struct {
		StoreID     string `json:"store_id"`
		Question    string `json:"question"`
		AccessToken string `json:"access_token"`
	}

	// ErrorResponse is the structured error payload. It always carries a
	// suggestion, never internals.
	ErrorResponse struct {
		Error      string `json:"error"`
		Details    string `json:"details,omitempty"`
		Suggestion string `json:"suggestion,omitempty"`
	}
)

// New builds a Service around the given agent and metrics collector.
func New(a *agent.Agent, collector *metrics.Collector, opts Options) (*Service, error) {
	if a == nil {
		return nil, errors.New("agent is required")
	}
	if collector == nil {
		return nil, errors.New("metrics collector is required")
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = agent.DefaultHistoryWindow
	}
	return &Service{
		agent:     a,
		collector: collector,
		checker:   health.NewChecker(opts.Pingers...),
		window:    window,
		debug:     opts.Debug,
		sessions:  make(map[string]*sessionEntry),
		now:       time.Now,
	}, nil
}

// Handler returns the service route multiplexer.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.Handle("GET /healthz", health.Handler(s.checker))
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	if s.debug {
		// Mount pprof handlers for memory profiling under /debug/pprof.
		debug.MountPprofHandlers(mux)
		// Mount /debug endpoint to enable or disable debug logs at runtime.
		debug.MountDebugLogEnabler(mux)
	}
	return mux
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := log.With(r.Context(), log.KV{K: "request_id", V: uuid.NewString()})

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid request body",
			Suggestion: "send a JSON object with store_id, question, and access_token",
		})
		return
	}
	if req.StoreID == "" || req.Question == "" || req.AccessToken == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "missing required fields",
			Suggestion: "store_id, question, and access_token are all required",
		})
		return
	}

	log.Info(ctx, log.KV{K: "msg", V: "analyze request"}, log.KV{K: "store", V: req.StoreID})

	sess := s.session(req.StoreID, req.AccessToken)
	ans, err := s.agent.Ask(ctx, sess, req.Question)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Service) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

// session returns the store's conversation, starting a fresh one when the
// store is new, its credential rotated, or its previous conversation idled
// out. Expired entries are swept on each call.
func (s *Service) session(storeID, token string) *agent.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) >= sessionIdleTTL {
			delete(s.sessions, id)
		}
	}
	e, ok := s.sessions[storeID]
	if !ok || e.sess.Credential != token {
		e = &sessionEntry{sess: agent.NewSession(storeID, token, s.window)}
		s.sessions[storeID] = e
	}
	e.lastSeen = now
	return e.sess
}

func writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *agent.RequestError
	if !errors.As(err, &reqErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:      "internal error",
			Suggestion: "try again in a moment",
		})
		return
	}

	status := http.StatusBadGateway
	if reqErr.Kind == agent.KindExhaustedRetries {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ErrorResponse{
		Error:      string(reqErr.Kind),
		Details:    reqErr.Message,
		Suggestion: reqErr.Suggestion,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
