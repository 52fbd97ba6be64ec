// ABOUTME: HTTP API server wiring routes, guard, sessions, and JSON helpers
// ABOUTME: Every mutation flows guard -> session -> validate -> store -> invalidate

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hearth-dev/hearth/internal/guard"
	"github.com/hearth-dev/hearth/internal/metrics"
	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
)

// Server handles the JSON API.
type Server struct {
	store    store.Store
	sessions *session.Codec
	guard    *guard.Guard
	views    *views.Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an API server.
func New(st store.Store, sessions *session.Codec, g *guard.Guard, vc *views.Cache, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		sessions: sessions,
		guard:    g,
		views:    vc,
		metrics:  m,
		logger:   logger.With("component", "api"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.instrument("/healthz", s.handleHealthz))

	mux.HandleFunc("POST /api/join", s.instrument("/api/join", s.guarded(s.handleJoin)))
	mux.HandleFunc("GET /api/me", s.instrument("/api/me", s.requireSession(s.handleMe)))
	mux.HandleFunc("POST /api/leave", s.instrument("/api/leave", s.guarded(s.requireSession(s.handleLeave))))

	mux.HandleFunc("GET /api/threads", s.instrument("/api/threads", s.requireSession(s.handleThreadList)))
	mux.HandleFunc("POST /api/threads", s.instrument("/api/threads", s.guarded(s.requireSession(s.handleThreadCreate))))
	mux.HandleFunc("GET /api/threads/{threadId}", s.instrument("/api/threads/{threadId}", s.requireSession(s.handleThreadGet)))
	mux.HandleFunc("PATCH /api/threads/{threadId}/status", s.instrument("/api/threads/{threadId}/status", s.guarded(s.requireSession(s.handleThreadStatus))))
	mux.HandleFunc("GET /api/threads/{threadId}/messages", s.instrument("/api/threads/{threadId}/messages", s.requireSession(s.handleMessageList)))
	mux.HandleFunc("POST /api/threads/{threadId}/messages", s.instrument("/api/threads/{threadId}/messages", s.guarded(s.requireSession(s.handleMessageCreate))))

	mux.HandleFunc("GET /api/todos", s.instrument("/api/todos", s.requireSession(s.handleTodoList)))
	mux.HandleFunc("POST /api/todos", s.instrument("/api/todos", s.guarded(s.requireSession(s.handleTodoCreate))))
	mux.HandleFunc("GET /api/todos/{todoId}", s.instrument("/api/todos/{todoId}", s.requireSession(s.handleTodoGet)))
	mux.HandleFunc("PATCH /api/todos/{todoId}/status", s.instrument("/api/todos/{todoId}/status", s.guarded(s.requireSession(s.handleTodoStatus))))

	mux.HandleFunc("GET /api/ledgers", s.instrument("/api/ledgers", s.requireSession(s.handleLedgerList)))
	mux.HandleFunc("POST /api/ledgers", s.instrument("/api/ledgers", s.guarded(s.requireSession(s.handleLedgerCreate))))

	mux.HandleFunc("POST /api/invites", s.instrument("/api/invites", s.guarded(s.requireSession(s.handleInviteCreate))))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// guarded runs the write-security guard before the wrapped handler. It runs
// whether or not a session resolves; the session only sharpens the rate key.
func (s *Server) guarded(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memberID string
		if sess, ok := s.sessions.Resolve(r); ok {
			memberID = sess.MemberID
		}
		if rej := s.guard.Check(r, memberID); rej != nil {
			s.sendJSONError(w, rej.Status, rej.Message)
			return
		}
		next(w, r)
	}
}

// sessionHandler receives the resolved session alongside the request.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// requireSession rejects requests without a valid session cookie.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Resolve(r)
		if !ok {
			s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, sess)
	}
}

// instrument records request count and latency for a route.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) recordMutation(entity, outcome string) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(entity, outcome).Inc()
	}
}

// decodeBody decodes a JSON request body into dst. Malformed JSON leaves dst
// zero-valued rather than failing the request; the field checks that follow
// produce the actual validation errors.
func decodeBody(r *http.Request, dst any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(dst)
}

// parseID parses a positive integer path identifier.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sendJSON writes a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
