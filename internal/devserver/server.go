// Package devserver serves a scripted copy of the edges API for local
// development and integration tests.
//
// It answers the same routes the client calls, from an embedded fixture,
// and can be told to fail the next N edge fetches so retry and stale-data
// paths can be exercised without a real backend.
package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/logging"
)

//go:embed fixture.json
var fixture []byte

// Version is reported by GET /api/health.
const Version = "dev"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Server is an in-memory edges API.
type Server struct {
	log   *log.Logger
	now   func() time.Time
	churn bool

	mu          sync.Mutex
	snapshot    *edges.Snapshot
	polls       int
	failures    int
	failStatus  int
	retryAfter  time.Duration
	viewOnly    bool
	bets        []api.Bet
	subscribers map[string]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock sets the clock used for bet timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithChurn makes every other edges fetch drop the last edge, so clients
// see edges appear and disappear between polls.
func WithChurn() Option {
	return func(s *Server) { s.churn = true }
}

// New returns a Server loaded with the embedded fixture.
func New(opts ...Option) (*Server, error) {
	snap, err := edges.Decode(bytes.NewReader(fixture))
	if err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}
	s := &Server{
		log:         logging.WithPrefix("devserver"),
		now:         time.Now,
		snapshot:    snap,
		subscribers: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetSnapshot replaces the snapshot served by GET /api/edges/current.
func (s *Server) SetSnapshot(snap *edges.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

// FailNext makes the next n edge fetches answer status. A positive
// retryAfter is sent as a Retry-After header in whole seconds.
func (s *Server) FailNext(n, status int, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failStatus = status
	s.retryAfter = retryAfter
}

// SetViewOnly toggles view-only mode: bets are refused with 403 and the
// snapshot carries view_only.
func (s *Server) SetViewOnly(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewOnly = v
}

// Bets returns a copy of the recorded bets.
func (s *Server) Bets() []api.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Bet(nil), s.bets...)
}

// Polls returns how many edge fetches the server has answered, failed
// ones included.
func (s *Server) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/edges/current", s.currentEdges)
		r.Get("/bets", s.listBets)
		r.Post("/bets", s.createBet)
		r.Post("/subscribe", s.subscribe)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthStatus{Status: "ok", Version: Version})
}

func (s *Server) currentEdges(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.polls++
	if s.failures > 0 {
		s.failures--
		status, retryAfter := s.failStatus, s.retryAfter
		s.mu.Unlock()

		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
		}
		respondError(w, status, "scripted failure")
		return
	}

	snap := *s.snapshot
	snap.ViewOnly = snap.ViewOnly || s.viewOnly
	if s.churn && s.polls%2 == 0 && len(snap.Edges) > 0 {
		snap.Edges = snap.Edges[:len(snap.Edges)-1]
		snap.Summary.TotalEdges = len(snap.Edges)
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"bets": s.Bets()})
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req api.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EdgeKey == "" {
		respondError(w, http.StatusBadRequest, "edge_key is required")
		return
	}

	s.mu.Lock()
	if s.viewOnly {
		s.mu.Unlock()
		respondError(w, http.StatusForbidden, "betting is disabled in view-only mode")
		return
	}
	bet := api.Bet{
		ID:       int64(len(s.bets) + 1),
		EdgeKey:  req.EdgeKey,
		Player:   req.Player,
		Team:     req.Team,
		Odds:     req.Odds,
		Stake:    req.Stake,
		Status:   "open",
		PlacedAt: s.now().UTC(),
	}
	s.bets = append(s.bets, bet)
	s.mu.Unlock()

	s.log.Info("bet recorded", "id", bet.ID, "edge", bet.EdgeKey, "stake", bet.Stake.StringFixed(2))
	respondJSON(w, http.StatusCreated, bet)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	addr, err := mail.ParseAddress(body.Email)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	s.mu.Lock()
	s.subscribers[addr.Address] = struct{}{}
	s.mu.Unlock()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "subscribed"})
}

// requestLogger logs one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start).Round(time.Microsecond),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
