// Package server provides the MCP transports: the HTTP router with SSE
// sessions, and the stdio loop.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"movies-mcp/internal/dispatch"
	"movies-mcp/internal/metrics"
)

const maxMessageBytes = 4 << 20

// Config contains HTTP transport settings.
type Config struct {
	// Token, when set, is required as a bearer token on every route except
	// /health and /metrics.
	Token       string
	CORSOrigins []string
}

// Server contains the configured router, session registry and dispatcher.
type Server struct {
	cfg        Config
	router     *chi.Mux
	dispatcher *dispatch.Dispatcher
	sessions   *Registry
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New constructs a Server with middleware and routes configured. m may be
// nil, in which case /metrics is not served.
func New(cfg Config, d *dispatch.Dispatcher, m *metrics.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		dispatcher: d,
		metrics:    m,
		logger:     logger.With().Str("component", "http").Logger(),
	}
	s.sessions = NewRegistry(func() MessageHandler { return NewProtocol(d) }, m)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(corsOptions(cfg.CORSOrigins)))

	s.router.Get("/health", s.handleHealth)
	if m != nil {
		s.router.Method(http.MethodGet, "/metrics", m.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/sse", s.handleSSE)
		r.Post("/message", s.handleMessage)
		r.Route("/mcp", func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/tools", s.handleListTools)
			r.Post("/call", s.handleCall)
		})
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// Sessions exposes the SSE session registry.
func (s *Server) Sessions() *Registry { return s.sessions }

// Close ends every open SSE stream so that http.Server.Shutdown can finish.
func (s *Server) Close() { s.sessions.CloseAll() }

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return opts
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Name: ServerName, Version: ServerVersion})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: s.dispatcher.Tools()})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.dispatcher.Invoke(r.Context(), req.Name, req.Args))
}

// handleSSE opens a session and streams its replies until either side
// closes.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sess := s.sessions.Open()
	defer s.sessions.Close(sess.ID())
	log := s.logger.With().Str("session", sess.ID()).Logger()
	log.Info().Msg("session opened")
	defer func() { log.Info().Msg("session closed") }()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "endpoint", []byte("/message?sessionId="+sess.ID())); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.Done():
			return
		case msg := <-sess.Messages():
			if err := writeEvent(w, "message", msg); err != nil {
				log.Warn().Err(err).Msg("write event")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, name string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// handleMessage delivers one JSON-RPC message to an open session. The reply
// is sent on the session's stream, not in this response.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil || !json.Valid(body) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	// The reply still goes out if the poster hangs up first.
	ctx := context.WithoutCancel(r.Context())
	if err := s.sessions.Post(ctx, id, body); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		s.logger.Error().Err(err).Str("session", id).Msg("post message")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, "Accepted")
}
