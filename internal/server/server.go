package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/empath/internal/bus"
	"github.com/normanking/empath/internal/config"
	"github.com/normanking/empath/internal/metrics"
	"github.com/normanking/empath/internal/persona"
	"github.com/normanking/empath/internal/pipeline"
)

// Options configures a Server.
type Options struct {
	Config    config.ServerConfig
	Pipeline  *pipeline.Pipeline
	Collector *metrics.Collector
	Bus       *bus.Bus
	Version   string
}

// Server serves the turn API and the chat websocket.
type Server struct {
	cfg       config.ServerConfig
	pipeline  *pipeline.Pipeline
	collector *metrics.Collector
	bus       *bus.Bus
	version   string
	started   time.Time
	handler   http.Handler
}

// New creates a server. The pipeline is required.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	cfg := opts.Config
	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = config.Default().Server.MaxInputBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		pipeline:  opts.Pipeline,
		collector: opts.Collector,
		bus:       opts.Bus,
		version:   opts.Version,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/turn", s.handleTurn)
	mux.HandleFunc("GET /api/v1/personas", s.handlePersonas)
	mux.HandleFunc("GET /api/v1/personas/{name}", s.handlePersona)
	s.registerMetricsRoutes(mux)
	mux.HandleFunc("GET /ws/chat", s.handleChat)

	s.handler = s.corsMiddleware(mux)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		StartedAt: s.started,
		Sessions:  s.pipeline.Sessions().Len(),
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	// leave room for the JSON framing around the text
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxInputBytes)+4096)

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, ErrTooLarge)
			return
		}
		if errors.Is(err, io.EOF) {
			writeError(w, ErrBadRequest.WithDetails("empty body"))
			return
		}
		writeError(w, ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if len(req.Text) > s.cfg.MaxInputBytes {
		writeError(w, ErrTooLarge.WithDetails(fmt.Sprintf("text exceeds %d bytes", s.cfg.MaxInputBytes)))
		return
	}

	env := s.pipeline.Process(r.Context(), req.UserRef, req.Text, req.Context)
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	reg := s.pipeline.Personas()
	names := reg.Names()
	resp := PersonasResponse{
		Personas: make([]PersonaInfo, 0, len(names)),
		Default:  reg.Default(),
	}
	for _, name := range names {
		if p, ok := reg.Lookup(name); ok {
			resp.Personas = append(resp.Personas, personaInfo(p, reg.Default()))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	reg := s.pipeline.Personas()
	p, ok := reg.Lookup(r.PathValue("name"))
	if !ok {
		writeError(w, ErrNotFound.WithDetails("unknown persona "+r.PathValue("name")))
		return
	}
	cfg := p.Config()
	set := p.Suggestions()
	n := 0
	for _, v := range set.ByEmotion {
		n += len(v)
	}
	for _, v := range set.ByCategory {
		n += len(v)
	}
	writeJSON(w, http.StatusOK, PersonaDetail{
		PersonaInfo: personaInfo(p, reg.Default()),
		Style:       cfg.Style,
		Suggestions: n,
	})
}

func personaInfo(p *persona.Persona, defaultName string) PersonaInfo {
	cfg := p.Config()
	cats := p.Categories()
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = string(c)
	}
	sort.Strings(labels)
	return PersonaInfo{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		Domain:      cfg.Domain,
		Categories:  labels,
		Default:     cfg.Name == defaultName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE / HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the request origin when it is on the allow list.
func (s *Server) allowedOrigin(r *http.Request) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return ""
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Code, e)
}
