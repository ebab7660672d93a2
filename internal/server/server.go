// Package server is the docchat HTTP surface: session login, document upload,
// question answering, history and admin reports.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/documents"
	"github.com/ziadkadry99/docchat/internal/ingest"
	"github.com/ziadkadry99/docchat/internal/metrics"
	"github.com/ziadkadry99/docchat/internal/querylog"
	"github.com/ziadkadry99/docchat/internal/rag"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
	MaxQueryBytes  int64 // limit for a /query body or a websocket frame
	CookieSecure   bool
}

// Asker answers a question on behalf of a user.
type Asker interface {
	Ask(ctx context.Context, userID, question string, history []rag.Turn) (rag.Reply, error)
}

// Uploader stores and indexes an uploaded document.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, title, author string) (ingest.Result, error)
}

// DocumentCounter reports how many chunks are searchable.
type DocumentCounter interface {
	Count() int
}

// Deps are the components the handlers call into.
type Deps struct {
	Users     *auth.Store
	Sessions  *auth.JWTManager
	Documents *documents.Store
	QueryLog  *querylog.Store
	Questions Asker
	Uploads   Uploader
	Index     DocumentCounter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Server wires handlers onto a chi router.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
	now        func() time.Time
}

// New builds a Server. No socket is opened until Start.
func New(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.MaxQueryBytes <= 0 {
		cfg.MaxQueryBytes = 1 << 20
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, deps: deps, logger: deps.Logger, now: time.Now}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(s.deps.Sessions, s.logger))

		// The websocket outlives the request timeout.
		r.Get("/ws/chat", s.handleChatSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Get("/logout", s.handleLogout)
			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Post("/upload", s.handleUpload)
			r.Get("/documents", s.handleListDocuments)
			r.Post("/query", s.handleQuery)
			r.Get("/chat_history", s.handleChatHistory)
			r.Get("/reports", s.handleReports)
		})
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("docchat server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Index != nil {
		body["indexed_chunks"] = s.deps.Index.Count()
	}
	writeJSON(w, http.StatusOK, body)
}
