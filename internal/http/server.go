package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

const requestTimeout = 30 * time.Second

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Addr string
	// AuthRequestsPerMinute caps register and login attempts per client.
	AuthRequestsPerMinute int
}

type Server struct {
	http.Server
	router   *chi.Mux
	limiter  *ratelimit.Limiter
	detector *security.Detector
}

// NewServer wires the JSON API.
func NewServer(cfg ServerConfig, h *Handlers, logger *log.Logger) *Server {
	if cfg.AuthRequestsPerMinute <= 0 {
		cfg.AuthRequestsPerMinute = 10
	}
	s := &Server{
		router:   chi.NewRouter(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{Requests: cfg.AuthRequestsPerMinute, Window: time.Minute}),
		detector: security.NewDetector(),
	}
	s.routes(h, logger)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(h *Handlers, logger *log.Logger) {
	r := s.router
	r.Use(
		trace.Middleware,
		log.RequestLogger(logger, trace.FromRequest),
		middleware.Recoverer,
		s.detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		middleware.Timeout(requestTimeout),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	requireAuth := RequireAuth(h.tokens)
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/register", h.Register)
		r.With(limited).Post("/login", h.Login)
		r.With(requireAuth).Get("/me", h.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Put("/{id}", h.UpdateExpense)
			r.Delete("/{id}", h.DeleteExpense)
		})
		r.Get("/budgets/{year}/{month}", h.GetBudget)
		r.Put("/budgets/{year}/{month}", h.PutBudget)
		r.Get("/categories", h.ListCategories)
		r.Post("/categories", h.AddCategory)
	})
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
