package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"creditdesk/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
}

// NewRouter wires every endpoint. metrics may be nil.
func NewRouter(h *handlers.Handlers, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if h == nil {
		return r
	}

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/register", h.Register)
		r.Post("/check-eligibility", h.CheckEligibility)
		r.Post("/create-loan", h.CreateLoan)
		r.Get("/view-loan/{loan_id}", h.ViewLoan)
		r.Get("/view-loans/{customer_id}", h.ViewLoans)
	})

	r.Post("/import", h.Import)
	r.Post("/upload", h.Upload)

	return r
}

func NewServer(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}
