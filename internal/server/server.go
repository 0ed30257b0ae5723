// Package server exposes the case drafting and PDF generation service over
// HTTP. Routes live under /api/v1; everything except registration, login and
// the health probes requires a bearer token.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/casekit/formfill/internal/auth"
	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/draft"
	"github.com/casekit/formfill/internal/pdf"
)

// normalizer is the slice of the intake service the server calls.
type normalizer interface {
	Configured() bool
	Normalize(ctx context.Context, narrative, formType string) (map[string]any, error)
}

// pinger is implemented by stores with a live backend connection.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	store     caserec.Store
	drafts    *draft.Service
	renderer  *pdf.Renderer
	templates pdf.TemplateDir
	intake    normalizer
	jwtSecret string
	logger    *log.Logger
}

func New(store caserec.Store, drafts *draft.Service, templates pdf.TemplateDir, intake normalizer, jwtSecret string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:     store,
		drafts:    drafts,
		renderer:  pdf.NewRenderer(),
		templates: templates,
		intake:    intake,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Router builds the chi mux with all routes mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.jwtSecret))

			r.Post("/cases", s.handleStartCase)
			r.Get("/cases", s.handleListCases)
			r.Post("/cases/{type}/save", s.handleSave)
			r.Post("/cases/{type}/submit", s.handleSubmit)
			r.Get("/cases/{type}/pdf", s.handleRenderPDF)
			r.Get("/cases/{type}/pdf/fields", s.handleListTemplateFields)

			r.Post("/intake", s.handleIntake)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Printf("readiness check failed: %v", err)
			writeError(w, http.StatusServiceUnavailable, codeNotReady, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
