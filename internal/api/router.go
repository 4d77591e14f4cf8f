package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/validate"
)

// RouterConfig carries the router's optional collaborators.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// SSE, if non-nil, is mounted at GET /events inside the auth group.
	SSE http.Handler
	// Paths checks the path kind of POST /validate.
	Paths *validate.PathValidator
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *recordservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.Paths)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Get("/records/*", h.GetRecord)

	r.Post("/scan", h.Scan)
	r.Get("/references/*", h.References)
	r.Get("/resolve", h.Resolve)
	r.Post("/validate", h.Validate)

	r.Get("/search", h.Search)

	if cfg.SSE != nil {
		r.Get("/events", cfg.SSE.ServeHTTP)
	}

	return r
}
