package serverhttp

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"price-recon/internal/config"
	"price-recon/internal/middleware"
	recHnd "price-recon/internal/reconcile/handler"
	"price-recon/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, h *recHnd.Handler, db handlers.Pinger) *chi.Mux {
	r := chi.NewRouter()

	// order matters: recover -> request id -> logging -> cors -> body limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) << 20))

	r.Get("/health", handlers.Health(db))

	r.Post("/compare", h.Compare)

	// staging runs hold the ledger for their whole transaction
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.IngestRatePerMin, time.Minute))
		r.Post("/ingest", h.Ingest)
		r.Post("/resolve", h.Resolve)
	})

	r.Get("/canonical", h.Canonical)
	r.Get("/canonical/prices", h.CanonicalPrices)
	r.Get("/listings/unresolved", h.Unresolved)
	r.Post("/listings/{id}/link", h.Link)
	r.Get("/listings/{id}/prices", h.Prices)
	r.Get("/suggestions", h.Suggestions)
	r.Post("/suggestions/{id}/approve", h.Approve)
	r.Post("/suggestions/{id}/reject", h.Reject)

	return r
}
