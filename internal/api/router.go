package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/api/handler"
	apimw "github.com/notifyhub/supplytrack/internal/api/middleware"
	"github.com/notifyhub/supplytrack/internal/service"
)

// Options carries the router's optional collaborators.
type Options struct {
	CronSecret string
	Ready      map[string]handler.Pinger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.TrackingService,
	reg prometheus.Gatherer,
	opts Options,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(4 << 20)) // import and classify bodies carry whole record sets
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	eh := handler.NewEntityHandler(svc, logger)
	ch := handler.NewClassifyHandler(svc, logger)
	bh := handler.NewBatchHandler(svc, logger)
	ct := handler.NewCronHandler(svc, logger)
	hh := handler.NewHealthHandler(opts.Ready)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// /import must be registered before /{kind} routes.
		r.Post("/entities/import", eh.Import)
		r.Get("/entities/{kind}", eh.List)
		r.Get("/entities/{kind}/{id}", eh.Get)
		r.Get("/entities/{kind}/{id}/email-history", eh.EmailHistory)

		r.Post("/classify", ch.Classify)
		r.Post("/notifications/batch", bh.Send)

		r.With(apimw.CronAuth(opts.CronSecret)).Post("/cron/overdue", ct.Overdue)
	})

	return r
}
