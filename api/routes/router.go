package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marlink/accountant/api/controllers"
	"github.com/marlink/accountant/api/middleware"
	"github.com/marlink/accountant/api/responses"
	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/config"
	"github.com/marlink/accountant/pkg/db"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
	"github.com/marlink/accountant/pkg/logger"
	"github.com/marlink/accountant/pkg/metrics"
	"github.com/marlink/accountant/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger db.Pinger,
	redisPinger redis.Pinger,
	submissionsService submissions.Service,
	processor controllers.BatchRunner,
	batchMetrics *metrics.BatchJobMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Service.CORSOrigins),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w,
			pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs/ksef-batch", func(r chi.Router) {
			r.Get("/", controllers.KsefStatus(cfg, logg))
			r.Post("/", controllers.KsefRun(cfg, logg, processor, batchMetrics))
		})
		r.Route("/invoices/{invoiceID}/ksef", func(r chi.Router) {
			r.Get("/", controllers.InvoiceKsefStatus(submissionsService, logg))
			r.Post("/send", controllers.InvoiceKsefSend(submissionsService, logg))
		})
	})

	return r
}
