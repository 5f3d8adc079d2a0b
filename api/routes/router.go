package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/eventtix-backend/api/controllers"
	"github.com/angelmondragon/eventtix-backend/api/middleware"
	"github.com/angelmondragon/eventtix-backend/pkg/config"
	"github.com/angelmondragon/eventtix-backend/pkg/db"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
)

type OpsParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	// Dependencies are pinged by /readyz, keyed by the name reported on
	// failure.
	Dependencies map[string]db.Pinger
}

// NewOpsRouter serves the probe and scrape endpoints every worker exposes on
// its ops port.
func NewOpsRouter(params OpsParams) http.Handler {
	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)
	r.Get("/healthz", controllers.HealthLive(params.Config))
	r.Get("/readyz", controllers.HealthReady(params.Config, params.Logger, params.Dependencies))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
