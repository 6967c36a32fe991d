package api

import (
	"net/http"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/api/middleware"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/api/resources"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/docs"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/gorilla/mux"
)

// Options configures the router. Auth is skipped when AuthEnabled is false.
type Options struct {
	Keycloak       middleware.KeycloakConfig
	AuthEnabled    bool
	FeedRoles      []string
	AllowedOrigins []string
	MetricsPath    string
	HealthCheck    http.HandlerFunc
	Metrics        http.Handler
}

type Router struct {
	router    *mux.Router
	auth      *middleware.KeycloakMiddleware
	resources *resources.Resources
	opts      Options
}

func NewRouter(svc *hubservice.FeederService, opts Options) *Router {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc, opts.AllowedOrigins),
		opts:      opts,
	}
	if opts.AuthEnabled {
		r.auth = middleware.NewKeycloakMiddleware(opts.Keycloak)
	}
	if opts.HealthCheck != nil {
		r.resources.SetHealthCheck(opts.HealthCheck)
	}
	if opts.Metrics != nil {
		r.resources.SetMetrics(opts.Metrics.ServeHTTP)
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	if r.resources.Metrics != nil {
		r.router.HandleFunc(r.opts.MetricsPath, r.resources.Metrics).Methods(http.MethodGet)
	}

	// API version prefix
	api := r.router.PathPrefix("/v1").Subrouter()

	// Public routes
	if r.resources.HealthCheck != nil {
		api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	}
	api.HandleFunc("/swagger.json", docs.Handler).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	if r.auth != nil {
		protected.Use(r.auth.Authenticate)
	}

	protected.HandleFunc("/overview", r.resources.Sensors.GetOverview).Methods(http.MethodGet)
	protected.HandleFunc("/live", r.resources.Live.Stream).Methods(http.MethodGet)

	// Sensors
	sensors := protected.PathPrefix("/sensors").Subrouter()
	sensors.HandleFunc("/{feed}", r.resources.Sensors.GetSensor).Methods(http.MethodGet)
	sensors.HandleFunc("/{feed}/history", r.resources.Sensors.GetSensorHistory).Methods(http.MethodGet)
	protected.HandleFunc("/logs/{sensor}", r.resources.Sensors.ListDailyLogs).Methods(http.MethodGet)

	// Feedings
	feedings := protected.PathPrefix("/feedings").Subrouter()
	feedings.HandleFunc("", r.resources.Feedings.ListFeedings).Methods(http.MethodGet)
	feedings.HandleFunc("/today", r.resources.Feedings.GetToday).Methods(http.MethodGet)
	feedings.HandleFunc("/today/refresh", r.resources.Feedings.RefreshToday).Methods(http.MethodPost)

	var feed http.Handler = http.HandlerFunc(r.resources.Feedings.Feed)
	if r.auth != nil {
		feed = r.auth.RequireRoles(r.opts.FeedRoles)(feed)
	}
	protected.Handle("/feed", feed).Methods(http.MethodPost)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
