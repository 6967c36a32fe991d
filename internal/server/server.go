// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/api"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/api/middleware"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/monitoring"
	"github.com/gorilla/handlers"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	clock      clock.Clock
	srv        *http.Server
	hubservice *hubservice.FeederService
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		clock:  clock.WallClock,
		srv:    srv,
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	s.monitoring = monitoring.NewService(monitoring.Config{
		Namespace: s.config.Monitoring.Namespace,
	})

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	svc, err := initializeFeederService(ctx, s.config, s.clock, s.monitoring)
	cancel()
	if err != nil {
		return fmt.Errorf("error initializing feeder service: %w", err)
	}
	s.hubservice = svc

	s.setupEventHandlers()
	s.srv.Handler = s.setupRoutes()

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if err := s.hubservice.Close(); err != nil {
		nuts.L.Warnf("[Server] Closing feeder service: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// setupRoutes builds the API router and wraps it in recovery, access
// logging and CORS.
func (s *Server) setupRoutes() http.Handler {
	kc := s.config.Keycloak
	router := api.NewRouter(s.hubservice, api.Options{
		Keycloak: middleware.KeycloakConfig{
			URL:          kc.URL,
			Realm:        kc.Realm,
			ClientID:     kc.ClientID,
			ClientSecret: kc.ClientSecret,
		},
		AuthEnabled:    kc.Enabled(),
		FeedRoles:      kc.FeedRoles,
		AllowedOrigins: s.config.Server.AllowedOrigins,
		MetricsPath:    s.config.Monitoring.MetricsPath,
		HealthCheck:    s.handleHealth(),
		Metrics:        s.monitoring.Handler(),
	})
	if !kc.Enabled() {
		nuts.L.Warnf("[Server] Keycloak is not configured, API routes are unauthenticated")
	}

	var h http.Handler = router
	h = handlers.CombinedLoggingHandler(accessLog{}, h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(accessLog{}), handlers.PrintRecoveryStack(true))(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	return h
}

// accessLog routes gorilla/handlers output into the nuts logger.
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	nuts.L.Debugf("[HTTP] %s", trimNewline(p))
	return len(p), nil
}

func (accessLog) Println(v ...interface{}) {
	nuts.L.Errorf("[HTTP] %s", fmt.Sprint(v...))
}

func trimNewline(p []byte) string {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	return string(p)
}

type healthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Feeds   interface{} `json:"feeds"`
}

// handleHealth reports liveness, the build version and the running feeds
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(healthResponse{
			Status:  "ok",
			Version: nuts.GetVersion(),
			Feeds:   s.hubservice.Feeds(),
		})
	}
}

func (s *Server) setupEventHandlers() {
	s.hubservice.On(hubservice.EventFeedCommandSent, "monitoring", func(payload any) {
		cmd, _ := payload.(models.FeedCommand)
		s.monitoring.RecordEvent("feed_command_sent", map[string]string{
			"portions": strconv.Itoa(cmd.Portions),
		})
	})

	s.hubservice.On(hubservice.EventFeedCommandFailed, "monitoring", func(payload any) {
		cmd, _ := payload.(models.FeedCommand)
		s.monitoring.RecordEvent("feed_command_failed", map[string]string{
			"portions": strconv.Itoa(cmd.Portions),
		})
	})

	s.hubservice.On(hubservice.EventTallyUpdated, "monitoring", func(payload any) {
		if tally, ok := payload.(models.FeedingTally); ok {
			nuts.L.Infof("[Server] %d portion(s) dispensed today", tally.Portions)
		}
	})
}
