package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/monitoring"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote/remotetest"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository/backend"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/snapshot"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Sync: config.SyncConfig{
			SensorPollInterval:  8 * time.Second,
			FeedingPollInterval: 5 * time.Second,
			MotionProfile:       config.MotionProfileLastMotion,
			Timezone:            "UTC",
		},
		Monitoring: config.MonitoringConfig{MetricsPath: "/metrics", Namespace: "feeder"},
	}
}

func newTestServer() (*Server, *remotetest.Service) {
	cfg := testConfig()
	clk := testclock.NewClock(time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC))
	rs := remotetest.New()

	s := New(cfg)
	s.clock = clk
	s.monitoring = monitoring.NewService(monitoring.Config{Namespace: cfg.Monitoring.Namespace})
	s.hubservice = hubservice.New(hubservice.Deps{
		Remote: rs,
		Manager: feeds.NewManager(rs, snapshot.NewStore(snapshot.RejectStale), feeds.Options{
			Clock:    clk,
			Location: time.UTC,
			Observer: s.monitoring,
		}),
		Feedings:  backend.NewFeedingRepository(rs),
		DailyLogs: backend.NewDailyLogRepository(rs),
		Readings:  backend.NewReadingRepository(rs),
		Clock:     clk,
	})
	s.setupEventHandlers()
	s.srv.Handler = s.setupRoutes()
	return s, rs
}

func TestStorePolicy(t *testing.T) {
	c := qt.New(t)
	c.Assert(storePolicy(config.SyncConfig{RejectStaleReadings: true}), qt.Equals, snapshot.RejectStale)
	c.Assert(storePolicy(config.SyncConfig{}), qt.Equals, snapshot.LastDelivered)
}

func TestFeedOptions(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig().Sync
	cfg.MotionProfile = config.MotionProfileUpdatedAtFallback
	cfg.Timezone = "Europe/Berlin"

	opts, err := feedOptions(cfg, testclock.NewClock(time.Time{}), feeds.NopObserver{})
	c.Assert(err, qt.IsNil)
	c.Assert(opts.MotionProfile, qt.Equals, feeds.MotionUpdatedAtFallback)
	c.Assert(opts.Location.String(), qt.Equals, "Europe/Berlin")
	c.Assert(opts.SensorPollInterval, qt.Equals, 8*time.Second)

	cfg.MotionProfile = "psychic"
	_, err = feedOptions(cfg, nil, nil)
	c.Assert(err, qt.ErrorMatches, `unknown motion profile "psychic"`)
}

func TestInitRemoteRejectsUnknownDriver(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.Backend.Driver = "mongo"
	_, err := initRemote(context.Background(), cfg, nil)
	c.Assert(err, qt.ErrorMatches, `unknown backend driver "mongo"`)
}

func TestHealthAndCORS(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer()
	defer s.hubservice.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Header().Get("Access-Control-Allow-Origin"), qt.Not(qt.Equals), "")

	var health map[string]any
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &health), qt.IsNil)
	c.Assert(health["status"], qt.Equals, "ok")
	c.Assert(health["feeds"], qt.HasLen, 0)
}

func TestFeedCommandsAreCounted(t *testing.T) {
	c := qt.New(t)
	s, _ := newTestServer()
	defer s.hubservice.Close()

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/feed", strings.NewReader(`{"portions":2}`)))
	c.Assert(rec.Code, qt.Equals, http.StatusAccepted)

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if strings.Contains(rec.Body.String(), `feeder_events_total{event="feed_command_sent"} 1`) {
			break
		}
		c.Assert(time.Now().Before(deadline), qt.IsTrue, qt.Commentf("feed command not counted"))
		time.Sleep(5 * time.Millisecond)
	}
}
