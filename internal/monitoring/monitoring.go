package monitoring

import (
	"net/http"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

// Config holds monitoring configuration
type Config struct {
	Namespace string
}

// Service exposes feed and hub metrics to Prometheus. It implements
// feeds.Observer.
type Service struct {
	config   Config
	registry *prometheus.Registry

	activeFeeds       *prometheus.GaugeVec
	feedStarts        *prometheus.CounterVec
	updates           *prometheus.CounterVec
	queryFailures     *prometheus.CounterVec
	subscribeFailures *prometheus.CounterVec
	events            *prometheus.CounterVec
	lastEvent         *prometheus.GaugeVec
}

var _ feeds.Observer = (*Service)(nil)

// NewService creates a new monitoring service with its own registry.
func NewService(config Config) *Service {
	if config.Namespace == "" {
		config.Namespace = "feeder"
	}
	ns := config.Namespace
	s := &Service{
		config:   config,
		registry: prometheus.NewRegistry(),
		activeFeeds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "feed_active",
			Help:      "Whether a feed is currently running (1) or torn down (0).",
		}, []string{"feed"}),
		feedStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "feed_starts_total",
			Help:      "The number of times a feed was started by its first consumer.",
		}, []string{"feed"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "feed_updates_total",
			Help:      "Updates delivered to a feed, by channel and outcome.",
		}, []string{"feed", "channel", "outcome"}),
		queryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "feed_query_failures_total",
			Help:      "Seed, poll and refresh queries that failed.",
		}, []string{"feed"}),
		subscribeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "feed_subscribe_failures_total",
			Help:      "Push subscription attempts that failed.",
		}, []string{"feed"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_total",
			Help:      "Hub events, such as feed commands.",
		}, []string{"event"}),
		lastEvent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "event_last_timestamp_seconds",
			Help:      "Unix time of the last hub event.",
		}, []string{"event"}),
	}

	s.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		s.activeFeeds,
		s.feedStarts,
		s.updates,
		s.queryFailures,
		s.subscribeFailures,
		s.events,
		s.lastEvent,
	)
	return s
}

// Handler serves the metrics exposition.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.events.WithLabelValues(eventName).Inc()
	s.lastEvent.WithLabelValues(eventName).Set(float64(time.Now().Unix()))
	nuts.L.Debugf("[Monitoring] Event %s recorded with labels: %v", eventName, labels)
}

func (s *Service) FeedStarted(key string) {
	s.activeFeeds.WithLabelValues(key).Set(1)
	s.feedStarts.WithLabelValues(key).Inc()
}

func (s *Service) FeedStopped(key string) {
	s.activeFeeds.WithLabelValues(key).Set(0)
}

func (s *Service) ObserveUpdate(key string, via feeds.Channel, outcome feeds.Outcome) {
	s.updates.WithLabelValues(key, string(via), string(outcome)).Inc()
}

func (s *Service) ObserveQueryFailure(key string) {
	s.queryFailures.WithLabelValues(key).Inc()
}

func (s *Service) ObserveSubscribeFailure(key string) {
	s.subscribeFailures.WithLabelValues(key).Inc()
}
