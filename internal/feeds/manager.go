// Package feeds keeps sensor and feeding state synchronized with the remote
// backend. A feed seeds its value with a point query, then follows a push
// subscription and a poll timer for as long as at least one handle holds it.
package feeds

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/snapshot"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

const (
	DefaultSensorPollInterval  = 8 * time.Second
	DefaultFeedingPollInterval = 5 * time.Second
)

// ErrManagerClosed is returned when acquiring from a closed manager.
var ErrManagerClosed = errors.New("feed manager is closed")

// Options tunes a Manager. Zero values fall back to defaults.
type Options struct {
	Clock               clock.Clock
	SensorPollInterval  time.Duration
	FeedingPollInterval time.Duration
	MotionProfile       MotionProfile
	Location            *time.Location
	ResubscribeMinDelay time.Duration
	ResubscribeMaxDelay time.Duration
	Observer            Observer
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	if o.SensorPollInterval <= 0 {
		o.SensorPollInterval = DefaultSensorPollInterval
	}
	if o.FeedingPollInterval <= 0 {
		o.FeedingPollInterval = DefaultFeedingPollInterval
	}
	if o.MotionProfile == "" {
		o.MotionProfile = MotionLastMotion
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ResubscribeMinDelay <= 0 {
		o.ResubscribeMinDelay = time.Second
	}
	if o.ResubscribeMaxDelay < o.ResubscribeMinDelay {
		o.ResubscribeMaxDelay = 30 * time.Second
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// FeedStatus describes one running feed.
type FeedStatus struct {
	Key   string `json:"key"`
	Refs  int    `json:"refs"`
	State State  `json:"state"`
}

// Manager reference-counts feeds. The first handle of a feed starts it and
// releasing the last one tears it down before Release returns.
type Manager struct {
	svc     remote.DataService
	store   *snapshot.Store
	counter *Counter
	opts    Options

	mu     sync.Mutex
	feeds  map[string]*feed
	closed bool
}

// NewManager creates a manager writing sensor readings into store.
func NewManager(svc remote.DataService, store *snapshot.Store, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		svc:     svc,
		store:   store,
		counter: NewCounter(svc, opts.Clock, opts.Location, opts.Observer),
		opts:    opts,
		feeds:   make(map[string]*feed),
	}
}

func (m *Manager) Store() *snapshot.Store {
	return m.store
}

func (m *Manager) Counter() *Counter {
	return m.counter
}

// AcquireSensor returns a handle on a sensor feed, starting it if needed.
func (m *Manager) AcquireSensor(kind models.FeedKind) (*SensorHandle, error) {
	extractor, err := NewExtractor(kind, m.opts.MotionProfile)
	if err != nil {
		return nil, err
	}
	f, err := m.acquire(&sensorSource{
		extractor: extractor,
		svc:       m.svc,
		store:     m.store,
		observer:  m.opts.Observer,
		interval:  m.opts.SensorPollInterval,
	})
	if err != nil {
		return nil, err
	}
	return newSensorHandle(m, f, kind), nil
}

// AcquireFeedings returns a handle on today's feeding aggregate.
func (m *Manager) AcquireFeedings() (*CounterHandle, error) {
	f, err := m.acquire(&feedingSource{counter: m.counter, interval: m.opts.FeedingPollInterval})
	if err != nil {
		return nil, err
	}
	return newCounterHandle(m, f), nil
}

func (m *Manager) acquire(src source) (*feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}

	f, ok := m.feeds[src.key()]
	if !ok {
		f = newFeed(src, m.svc, m.opts)
		m.feeds[src.key()] = f
		f.start()
	}
	f.refs++
	nuts.L.Debugf("[FeedManager] Acquired %s (%d ref(s))", f.key(), f.refs)
	return f, nil
}

func (m *Manager) release(f *feed) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f.refs--
	nuts.L.Debugf("[FeedManager] Released %s (%d ref(s))", f.key(), f.refs)
	if f.refs > 0 {
		return
	}
	if m.feeds[f.key()] == f {
		delete(m.feeds, f.key())
	}
	f.stop()
}

// Feeds lists the running feeds, sorted by key.
func (m *Manager) Feeds() []FeedStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FeedStatus, 0, len(m.feeds))
	for key, f := range m.feeds {
		out = append(out, FeedStatus{Key: key, Refs: f.refs, State: f.State()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Close tears down every feed. Outstanding handles stay safe to release.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for key, f := range m.feeds {
		f.stop()
		delete(m.feeds, key)
	}
	nuts.L.Infof("[FeedManager] Closed")
	return nil
}
