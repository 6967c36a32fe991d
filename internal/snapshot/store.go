// FilePath: internal/snapshot/store.go
package snapshot

import (
	"sync"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// Policy decides whether an incoming reading may replace the stored one.
type Policy int

const (
	// LastDelivered lets whichever update is processed last win, without
	// looking at observation times.
	LastDelivered Policy = iota
	// RejectStale refuses a reading observed strictly before the stored one.
	// Readings without a timestamp are always accepted.
	RejectStale
)

func (p Policy) String() string {
	if p == RejectStale {
		return "reject_stale"
	}
	return "last_delivered"
}

// Accepts applies the policy to a stored and an incoming reading.
func (p Policy) Accepts(current, incoming models.SensorReading) bool {
	if p != RejectStale {
		return true
	}
	if current.ObservedAt.IsZero() || incoming.ObservedAt.IsZero() {
		return true
	}
	return !incoming.ObservedAt.Before(current.ObservedAt)
}

// WatchFunc observes accepted changes.
type WatchFunc func(feed models.FeedKind, reading models.SensorReading)

// Store keeps the latest reading per feed. Reads never block on I/O.
type Store struct {
	mu       sync.RWMutex
	policy   Policy
	readings map[models.FeedKind]models.SensorReading
	watchers map[uint64]WatchFunc
	nextID   uint64
}

// NewStore creates an empty store using policy.
func NewStore(policy Policy) *Store {
	return &Store{
		policy:   policy,
		readings: make(map[models.FeedKind]models.SensorReading),
		watchers: make(map[uint64]WatchFunc),
	}
}

// Policy returns the reconciliation policy in use.
func (s *Store) Policy() Policy {
	return s.policy
}

// Get returns the latest reading for feed, if any.
func (s *Store) Get(feed models.FeedKind) (models.SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[feed]
	return r, ok
}

// Set stores reading for feed when the policy accepts it. Watchers run
// after the lock is released, and only when the stored value changed.
func (s *Store) Set(feed models.FeedKind, reading models.SensorReading) bool {
	reading.Feed = feed

	s.mu.Lock()
	current, exists := s.readings[feed]
	if exists && !s.policy.Accepts(current, reading) {
		s.mu.Unlock()
		return false
	}
	s.readings[feed] = reading
	changed := !exists || !current.Equal(reading)
	var watchers []WatchFunc
	if changed {
		watchers = make([]WatchFunc, 0, len(s.watchers))
		for _, w := range s.watchers {
			watchers = append(watchers, w)
		}
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(feed, reading)
	}
	return true
}

// Watch registers fn for every accepted change and returns its cancel func.
func (s *Store) Watch(fn WatchFunc) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot copies every stored reading.
func (s *Store) Snapshot() map[models.FeedKind]models.SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.FeedKind]models.SensorReading, len(s.readings))
	for k, v := range s.readings {
		out[k] = v
	}
	return out
}
