package feeds

import (
	"context"
	"sync"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// offer replaces whatever ch holds with v. ch must have capacity one.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// SensorHandle is one consumer's interest in a sensor feed.
type SensorHandle struct {
	kind    models.FeedKind
	manager *Manager
	feed    *feed
	updates chan models.SensorReading
	cancel  func()
	once    sync.Once
}

func newSensorHandle(m *Manager, f *feed, kind models.FeedKind) *SensorHandle {
	h := &SensorHandle{
		kind:    kind,
		manager: m,
		feed:    f,
		updates: make(chan models.SensorReading, 1),
	}
	h.cancel = m.store.Watch(func(feed models.FeedKind, r models.SensorReading) {
		if feed == kind {
			offer(h.updates, r)
		}
	})
	return h
}

func (h *SensorHandle) Feed() models.FeedKind {
	return h.kind
}

// Latest returns the current reading without I/O.
func (h *SensorHandle) Latest() (models.SensorReading, bool) {
	return h.manager.store.Get(h.kind)
}

// Updates delivers accepted changes. Only the newest undelivered reading is
// kept.
func (h *SensorHandle) Updates() <-chan models.SensorReading {
	return h.updates
}

// Seeded is closed once the seed query finished, whatever its outcome.
func (h *SensorHandle) Seeded() <-chan struct{} {
	return h.feed.seeded
}

// Release drops this handle's interest. Calling it again does nothing.
func (h *SensorHandle) Release() {
	h.once.Do(func() {
		h.cancel()
		h.manager.release(h.feed)
	})
}

// CounterHandle is one consumer's interest in today's feeding aggregate.
type CounterHandle struct {
	manager *Manager
	feed    *feed
	updates chan models.FeedingTally
	cancel  func()
	once    sync.Once
}

func newCounterHandle(m *Manager, f *feed) *CounterHandle {
	h := &CounterHandle{
		manager: m,
		feed:    f,
		updates: make(chan models.FeedingTally, 1),
	}
	h.cancel = m.counter.Watch(func(t models.FeedingTally) {
		offer(h.updates, t)
	})
	return h
}

// Latest returns the last computed tally.
func (h *CounterHandle) Latest() (models.FeedingTally, bool) {
	return h.manager.counter.Tally()
}

func (h *CounterHandle) Portions() int {
	return h.manager.counter.Portions()
}

func (h *CounterHandle) Updates() <-chan models.FeedingTally {
	return h.updates
}

func (h *CounterHandle) Seeded() <-chan struct{} {
	return h.feed.seeded
}

// Refresh forces a recompute and returns today's portions.
func (h *CounterHandle) Refresh(ctx context.Context) int {
	return h.manager.counter.Refresh(ctx)
}

func (h *CounterHandle) Release() {
	h.once.Do(func() {
		h.cancel()
		h.manager.release(h.feed)
	})
}
