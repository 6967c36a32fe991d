package feeds

import (
	"context"
	"sync"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

// FeedingsKey identifies the aggregate feed of today's portions.
const FeedingsKey = "feedings:today"

// Counter maintains the portions dispensed in the current local day. Every
// recompute is a full re-query; concurrent recomputes are allowed and the
// last one to finish wins.
type Counter struct {
	svc      remote.DataService
	clock    clock.Clock
	loc      *time.Location
	observer Observer

	mu       sync.Mutex
	tally    models.FeedingTally
	known    bool
	watchers map[uint64]func(models.FeedingTally)
	nextID   uint64
}

// NewCounter creates a counter computing days in loc.
func NewCounter(svc remote.DataService, clk clock.Clock, loc *time.Location, observer Observer) *Counter {
	if loc == nil {
		loc = time.Local
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Counter{
		svc:      svc,
		clock:    clk,
		loc:      loc,
		observer: observer,
		watchers: make(map[uint64]func(models.FeedingTally)),
	}
}

// Tally returns the last computed tally, if any.
func (c *Counter) Tally() (models.FeedingTally, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tally, c.known
}

// Portions returns today's portions, zero before the first computation.
func (c *Counter) Portions() int {
	t, _ := c.Tally()
	return t.Portions
}

// Refresh recomputes outside the poll cadence and returns the count
// afterwards. Failures keep the previous count.
func (c *Counter) Refresh(ctx context.Context) int {
	if err := c.recompute(ctx, ChannelRefresh); err != nil {
		nuts.L.Warnf("[FeedCounter] Refresh failed: %v", err)
	}
	return c.Portions()
}

func (c *Counter) recompute(ctx context.Context, via Channel) error {
	now := c.clock.Now()
	start := models.StartOfDay(now, c.loc)

	rows, err := c.svc.Query(ctx, remote.Query{
		Table:   remote.TableFeedingEvents,
		Columns: []string{remote.ColumnID, remote.ColumnCreatedAt, remote.ColumnPortions},
		Filters: []remote.Filter{remote.Gte(remote.ColumnCreatedAt, start)},
	})
	if err != nil {
		if ctx.Err() == nil {
			c.observer.ObserveQueryFailure(FeedingsKey)
		}
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// The backend filter is not trusted; re-apply the day window.
	events := remote.FeedEventsFromRows(rows)
	tally := models.FeedingTally{
		Portions:   models.SumPortions(events, start, start.AddDate(0, 0, 1)),
		DayStart:   start,
		ComputedAt: now,
	}

	c.mu.Lock()
	changed := !c.known || c.tally.Portions != tally.Portions || !c.tally.DayStart.Equal(tally.DayStart)
	c.tally = tally
	c.known = true
	var watchers []func(models.FeedingTally)
	if changed {
		for _, w := range c.watchers {
			watchers = append(watchers, w)
		}
	}
	c.mu.Unlock()

	c.observer.ObserveUpdate(FeedingsKey, via, OutcomeAccepted)
	nuts.L.Debugf("[FeedCounter] %d portion(s) since %s via %s", tally.Portions, start.Format(time.RFC3339), via)
	for _, w := range watchers {
		w(tally)
	}
	return nil
}

// Watch registers fn for every changed tally and returns its cancel func.
func (c *Counter) Watch(fn func(models.FeedingTally)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
		})
	}
}

// feedingSource drives the counter from a feed.
type feedingSource struct {
	counter  *Counter
	interval time.Duration
}

func (s *feedingSource) key() string { return FeedingsKey }

func (s *feedingSource) spec() remote.ChangeSpec {
	return remote.ChangeSpec{Table: remote.TableFeedingEvents, Event: remote.EventInsert}
}

func (s *feedingSource) pollInterval() time.Duration { return s.interval }

func (s *feedingSource) refresh(ctx context.Context, via Channel) {
	if err := s.counter.recompute(ctx, via); err != nil && ctx.Err() == nil {
		nuts.L.Warnf("[FeedCounter] Recompute via %s failed: %v", via, err)
	}
}

// Any insert triggers a recompute, whatever day it belongs to.
func (s *feedingSource) push(_ remote.Change, async func(func(context.Context))) {
	async(func(ctx context.Context) {
		s.refresh(ctx, ChannelPush)
	})
}
