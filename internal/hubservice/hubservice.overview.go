package hubservice

import (
	"context"
	stderrors "errors"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// consumer holds one handle on every feed the dashboard shows.
type consumer struct {
	sensors []*feeds.SensorHandle
	counter *feeds.CounterHandle
}

func (c *consumer) seeded() []<-chan struct{} {
	out := make([]<-chan struct{}, 0, len(c.sensors)+1)
	for _, h := range c.sensors {
		out = append(out, h.Seeded())
	}
	if c.counter != nil {
		out = append(out, c.counter.Seeded())
	}
	return out
}

func (c *consumer) release() {
	for _, h := range c.sensors {
		h.Release()
	}
	if c.counter != nil {
		c.counter.Release()
	}
}

func (s *FeederService) acquireAll() (*consumer, error) {
	c := &consumer{}
	for _, kind := range models.SensorFeeds {
		h, err := s.Manager.AcquireSensor(kind)
		if err != nil {
			c.release()
			return nil, acquireError(err)
		}
		c.sensors = append(c.sensors, h)
	}
	counter, err := s.Manager.AcquireFeedings()
	if err != nil {
		c.release()
		return nil, acquireError(err)
	}
	c.counter = counter
	return c, nil
}

func acquireError(err error) error {
	if stderrors.Is(err, feeds.ErrManagerClosed) {
		return errors.NewUnavailableError("feeder is shutting down", err)
	}
	return errors.NewInternalError("failed to acquire feed", err)
}

// waitSeeded blocks until every channel is closed, the seed wait elapses or
// ctx ends. Whatever the store holds afterwards is served.
func (s *FeederService) waitSeeded(ctx context.Context, seeded []<-chan struct{}) {
	timeout := s.clock.After(s.seedWait)
	for _, ch := range seeded {
		select {
		case <-ch:
		case <-timeout:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Overview renders every feed, starting the feeds for the duration of the
// call when no other consumer holds them.
func (s *FeederService) Overview(ctx context.Context) (*models.Overview, error) {
	c, err := s.acquireAll()
	if err != nil {
		return nil, err
	}
	defer c.release()

	s.waitSeeded(ctx, c.seeded())
	return s.render(), nil
}

// render builds an overview from the current snapshot without I/O.
func (s *FeederService) render() *models.Overview {
	now := s.clock.Now()
	ov := &models.Overview{
		FeedingsToday: s.Manager.Counter().Portions(),
		GeneratedAt:   now,
	}
	store := s.Manager.Store()
	for _, kind := range models.SensorFeeds {
		r, ok := store.Get(kind)
		if !ok {
			continue
		}
		ov.HasData = true
		view := models.NewSensorView(r, s.calibration, now)
		switch kind {
		case models.FoodLevel:
			ov.FoodLevel = view
		case models.Weight:
			ov.Weight = view
		case models.Motion:
			ov.Motion = view
		}
	}
	return ov
}

// Sensor returns the latest reading of one feed.
func (s *FeederService) Sensor(ctx context.Context, name string) (*models.SensorView, error) {
	kind, err := models.ParseFeedKind(name)
	if err != nil {
		return nil, errors.NewValidationError("unknown sensor feed", err)
	}

	h, err := s.Manager.AcquireSensor(kind)
	if err != nil {
		return nil, acquireError(err)
	}
	defer h.Release()

	s.waitSeeded(ctx, []<-chan struct{}{h.Seeded()})
	r, ok := h.Latest()
	if !ok {
		return nil, errors.NewNotFoundError("no reading yet for "+string(kind), nil)
	}
	return models.NewSensorView(r, s.calibration, s.clock.Now()), nil
}

// Today returns today's feeding tally.
func (s *FeederService) Today(ctx context.Context) (models.FeedingTally, error) {
	h, err := s.Manager.AcquireFeedings()
	if err != nil {
		return models.FeedingTally{}, acquireError(err)
	}
	defer h.Release()

	s.waitSeeded(ctx, []<-chan struct{}{h.Seeded()})
	tally, _ := h.Latest()
	return tally, nil
}

// RefreshToday recomputes today's tally outside the poll cadence.
func (s *FeederService) RefreshToday(ctx context.Context) (models.FeedingTally, error) {
	h, err := s.Manager.AcquireFeedings()
	if err != nil {
		return models.FeedingTally{}, acquireError(err)
	}
	defer h.Release()

	h.Refresh(ctx)
	tally, _ := h.Latest()
	return tally, nil
}
