package hubservice

import (
	"context"
	"sync"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"gopkg.in/tomb.v2"
)

// LiveSession keeps every feed running for one streaming consumer and
// renders an overview after each accepted change.
type LiveSession struct {
	svc     *FeederService
	holds   *consumer
	changed chan struct{}
	frames  chan *models.Overview
	unwatch []func()
	tomb    tomb.Tomb
	once    sync.Once
}

// OpenLive starts a live session. The first frame follows the seeds.
func (s *FeederService) OpenLive() (*LiveSession, error) {
	holds, err := s.acquireAll()
	if err != nil {
		return nil, err
	}

	l := &LiveSession{
		svc:     s,
		holds:   holds,
		changed: make(chan struct{}, 1),
		frames:  make(chan *models.Overview, 1),
	}
	l.unwatch = []func(){
		s.Manager.Store().Watch(func(models.FeedKind, models.SensorReading) { l.poke() }),
		s.Manager.Counter().Watch(func(models.FeedingTally) { l.poke() }),
	}
	l.tomb.Go(l.loop)
	return l, nil
}

// Frames delivers overviews. Only the newest undelivered frame is kept.
func (l *LiveSession) Frames() <-chan *models.Overview {
	return l.frames
}

// Dying is closed once the session is closing.
func (l *LiveSession) Dying() <-chan struct{} {
	return l.tomb.Dying()
}

func (l *LiveSession) poke() {
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

func (l *LiveSession) loop() error {
	ctx := l.tomb.Context(context.Background())
	l.svc.waitSeeded(ctx, l.holds.seeded())
	l.publish()

	for {
		select {
		case <-l.tomb.Dying():
			return nil
		case <-l.changed:
			l.publish()
		}
	}
}

func (l *LiveSession) publish() {
	frame := l.svc.render()
	for {
		select {
		case l.frames <- frame:
			return
		default:
		}
		select {
		case <-l.frames:
		default:
		}
	}
}

// Close releases the session's feeds. It is safe to call more than once.
func (l *LiveSession) Close() {
	l.once.Do(func() {
		for _, cancel := range l.unwatch {
			cancel()
		}
		l.tomb.Kill(nil)
		_ = l.tomb.Wait()
		l.holds.release()
	})
}
