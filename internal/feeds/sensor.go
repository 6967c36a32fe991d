package feeds

import (
	"context"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/snapshot"
	nuts "github.com/vaudience/go-nuts"
)

// SensorKey returns the feed key of a sensor feed.
func SensorKey(kind models.FeedKind) string {
	return "sensor:" + string(kind)
}

// sensorSource keeps one sensor_states row mirrored into the store.
type sensorSource struct {
	extractor Extractor
	svc       remote.DataService
	store     *snapshot.Store
	observer  Observer
	interval  time.Duration
}

func (s *sensorSource) key() string { return SensorKey(s.extractor.Feed()) }

func (s *sensorSource) filter() remote.Filter {
	return remote.Eq(remote.ColumnSensor, string(s.extractor.Feed()))
}

func (s *sensorSource) spec() remote.ChangeSpec {
	f := s.filter()
	return remote.ChangeSpec{Table: remote.TableSensorStates, Event: remote.EventUpdate, Filter: &f}
}

func (s *sensorSource) pollInterval() time.Duration { return s.interval }

func (s *sensorSource) refresh(ctx context.Context, via Channel) {
	rows, err := s.svc.Query(ctx, remote.Query{
		Table:   remote.TableSensorStates,
		Columns: s.extractor.Columns(),
		Filters: []remote.Filter{s.filter()},
		Limit:   1,
	})
	if ctx.Err() != nil {
		// Torn down while in flight.
		return
	}
	if err != nil {
		s.observer.ObserveQueryFailure(s.key())
		nuts.L.Warnf("[SensorFeed] %s query via %s failed: %v", s.key(), via, err)
		return
	}
	if len(rows) == 0 {
		s.observer.ObserveUpdate(s.key(), via, OutcomeEmpty)
		return
	}
	s.apply(rows[0], via)
}

func (s *sensorSource) push(c remote.Change, _ func(func(context.Context))) {
	s.apply(c.Record, ChannelPush)
}

func (s *sensorSource) apply(row remote.Row, via Channel) {
	reading, ok := s.extractor.Extract(row)
	if !ok {
		s.observer.ObserveUpdate(s.key(), via, OutcomeEmpty)
		return
	}
	outcome := OutcomeRejected
	if s.store.Set(reading.Feed, reading) {
		outcome = OutcomeAccepted
	}
	s.observer.ObserveUpdate(s.key(), via, outcome)
	nuts.L.Debugf("[SensorFeed] %s via %s: %s", s.key(), via, outcome)
}
