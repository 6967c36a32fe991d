package hubservice

import (
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

// Hub events. Command events carry a models.FeedCommand, reading events a
// models.SensorReading and tally events a models.FeedingTally.
const (
	EventFeedCommandSent   = feeds.EventFeedCommandSent
	EventFeedCommandFailed = feeds.EventFeedCommandFailed
	EventReadingAccepted   = "reading.accepted"
	EventTallyUpdated      = "tally.updated"
)

// On registers a callback for hub events. id names the listener.
func (s *FeederService) On(event, id string, handler func(payload any)) {
	s.events.On(event, id, func(args ...interface{}) {
		if len(args) > 0 {
			handler(args[0])
		}
	})
}

// watchChanges forwards accepted readings and tallies to the event emitter
// and to the sink.
func (s *FeederService) watchChanges() {
	s.unwatch = append(s.unwatch,
		s.Manager.Store().Watch(func(_ models.FeedKind, r models.SensorReading) {
			s.events.Emit(EventReadingAccepted, r)
			if s.sink != nil {
				s.sink.offerReading(r)
			}
		}),
		s.Manager.Counter().Watch(func(t models.FeedingTally) {
			s.events.Emit(EventTallyUpdated, t)
			if s.sink != nil {
				s.sink.offerTally(t)
			}
		}),
	)
}
