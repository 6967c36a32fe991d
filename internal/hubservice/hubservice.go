package hubservice

import (
	"sync"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

// DefaultSeedWait bounds how long a request waits for fresh feeds to seed.
const DefaultSeedWait = 2 * time.Second

// Deps are the collaborators of a FeederService. Mirror and Recorder are
// optional.
type Deps struct {
	Remote      remote.DataService
	Manager     *feeds.Manager
	Feedings    repository.FeedingRepository
	DailyLogs   repository.DailyLogRepository
	Readings    repository.ReadingRepository
	Mirror      repository.SnapshotMirror
	Recorder    repository.ReadingRecorder
	Calibration models.FoodCalibration
	SeedWait    time.Duration
	Clock       clock.Clock
}

// FeederService contains all repositories and service-wide dependencies
type FeederService struct {
	Remote    remote.DataService
	Manager   *feeds.Manager
	Trigger   *feeds.Trigger
	Feedings  repository.FeedingRepository
	DailyLogs repository.DailyLogRepository
	Readings  repository.ReadingRepository
	Mirror    repository.SnapshotMirror
	Recorder  repository.ReadingRecorder

	calibration models.FoodCalibration
	seedWait    time.Duration
	clock       clock.Clock
	events      *nuts.EventEmitter
	sink        *sink
	unwatch     []func()
	closeOnce   sync.Once
	closeErr    error
}

// New creates a new FeederService instance
func New(d Deps) *FeederService {
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}
	if d.SeedWait <= 0 {
		d.SeedWait = DefaultSeedWait
	}

	events := nuts.NewEventEmitter()
	svc := &FeederService{
		Remote:      d.Remote,
		Manager:     d.Manager,
		Trigger:     feeds.NewTrigger(d.Remote, events),
		Feedings:    d.Feedings,
		DailyLogs:   d.DailyLogs,
		Readings:    d.Readings,
		Mirror:      d.Mirror,
		Recorder:    d.Recorder,
		calibration: d.Calibration,
		seedWait:    d.SeedWait,
		clock:       d.Clock,
		events:      events,
	}
	if d.Mirror != nil || d.Recorder != nil {
		svc.sink = newSink(d.Mirror, d.Recorder)
	}
	if d.Manager != nil {
		svc.watchChanges()
	}
	return svc
}

// Validate checks if all required repositories are initialized
func (s *FeederService) Validate() error {
	if s.Remote == nil {
		return ErrMissingRepository("remote")
	}
	if s.Manager == nil {
		return ErrMissingRepository("manager")
	}
	if s.Feedings == nil {
		return ErrMissingRepository("feedings")
	}
	if s.DailyLogs == nil {
		return ErrMissingRepository("dailyLogs")
	}
	if s.Readings == nil {
		return ErrMissingRepository("readings")
	}
	return nil
}

// Feeds lists the running feeds.
func (s *FeederService) Feeds() []feeds.FeedStatus {
	return s.Manager.Feeds()
}

// Close tears down every feed, drains the sink and closes the backends.
func (s *FeederService) Close() error {
	s.closeOnce.Do(func() {
		for _, cancel := range s.unwatch {
			cancel()
		}
		keep := func(err error) {
			if err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		keep(s.Manager.Close())
		if s.sink != nil {
			s.sink.close()
		}
		if s.Mirror != nil {
			keep(s.Mirror.Close())
		}
		if s.Recorder != nil {
			s.Recorder.Close()
		}
		keep(s.Remote.Close())
		nuts.L.Infof("[FeederService] Closed")
	})
	return s.closeErr
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
