package hubservice

import (
	"context"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
	nuts "github.com/vaudience/go-nuts"
	"gopkg.in/tomb.v2"
)

const (
	sinkBacklog      = 64
	sinkWriteTimeout = 5 * time.Second
)

type sinkItem struct {
	reading *models.SensorReading
	tally   *models.FeedingTally
}

// sink copies accepted changes to the mirror and the recorder off the feed
// goroutines. When the backlog is full new items are dropped.
type sink struct {
	mirror   repository.SnapshotMirror
	recorder repository.ReadingRecorder
	items    chan sinkItem
	tomb     tomb.Tomb
}

func newSink(mirror repository.SnapshotMirror, recorder repository.ReadingRecorder) *sink {
	s := &sink{
		mirror:   mirror,
		recorder: recorder,
		items:    make(chan sinkItem, sinkBacklog),
	}
	s.tomb.Go(s.loop)
	return s
}

func (s *sink) offerReading(r models.SensorReading) {
	s.offer(sinkItem{reading: &r})
}

func (s *sink) offerTally(t models.FeedingTally) {
	s.offer(sinkItem{tally: &t})
}

func (s *sink) offer(item sinkItem) {
	select {
	case <-s.tomb.Dying():
		return
	default:
	}
	select {
	case s.items <- item:
	default:
		nuts.L.Warnf("[FeederService] Sink backlog full, dropping update")
	}
}

func (s *sink) loop() error {
	ctx := s.tomb.Context(context.Background())
	for {
		select {
		case <-s.tomb.Dying():
			return nil
		case item := <-s.items:
			s.write(ctx, item)
		}
	}
}

func (s *sink) write(parent context.Context, item sinkItem) {
	ctx, cancel := context.WithTimeout(parent, sinkWriteTimeout)
	defer cancel()

	switch {
	case item.reading != nil:
		if s.mirror != nil {
			if err := s.mirror.MirrorReading(ctx, *item.reading); err != nil {
				nuts.L.Warnf("[FeederService] Mirroring %s reading failed: %v", item.reading.Feed, err)
			}
		}
		if s.recorder != nil {
			if err := s.recorder.RecordReading(ctx, *item.reading); err != nil {
				nuts.L.Warnf("[FeederService] Recording %s reading failed: %v", item.reading.Feed, err)
			}
		}
	case item.tally != nil:
		if s.mirror != nil {
			if err := s.mirror.MirrorTally(ctx, *item.tally); err != nil {
				nuts.L.Warnf("[FeederService] Mirroring feeding tally failed: %v", err)
			}
		}
		if s.recorder != nil {
			if err := s.recorder.RecordTally(ctx, *item.tally); err != nil {
				nuts.L.Warnf("[FeederService] Recording feeding tally failed: %v", err)
			}
		}
	}
}

func (s *sink) close() {
	s.tomb.Kill(nil)
	_ = s.tomb.Wait()
}
