// FilePath: internal/repository/influx/influx.recorder.go
package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

const (
	measurementReading = "sensor_reading"
	measurementTally   = "feedings_today"
)

// Recorder writes every accepted reading into an InfluxDB bucket.
type Recorder struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	clock  clock.Clock
}

func NewRecorder(cfg config.InfluxConfig, clk clock.Clock) *Recorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	nuts.L.Infof("[InfluxRecorder] Recording readings to %s (org %s, bucket %s)", cfg.URL, cfg.Org, cfg.Bucket)
	return &Recorder{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		clock:  clk,
	}
}

// Health checks that the server is reachable and passing.
func (r *Recorder) Health(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx health check failed: %s", msg)
	}
	return nil
}

func (r *Recorder) RecordReading(ctx context.Context, reading models.SensorReading) error {
	if err := r.writer.WritePoint(ctx, readingPoint(reading, r.clock.Now())); err != nil {
		return fmt.Errorf("record %s reading: %w", reading.Feed, err)
	}
	return nil
}

func (r *Recorder) RecordTally(ctx context.Context, tally models.FeedingTally) error {
	if err := r.writer.WritePoint(ctx, tallyPoint(tally, r.clock.Now())); err != nil {
		return fmt.Errorf("record feeding tally: %w", err)
	}
	return nil
}

func (r *Recorder) Close() {
	r.client.Close()
}

// readingPoint stamps the point with the sensor's own time, falling back to
// now for readings without one.
func readingPoint(reading models.SensorReading, now time.Time) *write.Point {
	at := reading.ObservedAt
	if at.IsZero() {
		at = now
	}
	fields := map[string]interface{}{"present": true}
	if reading.Value != nil {
		fields["value"] = *reading.Value
	}
	return influxdb2.NewPoint(
		measurementReading,
		map[string]string{"feed": string(reading.Feed)},
		fields,
		at,
	)
}

func tallyPoint(tally models.FeedingTally, now time.Time) *write.Point {
	at := tally.ComputedAt
	if at.IsZero() {
		at = now
	}
	return influxdb2.NewPoint(
		measurementTally,
		map[string]string{"day": tally.DayStart.Format(time.DateOnly)},
		map[string]interface{}{"portions": tally.Portions},
		at,
	)
}
