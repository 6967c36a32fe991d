package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/juju/clock/testclock"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
)

var testNow = time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)

func TestReadingPoint(t *testing.T) {
	c := qt.New(t)
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	line := write.PointToLineProtocol(readingPoint(models.NewReading(models.Weight, 250, at), testNow), time.Second)
	c.Assert(line, qt.Contains, "sensor_reading,feed=weight ")
	c.Assert(line, qt.Contains, "value=250")
	c.Assert(line, qt.Contains, "present=true")
	c.Assert(strings.TrimSpace(line), qt.Matches, `.* 1714644000$`)

	line = write.PointToLineProtocol(readingPoint(models.SensorReading{Feed: models.Motion}, testNow), time.Second)
	c.Assert(line, qt.Not(qt.Contains), "value=")
	c.Assert(strings.TrimSpace(line), qt.Matches, `.* 1714662000$`)
}

func TestTallyPoint(t *testing.T) {
	c := qt.New(t)
	tally := models.FeedingTally{Portions: 3, DayStart: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}

	line := write.PointToLineProtocol(tallyPoint(tally, testNow), time.Second)
	c.Assert(line, qt.Contains, "feedings_today,day=2024-05-02 portions=3i")
}

func TestRecorderWritesLineProtocol(t *testing.T) {
	c := qt.New(t)

	var (
		mu     sync.Mutex
		bodies []string
		params []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		params = append(params, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := NewRecorder(config.InfluxConfig{URL: srv.URL, Token: "t", Org: "home", Bucket: "feeder"}, testclock.NewClock(testNow))
	defer rec.Close()

	err := rec.RecordReading(context.Background(), models.NewReading(models.FoodLevel, 7.5, testNow))
	c.Assert(err, qt.IsNil)

	mu.Lock()
	defer mu.Unlock()
	c.Assert(bodies, qt.HasLen, 1)
	c.Assert(bodies[0], qt.Contains, "sensor_reading,feed=food_level")
	c.Assert(bodies[0], qt.Contains, "value=7.5")
	c.Assert(params[0], qt.Contains, "/api/v2/write")
	c.Assert(params[0], qt.Contains, "bucket=feeder")
	c.Assert(params[0], qt.Contains, "org=home")
}
