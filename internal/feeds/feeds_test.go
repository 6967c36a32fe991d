package feeds

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	nuts "github.com/vaudience/go-nuts"
	"go.uber.org/goleak"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/errors"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote/remotetest"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/snapshot"
)

var (
	errBackend = stderrors.New("backend down")
	testNow    = time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
)

type recordingObserver struct {
	mu                sync.Mutex
	started           map[string]int
	stopped           map[string]int
	outcomes          map[string][]Outcome
	queryFailures     map[string]int
	subscribeFailures map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		started:           make(map[string]int),
		stopped:           make(map[string]int),
		outcomes:          make(map[string][]Outcome),
		queryFailures:     make(map[string]int),
		subscribeFailures: make(map[string]int),
	}
}

func (o *recordingObserver) FeedStarted(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started[key]++
}

func (o *recordingObserver) FeedStopped(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped[key]++
}

func (o *recordingObserver) ObserveUpdate(key string, _ Channel, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[key] = append(o.outcomes[key], outcome)
}

func (o *recordingObserver) ObserveQueryFailure(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queryFailures[key]++
}

func (o *recordingObserver) ObserveSubscribeFailure(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribeFailures[key]++
}

func (o *recordingObserver) count(m map[string]int, key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return m[key]
}

func (o *recordingObserver) outcomesOf(key string) []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.outcomes[key]...)
}

type fixture struct {
	svc   *remotetest.Service
	clock *testclock.Clock
	obs   *recordingObserver
	m     *Manager
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		svc:   remotetest.New(),
		clock: testclock.NewClock(testNow),
		obs:   newRecordingObserver(),
	}
	opts.Clock = f.clock
	opts.Observer = f.obs
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	f.m = NewManager(f.svc, snapshot.NewStore(snapshot.RejectStale), opts)
	return f
}

func stateRow(sensor string, fields remote.Row) remote.Row {
	row := remote.Row{remote.ColumnSensor: sensor}
	for k, v := range fields {
		row[k] = v
	}
	return row
}

func waitFor(c *qt.C, what string, cond func() bool) {
	c.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitClosed(c *qt.C, ch <-chan struct{}) {
	c.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		c.Fatal("channel not closed")
	}
}

func TestFoodLevelExtractorNullSafety(t *testing.T) {
	c := qt.New(t)
	e, err := NewExtractor(models.FoodLevel, MotionLastMotion)
	c.Assert(err, qt.IsNil)

	_, ok := e.Extract(remote.Row{"distance_cm": nil, "updated_at": "2024-01-01T00:00:00Z"})
	c.Assert(ok, qt.IsFalse)

	r, ok := e.Extract(remote.Row{"distance_cm": 12, "updated_at": "2024-01-01T00:00:00Z"})
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.Feed, qt.Equals, models.FoodLevel)
	c.Assert(*r.Value, qt.Equals, 12.0)
	c.Assert(r.ObservedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), qt.IsTrue)
}

func TestWeightExtractorWithoutTimestamp(t *testing.T) {
	c := qt.New(t)
	e, err := NewExtractor(models.Weight, "")
	c.Assert(err, qt.IsNil)

	r, ok := e.Extract(remote.Row{"weight_grams": "250.5"})
	c.Assert(ok, qt.IsTrue)
	c.Assert(*r.Value, qt.Equals, 250.5)
	c.Assert(r.ObservedAt.IsZero(), qt.IsTrue)

	_, ok = e.Extract(remote.Row{"distance_cm": 3})
	c.Assert(ok, qt.IsFalse)
	_, ok = e.Extract(nil)
	c.Assert(ok, qt.IsFalse)
}

func TestMotionProfiles(t *testing.T) {
	c := qt.New(t)
	lastMotion, _ := NewExtractor(models.Motion, MotionLastMotion)
	fallback, _ := NewExtractor(models.Motion, MotionUpdatedAtFallback)

	detected := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	withDetection := remote.Row{"last_motion_at": detected.Format(time.RFC3339), "updated_at": updated}
	for _, e := range []Extractor{lastMotion, fallback} {
		r, ok := e.Extract(withDetection)
		c.Assert(ok, qt.IsTrue)
		c.Assert(r.HasValue(), qt.IsFalse)
		c.Assert(r.ObservedAt.Equal(detected), qt.IsTrue)
	}

	withoutDetection := remote.Row{"last_motion_at": nil, "updated_at": updated}
	_, ok := lastMotion.Extract(withoutDetection)
	c.Assert(ok, qt.IsFalse)
	r, ok := fallback.Extract(withoutDetection)
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.ObservedAt.Equal(updated), qt.IsTrue)
}

func TestParseMotionProfile(t *testing.T) {
	c := qt.New(t)

	p, err := ParseMotionProfile("")
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.Equals, MotionLastMotion)

	_, err = ParseMotionProfile("sometimes")
	c.Assert(err, qt.ErrorMatches, `unknown motion profile "sometimes"`)

	_, err = NewExtractor("humidity", MotionLastMotion)
	c.Assert(err, qt.ErrorMatches, `no extractor for feed "humidity"`)
}

func TestSeedPopulatesStore(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableSensorStates,
		stateRow("food_level", remote.Row{"distance_cm": 10, "updated_at": "2024-05-02T14:00:00Z"}),
		stateRow("weight", remote.Row{"weight_grams": 250, "updated_at": "2024-05-02T14:00:00Z"}),
	)

	h, err := fx.m.AcquireSensor(models.FoodLevel)
	c.Assert(err, qt.IsNil)
	defer h.Release()
	waitClosed(c, h.Seeded())

	r, ok := h.Latest()
	c.Assert(ok, qt.IsTrue)
	c.Assert(*r.Value, qt.Equals, 10.0)
	_, ok = fx.m.Store().Get(models.Weight)
	c.Assert(ok, qt.IsFalse)

	c.Assert(fx.m.Feeds(), qt.DeepEquals, []FeedStatus{{Key: "sensor:food_level", Refs: 1, State: StateActive}})
	c.Assert(fx.obs.outcomesOf("sensor:food_level"), qt.DeepEquals, []Outcome{OutcomeAccepted})
}

func TestSeedRowWithoutValueLeavesStoreEmpty(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableSensorStates, stateRow("weight", remote.Row{"weight_grams": nil}))

	h, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	defer h.Release()
	waitClosed(c, h.Seeded())

	_, ok := h.Latest()
	c.Assert(ok, qt.IsFalse)
	c.Assert(fx.obs.outcomesOf("sensor:weight"), qt.DeepEquals, []Outcome{OutcomeEmpty})
}

func TestSeedFailureRecoversOnPoll(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.FailQueries(errBackend)

	h, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	defer h.Release()
	waitClosed(c, h.Seeded())

	_, ok := h.Latest()
	c.Assert(ok, qt.IsFalse)
	c.Assert(fx.obs.count(fx.obs.queryFailures, "sensor:weight"), qt.Equals, 1)

	fx.svc.FailQueries(nil)
	fx.svc.SetRows(remote.TableSensorStates, stateRow("weight", remote.Row{"weight_grams": 300, "updated_at": "2024-05-02T14:59:00Z"}))
	c.Assert(fx.clock.WaitAdvance(DefaultSensorPollInterval, 5*time.Second, 1), qt.IsNil)

	select {
	case r := <-h.Updates():
		c.Assert(*r.Value, qt.Equals, 300.0)
	case <-time.After(5 * time.Second):
		c.Fatal("poll did not update the store")
	}
}

func TestPushUpdatesStore(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableSensorStates, stateRow("food_level", remote.Row{"distance_cm": 10, "updated_at": "2024-05-02T14:00:00Z"}))

	h, err := fx.m.AcquireSensor(models.FoodLevel)
	c.Assert(err, qt.IsNil)
	defer h.Release()
	waitClosed(c, h.Seeded())
	waitFor(c, "subscription", func() bool { return fx.svc.ActiveSubscriptions() == 1 })

	push := func(fields remote.Row) int {
		return fx.svc.Emit(remote.Change{
			Table:  remote.TableSensorStates,
			Event:  remote.EventUpdate,
			Record: stateRow("food_level", fields),
		})
	}

	c.Assert(push(remote.Row{"distance_cm": 6, "updated_at": "2024-05-02T14:01:00Z"}), qt.Equals, 1)
	r, _ := h.Latest()
	c.Assert(*r.Value, qt.Equals, 6.0)

	// Other sensors are filtered out by the subscription.
	c.Assert(fx.svc.Emit(remote.Change{
		Table:  remote.TableSensorStates,
		Event:  remote.EventUpdate,
		Record: stateRow("weight", remote.Row{"weight_grams": 1}),
	}), qt.Equals, 0)

	c.Assert(push(remote.Row{"distance_cm": nil, "updated_at": "2024-05-02T14:02:00Z"}), qt.Equals, 1)
	r, _ = h.Latest()
	c.Assert(*r.Value, qt.Equals, 6.0)

	c.Assert(push(remote.Row{"distance_cm": 20, "updated_at": "2024-05-02T13:00:00Z"}), qt.Equals, 1)
	r, _ = h.Latest()
	c.Assert(*r.Value, qt.Equals, 6.0)

	c.Assert(fx.obs.outcomesOf("sensor:food_level"), qt.DeepEquals,
		[]Outcome{OutcomeAccepted, OutcomeAccepted, OutcomeEmpty, OutcomeRejected})
}

func TestSharedFeedHasOneSubscriptionAndTimer(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableSensorStates, stateRow("weight", remote.Row{"weight_grams": 250}))

	h1, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	h2, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	waitClosed(c, h1.Seeded())
	waitClosed(c, h2.Seeded())
	waitFor(c, "subscription", func() bool { return fx.svc.ActiveSubscriptions() == 1 })

	c.Assert(fx.svc.OpenedSubscriptions(), qt.Equals, 1)
	c.Assert(fx.svc.Queries(remote.TableSensorStates), qt.Equals, 1)
	c.Assert(fx.m.Feeds(), qt.DeepEquals, []FeedStatus{{Key: "sensor:weight", Refs: 2, State: StateActive}})

	// One tick, one query.
	c.Assert(fx.clock.WaitAdvance(DefaultSensorPollInterval, 5*time.Second, 1), qt.IsNil)
	waitFor(c, "poll query", func() bool { return fx.svc.Queries(remote.TableSensorStates) == 2 })
	time.Sleep(20 * time.Millisecond)
	c.Assert(fx.svc.Queries(remote.TableSensorStates), qt.Equals, 2)

	h1.Release()
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 1)
	c.Assert(fx.m.Feeds(), qt.DeepEquals, []FeedStatus{{Key: "sensor:weight", Refs: 1, State: StateActive}})

	h2.Release()
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 0)
	c.Assert(fx.m.Feeds(), qt.HasLen, 0)
	c.Assert(fx.obs.count(fx.obs.started, "sensor:weight"), qt.Equals, 1)
	c.Assert(fx.obs.count(fx.obs.stopped, "sensor:weight"), qt.Equals, 1)

	fx.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	c.Assert(fx.svc.Queries(remote.TableSensorStates), qt.Equals, 2)
}

func TestReleaseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()

	h, err := fx.m.AcquireSensor(models.Motion)
	c.Assert(err, qt.IsNil)
	waitClosed(c, h.Seeded())
	waitFor(c, "subscription", func() bool { return fx.svc.ActiveSubscriptions() == 1 })

	h.Release()
	h.Release()
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 0)
	c.Assert(fx.m.Feeds(), qt.HasLen, 0)
	c.Assert(fx.obs.count(fx.obs.stopped, "sensor:motion"), qt.Equals, 1)

	// A new consumer starts the feed afresh.
	h2, err := fx.m.AcquireSensor(models.Motion)
	c.Assert(err, qt.IsNil)
	waitFor(c, "resubscription", func() bool { return fx.svc.OpenedSubscriptions() == 2 })
	h2.Release()
	h2.Release()
	h.Release()
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 0)
}

func TestReleaseCancelsInFlightSeed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableSensorStates, stateRow("food_level", remote.Row{"distance_cm": 10}))
	release := fx.svc.HoldQueries()
	defer release()

	h, err := fx.m.AcquireSensor(models.FoodLevel)
	c.Assert(err, qt.IsNil)
	waitFor(c, "seed query", func() bool { return fx.svc.Queries(remote.TableSensorStates) == 1 })

	h.Release()
	select {
	case <-h.Seeded():
	default:
		c.Fatal("seed still running after release")
	}
	_, ok := h.Latest()
	c.Assert(ok, qt.IsFalse)
	c.Assert(fx.obs.count(fx.obs.queryFailures, "sensor:food_level"), qt.Equals, 0)
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 0)
}

func TestSubscribeRetriesWithBackoff(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{
		SensorPollInterval:  time.Hour,
		ResubscribeMinDelay: time.Second,
		ResubscribeMaxDelay: time.Second,
	})
	defer fx.m.Close()
	fx.svc.FailSubscribes(errBackend, errBackend)

	h, err := fx.m.AcquireSensor(models.FoodLevel)
	c.Assert(err, qt.IsNil)
	defer h.Release()

	// The poll timer and the retry delay are both waiting.
	c.Assert(fx.clock.WaitAdvance(time.Second, 5*time.Second, 2), qt.IsNil)
	c.Assert(fx.clock.WaitAdvance(time.Second, 5*time.Second, 2), qt.IsNil)
	waitFor(c, "subscription", func() bool { return fx.svc.ActiveSubscriptions() == 1 })
	c.Assert(fx.obs.count(fx.obs.subscribeFailures, "sensor:food_level"), qt.Equals, 2)

	c.Assert(fx.svc.Emit(remote.Change{
		Table:  remote.TableSensorStates,
		Event:  remote.EventUpdate,
		Record: stateRow("food_level", remote.Row{"distance_cm": 4}),
	}), qt.Equals, 1)
	r, ok := h.Latest()
	c.Assert(ok, qt.IsTrue)
	c.Assert(*r.Value, qt.Equals, 4.0)
}

func TestReleaseDuringSubscribeRetry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.FailSubscribes(errBackend)

	h, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	waitFor(c, "failed subscribe", func() bool {
		return fx.obs.count(fx.obs.subscribeFailures, "sensor:weight") == 1
	})
	h.Release()
	c.Assert(fx.svc.OpenedSubscriptions(), qt.Equals, 0)
}

func todayEvents() []remote.Row {
	return []remote.Row{
		{"id": "e1", "created_at": "2024-05-02T09:00:00Z", "portions": 1},
		{"id": "e2", "created_at": "2024-05-02T14:00:00Z", "portions": 2},
		{"id": "e3", "created_at": "2024-05-01T23:59:00Z", "portions": 5},
	}
}

func TestCounterCountsOnlyToday(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableFeedingEvents, todayEvents()...)

	c.Assert(fx.m.Counter().Refresh(context.Background()), qt.Equals, 3)
	tally, ok := fx.m.Counter().Tally()
	c.Assert(ok, qt.IsTrue)
	c.Assert(tally.DayStart.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)), qt.IsTrue)
	c.Assert(tally.ComputedAt.Equal(testNow), qt.IsTrue)
}

func TestCounterUsesLocalDay(t *testing.T) {
	c := qt.New(t)
	svc := remotetest.New()
	svc.SetRows(remote.TableFeedingEvents, todayEvents()...)

	// 23:59 UTC on May 1st is already May 2nd three hours east.
	counter := NewCounter(svc, testclock.NewClock(testNow), time.FixedZone("EAST", 3*3600), nil)
	c.Assert(counter.Refresh(context.Background()), qt.Equals, 8)
}

func TestCounterFollowsPushInserts(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableFeedingEvents, todayEvents()...)

	h, err := fx.m.AcquireFeedings()
	c.Assert(err, qt.IsNil)
	defer h.Release()
	waitClosed(c, h.Seeded())
	waitFor(c, "subscription", func() bool { return fx.svc.ActiveSubscriptions() == 1 })
	c.Assert(h.Portions(), qt.Equals, 3)

	added := remote.Row{"id": "e4", "created_at": "2024-05-02T14:59:00Z", "portions": 2}
	fx.svc.SetRows(remote.TableFeedingEvents, append(todayEvents(), added)...)
	c.Assert(fx.svc.Emit(remote.Change{Table: remote.TableFeedingEvents, Event: remote.EventInsert, Record: added}), qt.Equals, 1)

	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case tally := <-h.Updates():
			done = tally.Portions == 5
		case <-deadline:
			c.Fatal("push insert did not trigger a recompute")
		}
	}

	// A backfilled event from yesterday is counted for yesterday only.
	backfill := remote.Row{"id": "e5", "created_at": "2024-05-01T10:00:00Z", "portions": 4}
	fx.svc.SetRows(remote.TableFeedingEvents, append(todayEvents(), added, backfill)...)
	before := fx.svc.Queries(remote.TableFeedingEvents)
	fx.svc.Emit(remote.Change{Table: remote.TableFeedingEvents, Event: remote.EventInsert, Record: backfill})
	waitFor(c, "recompute", func() bool { return fx.svc.Queries(remote.TableFeedingEvents) > before })
	c.Assert(h.Refresh(context.Background()), qt.Equals, 5)
}

func TestCounterRefreshAbsorbsErrors(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableFeedingEvents, todayEvents()...)

	c.Assert(fx.m.Counter().Refresh(context.Background()), qt.Equals, 3)
	fx.svc.FailQueries(errBackend)
	c.Assert(fx.m.Counter().Refresh(context.Background()), qt.Equals, 3)
	c.Assert(fx.obs.count(fx.obs.queryFailures, FeedingsKey), qt.Equals, 1)
}

func TestTriggerFailureLeavesCounterUnchanged(t *testing.T) {
	c := qt.New(t)
	fx := newFixture(Options{})
	defer fx.m.Close()
	fx.svc.SetRows(remote.TableFeedingEvents, todayEvents()...)
	c.Assert(fx.m.Counter().Refresh(context.Background()), qt.Equals, 3)

	events := nuts.NewEventEmitter()
	failed := make(chan interface{}, 1)
	events.On(EventFeedCommandFailed, "test", func(args ...interface{}) {
		if len(args) > 0 {
			failed <- args[0]
		}
	})

	fx.svc.FailInserts(errBackend)
	err := NewTrigger(fx.svc, events).Feed(context.Background(), 1)
	c.Assert(err, qt.IsNotNil)
	c.Assert(errors.IsUpstream(err), qt.IsTrue)
	c.Assert(stderrors.Is(err, errBackend), qt.IsTrue)

	select {
	case got := <-failed:
		c.Assert(got, qt.Equals, models.FeedCommand{Portions: 1})
	case <-time.After(5 * time.Second):
		c.Fatal("failure event not emitted")
	}
	c.Assert(fx.m.Counter().Portions(), qt.Equals, 3)
	c.Assert(fx.svc.Inserted(remote.TableFeedCommands), qt.HasLen, 0)
}

func TestTriggerSendsCommand(t *testing.T) {
	c := qt.New(t)
	svc := remotetest.New()
	trigger := NewTrigger(svc, nil)

	c.Assert(trigger.Feed(context.Background(), 0), qt.IsNil)
	c.Assert(trigger.Feed(context.Background(), 2), qt.IsNil)
	c.Assert(svc.Inserted(remote.TableFeedCommands), qt.DeepEquals, []remote.Row{
		{"portions": 1},
		{"portions": 2},
	})

	err := trigger.Feed(context.Background(), -1)
	c.Assert(errors.IsValidation(err), qt.IsTrue)
	c.Assert(svc.Inserted(remote.TableFeedCommands), qt.HasLen, 2)
}

func TestManagerCloseTearsDownEverything(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)
	fx := newFixture(Options{})

	food, err := fx.m.AcquireSensor(models.FoodLevel)
	c.Assert(err, qt.IsNil)
	weight, err := fx.m.AcquireSensor(models.Weight)
	c.Assert(err, qt.IsNil)
	feedings, err := fx.m.AcquireFeedings()
	c.Assert(err, qt.IsNil)
	waitFor(c, "subscriptions", func() bool { return fx.svc.ActiveSubscriptions() == 3 })

	c.Assert(fx.m.Close(), qt.IsNil)
	c.Assert(fx.svc.ActiveSubscriptions(), qt.Equals, 0)
	c.Assert(fx.m.Feeds(), qt.HasLen, 0)

	_, err = fx.m.AcquireSensor(models.Motion)
	c.Assert(err, qt.Equals, ErrManagerClosed)

	food.Release()
	weight.Release()
	feedings.Release()
	c.Assert(fx.m.Close(), qt.IsNil)
}
