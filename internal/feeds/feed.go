package feeds

import (
	"context"
	"sync"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/juju/clock"
	"github.com/juju/retry"
	nuts "github.com/vaudience/go-nuts"
	"gopkg.in/tomb.v2"
)

// State is the lifecycle stage of a feed.
type State string

const (
	StateIdle     State = "idle"
	StateSeeding  State = "seeding"
	StateActive   State = "active"
	StateTornDown State = "torn_down"
)

// source is what a feed keeps synchronized.
type source interface {
	key() string
	spec() remote.ChangeSpec
	pollInterval() time.Duration
	// refresh runs the point query and applies its result.
	refresh(ctx context.Context, via Channel)
	// push handles a pushed change; async runs work on the feed's tomb.
	push(c remote.Change, async func(func(context.Context)))
}

// feed owns the push subscription and poll timer of one source. Every
// goroutine it starts is tracked by its tomb.
type feed struct {
	src      source
	svc      remote.DataService
	clock    clock.Clock
	observer Observer
	minDelay time.Duration
	maxDelay time.Duration

	// refs is guarded by the manager's lock.
	refs int

	tomb   tomb.Tomb
	ctx    context.Context
	seeded chan struct{}

	mu      sync.Mutex
	state   State
	sub     remote.Subscription
	stopped bool
}

func newFeed(src source, svc remote.DataService, opts Options) *feed {
	return &feed{
		src:      src,
		svc:      svc,
		clock:    opts.Clock,
		observer: opts.Observer,
		minDelay: opts.ResubscribeMinDelay,
		maxDelay: opts.ResubscribeMaxDelay,
		seeded:   make(chan struct{}),
		state:    StateIdle,
	}
}

func (f *feed) key() string { return f.src.key() }

func (f *feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *feed) setState(from, to State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == from {
		f.state = to
	}
}

// start seeds the store, opens the push subscription and starts the poll
// timer. The seed runs asynchronously and its outcome does not gate the
// other two.
func (f *feed) start() {
	f.ctx = f.tomb.Context(context.Background())
	f.setState(StateIdle, StateSeeding)
	f.observer.FeedStarted(f.key())
	nuts.L.Infof("[FeedManager] Starting %s", f.key())

	f.tomb.Go(f.poll)
	f.tomb.Go(func() error {
		defer close(f.seeded)
		f.src.refresh(f.ctx, ChannelSeed)
		f.setState(StateSeeding, StateActive)
		return nil
	})
	f.tomb.Go(f.subscribe)
}

// stop closes the push subscription, then cancels the poll timer and any
// in-flight query, and waits for every feed goroutine. Safe to call twice.
func (f *feed) stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			nuts.L.Warnf("[FeedManager] Closing subscription of %s: %v", f.key(), err)
		}
	}
	f.tomb.Kill(nil)
	_ = f.tomb.Wait()

	f.mu.Lock()
	f.state = StateTornDown
	f.mu.Unlock()
	f.observer.FeedStopped(f.key())
	nuts.L.Infof("[FeedManager] Stopped %s", f.key())
}

// async runs fn on the tomb unless the feed is stopping.
func (f *feed) async(fn func(ctx context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.tomb.Go(func() error {
		fn(f.ctx)
		return nil
	})
}

func (f *feed) onChange(c remote.Change) {
	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if stopped {
		return
	}
	f.src.push(c, f.async)
}

// poll ticks until the feed dies. Each tick runs its query in its own
// goroutine, so a hung query never delays the next tick.
func (f *feed) poll() error {
	interval := f.src.pollInterval()
	timer := f.clock.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-f.tomb.Dying():
			return nil
		case <-timer.Chan():
			f.async(func(ctx context.Context) {
				f.src.refresh(ctx, ChannelPoll)
			})
			timer.Reset(interval)
		}
	}
}

// subscribe opens the push subscription, retrying with backoff until it
// succeeds or the feed is torn down. The poll timer covers the gap.
func (f *feed) subscribe() error {
	spec := f.src.spec()
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			sub, err := f.svc.Subscribe(f.ctx, spec, f.onChange)
			if err != nil {
				return err
			}
			f.mu.Lock()
			if f.stopped {
				f.mu.Unlock()
				_ = sub.Close()
				return nil
			}
			f.sub = sub
			f.mu.Unlock()
			nuts.L.Debugf("[FeedManager] Subscribed %s to %s", f.key(), spec)
			return nil
		},
		Attempts:    retry.UnlimitedAttempts,
		Delay:       f.minDelay,
		MaxDelay:    f.maxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       f.clock,
		Stop:        f.tomb.Dying(),
		NotifyFunc: func(lastErr error, attempt int) {
			f.observer.ObserveSubscribeFailure(f.key())
			nuts.L.Warnf("[FeedManager] Subscribing %s failed (attempt %d): %v", f.key(), attempt, lastErr)
		},
	})
	if err != nil && !retry.IsRetryStopped(err) {
		nuts.L.Errorf("[FeedManager] Giving up subscribing %s: %v", f.key(), err)
	}
	return nil
}
