// FilePath: internal/remote/postgres/postgres.notifier.go
package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/juju/clock"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
	"gopkg.in/tomb.v2"
)

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// notificationSource is the part of *pq.Listener the notifier relies on.
type notificationSource interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// notifyPayload is the JSON body produced by the feeder_notify_change trigger.
type notifyPayload struct {
	Table  string     `json:"table"`
	Type   string     `json:"type"`
	Record remote.Row `json:"record"`
}

// Notifier fans NOTIFY payloads out to change subscriptions.
type Notifier struct {
	src   notificationSource
	clock clock.Clock
	ping  time.Duration
	tomb  tomb.Tomb

	mu     sync.Mutex
	nextID int
	subs   map[int]*notifySubscription

	closeOnce sync.Once
	closeErr  error
}

// Listen opens a pq.Listener on channel and starts dispatching.
func Listen(dsn, channel string, clk clock.Clock) (*Notifier, error) {
	l := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			nuts.L.Infof("[PostgresNotifier] Listening on %q", channel)
		case pq.ListenerEventDisconnected:
			nuts.L.Warnf("[PostgresNotifier] Disconnected: %v", err)
		case pq.ListenerEventReconnected:
			nuts.L.Infof("[PostgresNotifier] Reconnected on %q", channel)
		case pq.ListenerEventConnectionAttemptFailed:
			nuts.L.Warnf("[PostgresNotifier] Connection attempt failed: %v", err)
		}
	})
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen on %q: %w", channel, err)
	}
	return newNotifier(l, clk, pingInterval), nil
}

func newNotifier(src notificationSource, clk clock.Clock, ping time.Duration) *Notifier {
	n := &Notifier{
		src:   src,
		clock: clk,
		ping:  ping,
		subs:  make(map[int]*notifySubscription),
	}
	n.tomb.Go(n.loop)
	return n
}

func (n *Notifier) loop() error {
	notifications := n.src.NotificationChannel()
	for {
		select {
		case <-n.tomb.Dying():
			return nil
		case note, ok := <-notifications:
			if !ok {
				return nil
			}
			if note == nil {
				// Notifications sent while disconnected are lost; pollers
				// catch up.
				nuts.L.Debugf("[PostgresNotifier] Connection re-established")
				continue
			}
			n.dispatch(note.Extra)
		case <-n.clock.After(n.ping):
			if err := n.src.Ping(); err != nil {
				nuts.L.Warnf("[PostgresNotifier] Ping failed: %v", err)
			}
		}
	}
}

func (n *Notifier) dispatch(payload string) {
	change, err := decodePayload(payload)
	if err != nil {
		nuts.L.Warnf("[PostgresNotifier] Dropping notification: %v", err)
		return
	}

	n.mu.Lock()
	var targets []remote.ChangeHandler
	for _, sub := range n.subs {
		if sub.spec.Matches(change) {
			targets = append(targets, sub.handler)
		}
	}
	n.mu.Unlock()

	for _, handler := range targets {
		handler(change)
	}
}

func decodePayload(payload string) (remote.Change, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var p notifyPayload
	if err := dec.Decode(&p); err != nil {
		return remote.Change{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.Table == "" || p.Type == "" {
		return remote.Change{}, fmt.Errorf("payload without table or type")
	}
	return remote.Change{
		Table:  p.Table,
		Event:  remote.EventKind(strings.ToUpper(p.Type)),
		Record: p.Record,
	}, nil
}

func (n *Notifier) add(spec remote.ChangeSpec, handler remote.ChangeHandler) *notifySubscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	sub := &notifySubscription{id: n.nextID, spec: spec, handler: handler, owner: n}
	n.subs[sub.id] = sub
	nuts.L.Debugf("[PostgresNotifier] Subscribed %s", spec)
	return sub
}

func (n *Notifier) remove(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Close stops dispatching and closes the listener.
func (n *Notifier) Close() error {
	n.closeOnce.Do(func() {
		n.tomb.Kill(nil)
		if err := n.tomb.Wait(); err != nil {
			n.closeErr = err
		}
		if err := n.src.Close(); err != nil && n.closeErr == nil {
			n.closeErr = err
		}
	})
	return n.closeErr
}

type notifySubscription struct {
	id      int
	spec    remote.ChangeSpec
	handler remote.ChangeHandler
	owner   *Notifier
}

func (s *notifySubscription) Close() error {
	s.owner.remove(s.id)
	return nil
}
