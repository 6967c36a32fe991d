// FilePath: internal/remote/supabase/supabase.realtime.go
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/retry"
	nuts "github.com/vaudience/go-nuts"
	"gopkg.in/tomb.v2"
)

const (
	protocolVersion = "1.0.0"
	writeTimeout    = 10 * time.Second

	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventChanges   = "postgres_changes"
	eventSystem    = "system"
	eventHeartbeat = "heartbeat"
)

// RealtimeConfig configures the realtime channel client.
type RealtimeConfig struct {
	Endpoint  string
	Key       string
	Schema    string
	Heartbeat time.Duration
	MinDelay  time.Duration
	MaxDelay  time.Duration
	Clock     clock.Clock
}

// RealtimeEndpoint derives the realtime websocket URL from the project URL.
func RealtimeEndpoint(projectURL, key string) (string, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid supabase url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported supabase url scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {key}, "vsn": {protocolVersion}}.Encode()
	return u.String(), nil
}

type outboundMessage struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
}

type inboundMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type changesPayload struct {
	Data struct {
		Table  string     `json:"table"`
		Type   string     `json:"type"`
		Record remote.Row `json:"record"`
	} `json:"data"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Realtime multiplexes change channels over one websocket. The connection
// is dialed in the background and re-established with backoff; every open
// channel is re-joined after a reconnect.
type Realtime struct {
	cfg  RealtimeConfig
	tomb tomb.Tomb
	ref  atomic.Uint64

	mu       sync.Mutex
	conn     *websocket.Conn
	channels map[string]*realtimeChannel

	writeMu sync.Mutex
}

// NewRealtime starts the connection loop.
func NewRealtime(cfg RealtimeConfig) *Realtime {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	r := &Realtime{
		cfg:      cfg,
		channels: make(map[string]*realtimeChannel),
	}
	r.tomb.Go(r.run)
	return r
}

// Subscribe opens a channel for spec. Delivery starts once the socket is up.
func (r *Realtime) Subscribe(spec remote.ChangeSpec, handler remote.ChangeHandler) (remote.Subscription, error) {
	select {
	case <-r.tomb.Dying():
		return nil, fmt.Errorf("realtime client is closed")
	default:
	}

	ch := &realtimeChannel{
		topic:   "realtime:" + nuts.NID("feeder", 10),
		spec:    spec,
		handler: handler,
		owner:   r,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.topic] = ch
	if r.conn != nil {
		r.join(r.conn, ch)
	}
	nuts.L.Debugf("[SupabaseRealtime] Channel %s opened for %s", ch.topic, spec)
	return ch, nil
}

// Close leaves the socket and stops reconnecting.
func (r *Realtime) Close() error {
	r.tomb.Kill(nil)
	return r.tomb.Wait()
}

func (r *Realtime) run() error {
	for {
		conn, err := r.connect()
		if err != nil {
			return nil
		}
		err = r.serve(conn)

		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		_ = conn.Close()

		select {
		case <-r.tomb.Dying():
			return nil
		default:
		}
		nuts.L.Warnf("[SupabaseRealtime] Connection lost: %v", err)

		select {
		case <-r.tomb.Dying():
			return nil
		case <-r.cfg.Clock.After(r.cfg.MinDelay):
		}
	}
}

// connect dials until it succeeds or the client is closed, then joins every
// registered channel.
func (r *Realtime) connect() (*websocket.Conn, error) {
	ctx := r.tomb.Context(context.Background())
	var conn *websocket.Conn
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			c, _, err := websocket.DefaultDialer.DialContext(ctx, r.cfg.Endpoint, nil)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		Attempts:    retry.UnlimitedAttempts,
		Delay:       r.cfg.MinDelay,
		MaxDelay:    r.cfg.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       r.cfg.Clock,
		Stop:        r.tomb.Dying(),
		NotifyFunc: func(lastErr error, attempt int) {
			nuts.L.Warnf("[SupabaseRealtime] Dial attempt %d failed: %v", attempt, lastErr)
		},
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.tomb.Dying():
		_ = conn.Close()
		return nil, tomb.ErrDying
	default:
	}
	r.conn = conn
	for _, ch := range r.channels {
		r.join(conn, ch)
	}
	nuts.L.Infof("[SupabaseRealtime] Connected, %d channel(s) joined", len(r.channels))
	return conn, nil
}

func (r *Realtime) serve(conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	r.tomb.Go(func() error {
		r.keepAlive(conn, done)
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		r.handle(data)
	}
}

// keepAlive sends heartbeats for conn and closes it when the client dies.
func (r *Realtime) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-r.tomb.Dying():
			_ = conn.Close()
			return
		case <-r.cfg.Clock.After(r.cfg.Heartbeat):
			err := r.send(conn, outboundMessage{
				Topic:   "phoenix",
				Event:   eventHeartbeat,
				Payload: struct{}{},
				Ref:     r.nextRef(),
			})
			if err != nil {
				nuts.L.Warnf("[SupabaseRealtime] Heartbeat failed: %v", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (r *Realtime) handle(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		nuts.L.Warnf("[SupabaseRealtime] Dropping malformed message: %v", err)
		return
	}

	switch msg.Event {
	case eventChanges:
		change, err := decodeChange(msg.Payload)
		if err != nil {
			nuts.L.Warnf("[SupabaseRealtime] Dropping change on %s: %v", msg.Topic, err)
			return
		}
		r.mu.Lock()
		ch := r.channels[msg.Topic]
		r.mu.Unlock()
		if ch != nil && ch.spec.Matches(change) {
			ch.handler(change)
		}
	case eventReply:
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err == nil && reply.Status != "ok" {
			nuts.L.Warnf("[SupabaseRealtime] %s replied %s: %s", msg.Topic, reply.Status, reply.Response)
		}
	case eventError, eventClose:
		nuts.L.Warnf("[SupabaseRealtime] %s received %s", msg.Topic, msg.Event)
	case eventSystem:
		nuts.L.Debugf("[SupabaseRealtime] %s system: %s", msg.Topic, msg.Payload)
	}
}

func decodeChange(raw json.RawMessage) (remote.Change, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p changesPayload
	if err := dec.Decode(&p); err != nil {
		return remote.Change{}, err
	}
	if p.Data.Table == "" || p.Data.Type == "" {
		return remote.Change{}, fmt.Errorf("change without table or type")
	}
	return remote.Change{
		Table:  p.Data.Table,
		Event:  remote.EventKind(strings.ToUpper(p.Data.Type)),
		Record: p.Data.Record,
	}, nil
}

// join must be called with r.mu held.
func (r *Realtime) join(conn *websocket.Conn, ch *realtimeChannel) {
	change := map[string]string{
		"event":  string(ch.spec.Event),
		"schema": r.cfg.Schema,
		"table":  ch.spec.Table,
	}
	if f := ch.spec.Filter; f != nil {
		change["filter"] = fmt.Sprintf("%s=%s.%v", f.Column, f.Op, f.Value)
	}
	payload := map[string]any{
		"config": map[string]any{
			"broadcast":        map[string]bool{"self": false},
			"presence":         map[string]string{"key": ""},
			"postgres_changes": []map[string]string{change},
		},
		"access_token": r.cfg.Key,
	}
	if err := r.send(conn, outboundMessage{Topic: ch.topic, Event: eventJoin, Payload: payload, Ref: r.nextRef()}); err != nil {
		nuts.L.Warnf("[SupabaseRealtime] Joining %s failed: %v", ch.topic, err)
	}
}

func (r *Realtime) leave(ch *realtimeChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, ch.topic)
	if r.conn == nil {
		return
	}
	if err := r.send(r.conn, outboundMessage{Topic: ch.topic, Event: eventLeave, Payload: struct{}{}, Ref: r.nextRef()}); err != nil {
		nuts.L.Debugf("[SupabaseRealtime] Leaving %s failed: %v", ch.topic, err)
	}
}

func (r *Realtime) send(conn *websocket.Conn, msg outboundMessage) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (r *Realtime) nextRef() string {
	return strconv.FormatUint(r.ref.Add(1), 10)
}

type realtimeChannel struct {
	topic   string
	spec    remote.ChangeSpec
	handler remote.ChangeHandler
	owner   *Realtime
	once    sync.Once
}

func (c *realtimeChannel) Close() error {
	c.once.Do(func() {
		c.owner.leave(c)
		nuts.L.Debugf("[SupabaseRealtime] Channel %s closed", c.topic)
	})
	return nil
}
