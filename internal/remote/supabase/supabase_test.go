package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"go.uber.org/goleak"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
)

func TestQueryParams(t *testing.T) {
	c := qt.New(t)
	since := time.Date(2024, 5, 1, 22, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	params, err := queryParams(remote.Query{
		Table:   remote.TableFeedingEvents,
		Columns: []string{"id", "portions", "created_at"},
		Filters: []remote.Filter{remote.Gte(remote.ColumnCreatedAt, since)},
		Order:   &remote.Order{Column: remote.ColumnCreatedAt, Descending: true},
		Limit:   100,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(params.Get("select"), qt.Equals, "id,portions,created_at")
	c.Assert(params.Get("created_at"), qt.Equals, "gte.2024-05-01T20:00:00Z")
	c.Assert(params.Get("order"), qt.Equals, "created_at.desc")
	c.Assert(params.Get("limit"), qt.Equals, "100")

	params, err = queryParams(remote.Query{
		Table:   remote.TableSensorStates,
		Filters: []remote.Filter{remote.Eq(remote.ColumnSensor, "weight")},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(params.Get("select"), qt.Equals, "*")
	c.Assert(params.Get("sensor"), qt.Equals, "eq.weight")
	c.Assert(params.Has("order"), qt.IsFalse)
}

func TestRESTQueryAndInsert(t *testing.T) {
	c := qt.New(t)

	var inserted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Check(r.Header.Get("apikey"), qt.Equals, "anon")
		c.Check(r.Header.Get("Authorization"), qt.Equals, "Bearer anon")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/sensor_states":
			c.Check(r.URL.Query().Get("sensor"), qt.Equals, "eq.food_level")
			c.Check(r.Header.Get("Accept-Profile"), qt.Equals, "public")
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `[{"sensor":"food_level","distance_cm":12.5,"updated_at":"2024-05-01T10:00:00+00:00"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/feed_commands":
			c.Check(r.Header.Get("Prefer"), qt.Equals, "return=minimal")
			c.Check(json.NewDecoder(r.Body).Decode(&inserted), qt.IsNil)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"not found"}`)
		}
	}))
	defer srv.Close()

	rc := newRESTClient(srv.URL+"/", "anon", "public", 5*time.Second)
	defer rc.client.GetClient().CloseIdleConnections()
	ctx := context.Background()

	rows, err := rc.query(ctx, remote.Query{
		Table:   remote.TableSensorStates,
		Filters: []remote.Filter{remote.Eq(remote.ColumnSensor, "food_level")},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(rows, qt.HasLen, 1)
	c.Assert(rows[0]["distance_cm"], qt.Equals, json.Number("12.5"))
	_, ok := rows[0].Time(remote.ColumnUpdatedAt)
	c.Assert(ok, qt.IsTrue)

	c.Assert(rc.insert(ctx, remote.TableFeedCommands, remote.Row{"portions": 2}), qt.IsNil)
	c.Assert(inserted["portions"], qt.Equals, float64(2))

	_, err = rc.query(ctx, remote.Query{Table: "missing"})
	c.Assert(err, qt.ErrorMatches, `query missing: 404 Not Found: \{"message":"not found"\}`)
}

func TestRealtimeEndpoint(t *testing.T) {
	c := qt.New(t)

	u, err := RealtimeEndpoint("https://abc.supabase.co/", "k")
	c.Assert(err, qt.IsNil)
	c.Assert(u, qt.Equals, "wss://abc.supabase.co/realtime/v1/websocket?apikey=k&vsn=1.0.0")

	_, err = RealtimeEndpoint("ftp://abc", "k")
	c.Assert(err, qt.ErrorMatches, `unsupported supabase url scheme "ftp"`)
}

type phoenixServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	msgs  chan inboundMessage
}

func newPhoenixServer(t *testing.T) *phoenixServer {
	ps := &phoenixServer{
		conns: make(chan *websocket.Conn, 4),
		msgs:  make(chan inboundMessage, 256),
	}
	upgrader := websocket.Upgrader{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		ps.conns <- conn
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case ps.msgs <- msg:
			default:
			}
		}
	}))
	return ps
}

func (ps *phoenixServer) endpoint() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http") + "/realtime/v1/websocket?apikey=anon&vsn=1.0.0"
}

func (ps *phoenixServer) next(c *qt.C, event string) inboundMessage {
	c.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ps.msgs:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			c.Fatalf("no %s message received", event)
		}
	}
}

func (ps *phoenixServer) conn(c *qt.C) *websocket.Conn {
	c.Helper()
	select {
	case conn := <-ps.conns:
		return conn
	case <-time.After(5 * time.Second):
		c.Fatal("client did not connect")
	}
	return nil
}

func TestRealtimeJoinDeliverReconnectLeave(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c := qt.New(t)

	ps := newPhoenixServer(t)
	defer ps.srv.Close()

	rt := NewRealtime(RealtimeConfig{
		Endpoint:  ps.endpoint(),
		Key:       "anon",
		Schema:    "public",
		Heartbeat: 20 * time.Millisecond,
		MinDelay:  10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
		Clock:     clock.WallClock,
	})
	defer rt.Close()

	conn := ps.conn(c)

	filter := remote.Eq(remote.ColumnSensor, "food_level")
	got := make(chan remote.Change, 4)
	sub, err := rt.Subscribe(remote.ChangeSpec{
		Table:  remote.TableSensorStates,
		Event:  remote.EventUpdate,
		Filter: &filter,
	}, func(ch remote.Change) { got <- ch })
	c.Assert(err, qt.IsNil)

	join := ps.next(c, eventJoin)
	c.Assert(strings.HasPrefix(join.Topic, "realtime:"), qt.IsTrue)
	var payload struct {
		Config struct {
			PostgresChanges []map[string]string `json:"postgres_changes"`
		} `json:"config"`
	}
	c.Assert(json.Unmarshal(join.Payload, &payload), qt.IsNil)
	c.Assert(payload.Config.PostgresChanges, qt.DeepEquals, []map[string]string{{
		"event":  "UPDATE",
		"schema": "public",
		"table":  "sensor_states",
		"filter": "sensor=eq.food_level",
	}})

	ps.next(c, eventHeartbeat)

	c.Assert(conn.WriteJSON(map[string]any{
		"topic": join.Topic,
		"event": eventChanges,
		"payload": map[string]any{"data": map[string]any{
			"table":  "sensor_states",
			"type":   "UPDATE",
			"record": map[string]any{"sensor": "food_level", "distance_cm": 7},
		}},
	}), qt.IsNil)
	select {
	case ch := <-got:
		c.Assert(ch.Event, qt.Equals, remote.EventUpdate)
		c.Assert(ch.Record["distance_cm"], qt.Equals, json.Number("7"))
	case <-time.After(5 * time.Second):
		c.Fatal("change not delivered")
	}

	// Drop the socket; the client must reconnect and rejoin the same topic.
	conn.Close()
	ps.conn(c)
	rejoin := ps.next(c, eventJoin)
	c.Assert(rejoin.Topic, qt.Equals, join.Topic)

	c.Assert(sub.Close(), qt.IsNil)
	leave := ps.next(c, eventLeave)
	c.Assert(leave.Topic, qt.Equals, join.Topic)
	c.Assert(sub.Close(), qt.IsNil)

	c.Assert(rt.Close(), qt.IsNil)
	_, err = rt.Subscribe(remote.ChangeSpec{Table: remote.TableFeedingEvents, Event: remote.EventInsert}, func(remote.Change) {})
	c.Assert(err, qt.ErrorMatches, "realtime client is closed")
}
