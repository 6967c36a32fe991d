package resources

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/gorilla/websocket"
	nuts "github.com/vaudience/go-nuts"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// LiveHandlers streams overview frames over a websocket.
type LiveHandlers struct {
	hubservice *hubservice.FeederService
	upgrader   websocket.Upgrader
}

func NewLiveHandlers(svc *hubservice.FeederService, allowedOrigins []string) *LiveHandlers {
	return &LiveHandlers{
		hubservice: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows requests without an Origin header, "*", and the
// listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// @Summary Live overview stream
// @Description Websocket; sends a models.Overview frame after every accepted change
// @Tags sensors
// @Router /live [get]
// @Security BearerAuth
func (h *LiveHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	live, err := h.hubservice.OpenLive()
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to open live stream").WithRequestID(requestID))
		return
	}
	defer live.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nuts.L.Debugf("[LiveAPI] %s upgrade failed: %v", requestID, err)
		return
	}
	defer conn.Close()
	nuts.L.Debugf("[LiveAPI] %s connected from %s", requestID, r.RemoteAddr)

	gone := make(chan struct{})
	go readUntilClosed(conn, gone)

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()
	for {
		select {
		case frame := <-live.Frames():
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				nuts.L.Debugf("[LiveAPI] %s write failed: %v", requestID, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case <-gone:
			nuts.L.Debugf("[LiveAPI] %s disconnected", requestID)
			return
		case <-live.Dying():
			return
		}
	}
}

// readUntilClosed discards client messages and closes gone when the
// connection fails.
func readUntilClosed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
