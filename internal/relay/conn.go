package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"wisp/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 256 << 10
	sendQueueDepth = 32
)

// conn wraps a single client's WebSocket connection. Reads and writes each
// run on their own goroutine; outgoing frames are serialized through send
// so callers never write to the socket directly.
type conn struct {
	ws       *websocket.Conn
	username domain.Username
	ctrlKey  []byte // key for the sealed control channel, derived post-handshake
	send     chan domain.Frame
	log      *slog.Logger
}

func newConn(ws *websocket.Conn, log *slog.Logger) *conn {
	return &conn{
		ws:   ws,
		send: make(chan domain.Frame, sendQueueDepth),
		log:  log,
	}
}

// writePump drains c.send to the socket, interleaving periodic pings, until
// send is closed or a write fails.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop blocks reading frames off the socket and handing each to handle,
// until the connection closes or a frame fails to decode.
func (c *conn) readLoop(handle func(domain.Frame) error) error {
	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		var frame domain.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return err
		}
		if err := handle(frame); err != nil {
			return err
		}
	}
}

// push enqueues frame for delivery without blocking the caller on a slow
// reader; a full queue closes the connection rather than deadlocking the
// registry's lock.
func (c *conn) push(frame domain.Frame) {
	select {
	case c.send <- frame:
	default:
		c.log.Warn("dropping connection with full send queue", "user", c.username.String())
		close(c.send)
	}
}
