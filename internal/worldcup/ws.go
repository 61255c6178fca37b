package worldcup

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"worldcup-service/internal/deck"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The service sits behind the gateway, which checks origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one WebSocket connection attached to a pass.
type wsClient struct {
	sess    *session
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.passFor(r)
	if err != nil {
		writeDeckError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("worldcup-service: ws upgrade: %v", err)
		return
	}

	client := &wsClient{
		sess:    sess,
		conn:    conn,
		send:    make(chan []byte, 64),
		limiter: s.wsLimiter(),
	}
	if !sess.addClient(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "pass closed"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	// Greet with the current state.
	_, _ = sess.do(func(*deck.Controller) error { return nil })
}

func (c *wsClient) readPump() {
	defer func() {
		c.sess.removeClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("worldcup-service: ws read: %v", err)
			}
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply("error", map[string]string{"error": "invalid JSON"})
			continue
		}
		c.handle(msg)
	}
}

// handle applies one inbound frame. Moves beyond the rate limit are dropped;
// releases, media ends and decisions always go through.
func (c *wsClient) handle(msg wsMessage) {
	var fn func(ctrl *deck.Controller) error
	switch msg.Type {
	case "move":
		if !c.limiter.Allow() {
			return
		}
		fn = func(ctrl *deck.Controller) error {
			ctrl.Move(msg.DX, msg.DY)
			return nil
		}
	case "release":
		fn = func(ctrl *deck.Controller) error {
			ctrl.Release(msg.DX, msg.DY)
			return nil
		}
	case "ended":
		fn = func(ctrl *deck.Controller) error {
			ctrl.MediaEnded(msg.MediaRef)
			return nil
		}
	case "decide":
		if !msg.Verdict.Valid() {
			c.reply("error", map[string]any{"error": "verdict must be YES or NO", "status": http.StatusBadRequest})
			return
		}
		fn = func(ctrl *deck.Controller) error {
			return ctrl.Decide(msg.Verdict)
		}
	default:
		c.reply("error", map[string]string{"error": "unknown message type " + msg.Type})
		return
	}

	if _, err := c.sess.do(fn); err != nil {
		c.reply("error", map[string]any{"error": err.Error(), "status": statusFor(err)})
	}
}

func (c *wsClient) reply(typ string, payload any) {
	data, err := json.Marshal(wsEnvelope{Type: typ, Payload: payload})
	if err != nil {
		return
	}
	c.sess.mu.Lock()
	defer c.sess.mu.Unlock()
	if _, ok := c.sess.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The session closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("worldcup-service: ws write: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
