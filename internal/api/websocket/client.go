package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for the first auth message
	authWait = 10 * time.Second

	maxMessageSize = 8192
	sendBufferSize = 256
)

// Upgrader accepts every origin; CORS is enforced on the REST side.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscription struct {
	folder   string
	nodeName string
}

// Client represents a WebSocket client connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	logger     *zap.Logger
	remoteAddr string
	identity   *auth.Identity
	registered bool
	sub        atomic.Pointer[subscription]
}

// wants reports whether an event for folder/nodeName passes the
// client's subscription. Untargeted messages reach everyone.
func (c *Client) wants(folder, nodeName string) bool {
	sub := c.sub.Load()
	if sub == nil || (folder == "" && nodeName == "") {
		return true
	}
	if sub.folder != "" && sub.folder != folder {
		return false
	}
	return sub.nodeName == "" || sub.nodeName == nodeName
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		if !c.registered {
			close(c.send)
			return
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		if c.registered {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		return nil
	})

	if c.hub.authRequired() {
		c.conn.SetReadDeadline(time.Now().Add(authWait))
	} else {
		c.identity = auth.LocalIdentity()
		if !c.join() {
			return
		}
	}

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr))
			}
			return
		}

		// First message must be authentication
		if c.identity == nil {
			if !c.authenticate(msg) {
				return
			}
			if !c.join() {
				return
			}
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) authenticate(msg ClientMessage) bool {
	if msg.Type != MessageTypeAuth {
		c.queue(NewMessage(MessageTypeAuthFailed, AuthFailedData{Reason: "first message must be authentication"}))
		return false
	}
	if msg.Token == "" {
		c.queue(NewMessage(MessageTypeAuthFailed, AuthFailedData{Reason: "missing token in auth message"}))
		return false
	}

	identity, err := c.hub.authService.ValidateToken(context.Background(), msg.Token)
	if err != nil {
		c.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remote_addr", c.remoteAddr))
		c.queue(NewMessage(MessageTypeAuthFailed, AuthFailedData{Reason: "invalid or expired token"}))
		return false
	}

	c.identity = identity
	c.logger.Info("WebSocket client authenticated",
		zap.String("remote_addr", c.remoteAddr),
		zap.String("name", identity.Name))
	return true
}

// join confirms the session and registers the client with the hub.
func (c *Client) join() bool {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.queue(NewMessage(MessageTypeAuthSuccess, AuthSuccessData{
		Name:        c.identity.Name,
		Permissions: c.identity.Permissions,
	}))

	select {
	case c.hub.register <- c:
		c.registered = true
		return true
	case <-c.hub.done:
		return false
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.sub.Store(&subscription{folder: msg.Folder, nodeName: msg.NodeName})
		c.logger.Debug("WebSocket client subscribed",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("folder", msg.Folder),
			zap.String("node", msg.NodeName))
	default:
		c.logger.Debug("Ignoring client message",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("type", string(msg.Type)))
	}
}

// queue is only used before the client is registered or from readPump,
// where nothing else closes c.send.
func (c *Client) queue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests. The client is registered
// with the hub once it is authenticated.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		logger:     hub.logger,
		remoteAddr: conn.RemoteAddr().String(),
	}

	go client.writePump()
	go client.readPump()
}
