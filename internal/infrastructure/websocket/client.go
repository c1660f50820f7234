package websocket

import (
	"github.com/gorilla/websocket"

	"basera/pkg/logger"
)

// Client is one live connection. A user with several devices has several
// clients, all members of the same user room.
type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

// ReadPump reads inbound events until the connection drops and hands each one
// to the hub dispatcher. Runs as its own goroutine per connection.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.detach(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for user %s: %v", c.UserID, err)
			}
			break
		}

		h.dispatch(c, raw)
	}
}

// WritePump drains the send channel onto the socket. The channel is closed by
// the hub on unregister, which ends the loop.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("WebSocket write error for user %s: %v", c.UserID, err)
			return
		}
	}

	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
