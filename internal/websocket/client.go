package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	// sendBufferSize bounds queued change events per admin connection; the
	// hub drops messages for a client that falls this far behind.
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one connected admin UI session receiving appointment change
// events.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run attaches the client to the hub and pumps the connection until it
// closes, then detaches.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump drains inbound frames. The feed is one-way; reading only serves
// to notice the peer closing.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump forwards queued change events and pings idle connections so
// half-open sessions get reaped.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
