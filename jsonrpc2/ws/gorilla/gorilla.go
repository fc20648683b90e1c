// Package gorilla implements ws.Conn using Gorilla's Websocket library.
package gorilla

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vipnode/junior/jsonrpc2/ws"
)

// Dial returns a client-side ws.Conn connected to url.
func Dial(ctx context.Context, url string) (ws.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

var _ ws.Conn = &wsConn{}

type wsConn struct {
	muWrite sync.Mutex
	muRead  sync.Mutex
	conn    *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	c.muRead.Lock()
	defer c.muRead.Unlock()
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

func (c *wsConn) WriteMessage(msg []byte) error {
	c.muWrite.Lock()
	defer c.muWrite.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

var _ ws.Upgrader = &Upgrader{}

// Upgrader upgrades an HTTP request to a WebSocket request and returns the
// appropriate ws.Conn.
type Upgrader struct {
	Upgrader websocket.Upgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (ws.Conn, error) {
	conn, err := u.Upgrader.Upgrade(w, r, h)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}
