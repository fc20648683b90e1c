// Package gobwas implements ws.Conn using the gobwas/ws library.
package gobwas

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	jws "github.com/vipnode/junior/jsonrpc2/ws"
)

// Dial returns a client-side ws.Conn connected to url.
func Dial(ctx context.Context, url string) (jws.Conn, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return newConn(conn, br, ws.StateClientSide), nil
}

type rw struct {
	io.Reader
	io.Writer
}

func newConn(conn net.Conn, br *bufio.Reader, state ws.State) *wsConn {
	var r io.Reader = conn
	if br != nil {
		// Bytes that arrived with the handshake are read first.
		r = br
	}
	return &wsConn{
		conn:  conn,
		rw:    rw{r, conn},
		state: state,
	}
}

var _ jws.Conn = &wsConn{}

type wsConn struct {
	conn  net.Conn
	rw    rw
	state ws.State
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	var msg []byte
	var err error
	if c.state == ws.StateServerSide {
		msg, _, err = wsutil.ReadClientData(c.rw)
	} else {
		msg, _, err = wsutil.ReadServerData(c.rw)
	}
	return msg, err
}

func (c *wsConn) WriteMessage(msg []byte) error {
	if c.state == ws.StateServerSide {
		return wsutil.WriteServerMessage(c.conn, ws.OpText, msg)
	}
	return wsutil.WriteClientMessage(c.conn, ws.OpText, msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

var _ jws.Upgrader = &Upgrader{}

// Upgrader upgrades an HTTP request to a WebSocket request and returns the
// appropriate ws.Conn.
type Upgrader struct {
	Upgrader ws.HTTPUpgrader
}

func (u *Upgrader) Upgrade(r *http.Request, w http.ResponseWriter, h http.Header) (jws.Conn, error) {
	conn, brw, _, err := u.Upgrader.Upgrade(r, w)
	if err != nil {
		return nil, err
	}
	var br *bufio.Reader
	if brw != nil {
		br = brw.Reader
	}
	return newConn(conn, br, ws.StateServerSide), nil
}
