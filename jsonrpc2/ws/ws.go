// Package ws carries JSONRPC payloads over websocket connections, one payload
// per message. The gorilla and gobwas subpackages provide implementations.
package ws

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/vipnode/junior/jsonrpc2"
)

// Conn is a message-oriented connection. Each message is a whole JSONRPC
// payload.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	Close() error
}

// Upgrader takes an HTTP request, upgrades it to a websocket server and
// returns a Conn. This allows switching between different websocket
// implementations.
type Upgrader interface {
	Upgrade(*http.Request, http.ResponseWriter, http.Header) (Conn, error)
}

// Serve answers payloads read from conn until reading fails. Every payload
// gets exactly one reply message, which is empty when the server has nothing
// to respond with, so that peers can treat each exchange as a blocking
// request/response.
func Serve(ctx context.Context, srv *jsonrpc2.Server, conn Conn) error {
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		out := srv.ServeJSON(ctx, msg)
		if out == nil {
			out = []byte{}
		}
		if err := conn.WriteMessage(out); err != nil {
			return err
		}
	}
}

// Handler upgrades HTTP requests with upgrader and serves srv over the
// resulting connection until it closes.
func Handler(srv *jsonrpc2.Server, upgrader Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(r, w, nil)
		if err != nil {
			logger.Debugf("Websocket upgrade error from %s: %s", r.RemoteAddr, err)
			return
		}
		defer conn.Close()
		if err := Serve(r.Context(), srv, conn); err != nil && err != io.EOF {
			logger.Debugf("Websocket connection from %s closed: %s", r.RemoteAddr, err)
		}
	}
}

var _ jsonrpc2.Transport = &Transport{}

// Transport is a jsonrpc2.Transport over a websocket connection served by
// Serve. Exchanges on the same connection are serialized.
type Transport struct {
	mu   sync.Mutex
	Conn Conn
}

// NewClient returns a jsonrpc2.Client that sends over conn.
func NewClient(conn Conn) *jsonrpc2.Client {
	return &jsonrpc2.Client{
		Transport: &Transport{Conn: conn},
	}
}

func (t *Transport) PostJSON(ctx context.Context, body []byte) ([]byte, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.Conn.WriteMessage(body); err != nil {
		return nil, err
	}
	return t.Conn.ReadMessage()
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.Conn.Close()
}
