package jsonrpc2

import (
	"context"
)

var _ Transport = LocalTransport{}

// LocalTransport is a Transport for an in-process Server. It's like an
// HTTPTransport, but without the network.
type LocalTransport struct {
	Server *Server
}

func (loc LocalTransport) PostJSON(ctx context.Context, body []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return loc.Server.ServeJSON(ctx, body), nil
}

// Local returns a Client that calls srv directly.
func Local(srv *Server) *Client {
	return &Client{
		Transport: LocalTransport{Server: srv},
	}
}
