package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/vipnode/junior/internal/pretty"
	"github.com/vipnode/junior/jsonrpc2"
	"github.com/vipnode/junior/jsonrpc2/ws"
	"github.com/vipnode/junior/jsonrpc2/ws/gorilla"
)

// parseArg decodes a command line argument as JSON, falling back to a plain
// string when it isn't valid JSON.
func parseArg(arg string) interface{} {
	if !json.Valid([]byte(arg)) {
		return arg
	}
	return json.RawMessage(arg)
}

func dialEndpoint(ctx context.Context, endpoint string) (*jsonrpc2.Client, io.Closer, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "http", "https":
		return jsonrpc2.DialHTTP(endpoint), nil, nil
	case "ws", "wss":
		conn, err := gorilla.Dial(ctx, endpoint)
		if err != nil {
			return nil, nil, ErrExplain{err, "Failed to connect to the websocket RPC API."}
		}
		return ws.NewClient(conn), conn, nil
	}
	return nil, nil, ErrExplain{fmt.Errorf("unsupported endpoint scheme: %q", u.Scheme), "Endpoint must be an http(s):// or ws(s):// URL."}
}

func buildRequest(client *jsonrpc2.Client, method string, args []string, named bool, notify bool) (*jsonrpc2.Request, error) {
	if named {
		if len(args) != 1 {
			return nil, ErrExplain{fmt.Errorf("expected one params argument, got %d", len(args)), `Named params must be a single JSON object, such as '{"key": "foo"}'.`}
		}
		req, err := client.NamedRequest(method, json.RawMessage(args[0]))
		if err != nil {
			return nil, ErrExplain{err, `Named params must be a single JSON object, such as '{"key": "foo"}'.`}
		}
		if notify {
			req.ID = nil
		}
		return req, nil
	}

	params := make([]interface{}, 0, len(args))
	for _, arg := range args {
		params = append(params, parseArg(arg))
	}
	if notify {
		return client.Notification(method, params...)
	}
	return client.Request(method, params...)
}

func runCall(options Options, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), options.Call.Timeout)
	defer cancel()

	client, closer, err := dialEndpoint(ctx, options.Call.Endpoint)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	req, err := buildRequest(client, options.Call.Args.Method, options.Call.Args.Params, options.Call.Named, options.Call.Notify)
	if err != nil {
		return err
	}
	logger.Debugf("Sending %s to %s", pretty.Abbrev(req.String(), 256), options.Call.Endpoint)

	if options.Call.Notify {
		return client.SendNotify(ctx, req)
	}
	resp, err := client.SendRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", resp.Result)
	return err
}
