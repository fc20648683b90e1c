package jsonrpc2

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/go-faster/jx"
)

// Transport sends an encoded request payload and returns the raw response
// body. An empty body means the peer had nothing to respond with. Transports
// are blocking; cancellation and timeouts are up to the implementation.
type Transport interface {
	PostJSON(ctx context.Context, body []byte) ([]byte, error)
}

// Service represents a remote service that can be called.
type Service interface {
	Call(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

var _ Service = &Client{}

// Client builds requests and correlates their responses. It's safe for
// concurrent use if its Transport is.
type Client struct {
	Transport Transport

	id int64
}

// NextID returns a fresh request ID.
func (c *Client) NextID() int64 {
	return atomic.AddInt64(&c.id, 1)
}

func (c *Client) newRequest(method string, params Params) (*Request, error) {
	id, err := json.Marshal(c.NextID())
	if err != nil {
		return nil, err
	}
	return &Request{
		ID:      id,
		Version: Version,
		Method:  method,
		Params:  params,
	}, nil
}

// Request builds a request with positional params and a fresh ID.
func (c *Client) Request(method string, params ...interface{}) (*Request, error) {
	p, err := PositionalParamsOf(params...)
	if err != nil {
		return nil, err
	}
	return c.newRequest(method, p)
}

// NamedRequest builds a request with named params and a fresh ID. params must
// encode to a JSON object, such as a struct or a map.
func (c *Client) NamedRequest(method string, params interface{}) (*Request, error) {
	p, err := NamedParamsOf(params)
	if err != nil {
		return nil, err
	}
	return c.newRequest(method, p)
}

// Notification builds a request without an ID.
func (c *Client) Notification(method string, params ...interface{}) (*Request, error) {
	p, err := PositionalParamsOf(params...)
	if err != nil {
		return nil, err
	}
	return &Request{
		Version: Version,
		Method:  method,
		Params:  p,
	}, nil
}

// send hands the payload to the transport.
func (c *Client) send(ctx context.Context, payload interface{}) ([]byte, error) {
	if c.Transport == nil {
		return nil, ErrNoTransport
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.Transport.PostJSON(ctx, body)
}

// SendRequest sends a single request and returns its response. The response
// ID must match the request ID.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*ClientResponse, error) {
	if req.IsNotify() {
		return nil, ErrMissingID
	}
	body, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponse
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, DecodeError{Cause: err, Body: body}
	}
	if sent, received := compactID(req.ID), compactID(resp.ID); sent != received {
		if resp.Error != nil && received == "null" {
			// The whole payload was rejected before an ID could be read.
			return nil, resp.Error
		}
		return nil, IDMismatchError{Sent: sent, Received: received}
	}
	r := HandleResponse(&resp)
	return &r, nil
}

// SendNotify sends a notification and discards any response. It fails
// without sending anything if the request has an ID.
func (c *Client) SendNotify(ctx context.Context, req *Request) error {
	if !req.IsNotify() {
		return NotifyIDError{ID: compactID(req.ID)}
	}
	_, err := c.send(ctx, req)
	return err
}

// SendBatch sends reqs as a single batch and returns the responses keyed by
// the compact JSON encoding of their ID (for example `10` or `"abc"`). If
// every request is a notification, nothing is correlated and the returned map
// is nil.
//
// Request IDs must be unique within the batch, otherwise nothing is sent. The
// number of responses must equal the number of non-notification requests, and
// each response must answer a different sent request.
func (c *Client) SendBatch(ctx context.Context, reqs []*Request) (map[string]ClientResponse, error) {
	pending := map[string]struct{}{}
	for _, req := range reqs {
		if req.IsNotify() {
			continue
		}
		id := compactID(req.ID)
		if _, ok := pending[id]; ok {
			return nil, DuplicateIDError{ID: id}
		}
		pending[id] = struct{}{}
	}

	body, err := c.send(ctx, reqs)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var responses []Response
	switch kindOf(body) {
	case jx.Invalid:
		return nil, ErrEmptyResponse
	case jx.Object:
		// A single response to a batch is an error about the batch as a whole.
		var resp Response
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, DecodeError{Cause: err, Body: body}
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		responses = []Response{resp}
	default:
		if err := json.Unmarshal(body, &responses); err != nil {
			return nil, DecodeError{Cause: err, Body: body}
		}
	}

	if len(responses) != len(pending) {
		return nil, BatchSizeError{Sent: len(pending), Received: len(responses)}
	}
	for _, resp := range responses {
		id := compactID(resp.ID)
		if _, ok := pending[id]; !ok {
			// Unknown, or already answered by an earlier response.
			return nil, IDMismatchError{Received: id}
		}
		delete(pending, id)
	}
	return HandleBatchResponse(responses), nil
}

// Call sends a request with positional params and decodes its result into
// result. An error response is returned as an *ErrResponse.
func (c *Client) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	req, err := c.Request(method, params...)
	if err != nil {
		return err
	}
	resp, err := c.SendRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return resp.UnmarshalResult(result)
}

// Notify sends a notification with positional params.
func (c *Client) Notify(ctx context.Context, method string, params ...interface{}) error {
	req, err := c.Notification(method, params...)
	if err != nil {
		return err
	}
	return c.SendNotify(ctx, req)
}

// ClientResponse is the caller-facing projection of a Response: either
// Result, or ErrorCode and ErrorMessage when IsError is set.
type ClientResponse struct {
	ID           json.RawMessage
	Result       json.RawMessage
	IsError      bool
	ErrorCode    int
	ErrorMessage string
}

// Err returns the response's error as an *ErrResponse, or nil.
func (r *ClientResponse) Err() error {
	if !r.IsError {
		return nil
	}
	return newErrResponse(r.ErrorCode, r.ErrorMessage)
}

// UnmarshalResult decodes the result into v. A null or missing result leaves
// v untouched.
func (r *ClientResponse) UnmarshalResult(v interface{}) error {
	if v == nil || isNull(r.Result) {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

// HandleResponse projects a response into a ClientResponse.
func HandleResponse(resp *Response) ClientResponse {
	r := ClientResponse{
		ID: resp.ID,
	}
	if resp.Error != nil {
		r.IsError = true
		r.ErrorCode = resp.Error.Code
		r.ErrorMessage = resp.Error.Message
		return r
	}
	r.Result = resp.Result
	return r
}

// HandleBatchResponse projects batch responses into ClientResponses keyed by
// the compact JSON encoding of their ID. The order of responses is irrelevant.
func HandleBatchResponse(responses []Response) map[string]ClientResponse {
	out := make(map[string]ClientResponse, len(responses))
	for i := range responses {
		out[compactID(responses[i].ID)] = HandleResponse(&responses[i])
	}
	return out
}
