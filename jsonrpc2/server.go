package jsonrpc2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/vipnode/junior/internal/pretty"
	"golang.org/x/sync/errgroup"
)

// Server contains the method registry and dispatches requests against it.
type Server struct {
	// MaxConcurrency is the number of batch elements dispatched at once. Zero
	// or one dispatches batch elements sequentially. Responses are always in
	// request order.
	MaxConcurrency int

	registry map[string]Method
}

// Register adds valid methods from the receiver to the registry with the given
// prefix. Method names are lowercased.
func (s *Server) Register(prefix string, receiver interface{}) error {
	if strings.HasPrefix(prefix, ReservedPrefix) {
		return fmt.Errorf("method prefix must not start with %q: %s", ReservedPrefix, prefix)
	}
	if !validMethodPrefix.MatchString(prefix) {
		return fmt.Errorf("method prefix must only contain letters, digits and underscores: %q", prefix)
	}
	if s.registry == nil {
		s.registry = map[string]Method{}
	}

	methods, err := Methods(receiver)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for name, m := range methods {
		buf.WriteString(prefix)
		buf.WriteRune(unicode.ToLower(rune(name[0])))
		buf.WriteString(name[1:])
		s.registry[buf.String()] = m
		buf.Reset()
	}
	return nil
}

// MethodNames returns the sorted names of all callable methods.
func (s *Server) MethodNames() []string {
	names := make([]string, 0, len(s.registry))
	for name, m := range s.registry {
		if m.Hidden {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle dispatches a single request. It returns nil when no response should
// be sent, which is only the case for a notification that succeeded. A
// notification that fails still gets an error response.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	r := &Response{
		ID: req.ID,
	}
	if err := req.Validate(); err != nil {
		r.Error = err
		return r
	}
	m, ok := s.registry[req.Method]
	if !ok {
		r.Error = newErrResponse(ErrCodeMethodNotFound, msgMethodNotFound)
		return r
	}
	logger.Debugf("Dispatching %s (%s params)", req.Method, req.Params.Kind)
	res, err := m.CallParams(ctx, req.Params)
	if err != nil {
		r.Error = callError(err)
		return r
	}
	if req.IsNotify() {
		return nil
	}
	if r.Result, err = json.Marshal(res); err != nil {
		r.Error = newErrResponse(ErrCodeInternal, fmt.Sprintf("failed to encode response: %s", err))
	}
	return r
}

// callError converts an error from a method call into an error response.
// Methods may return an *ErrResponse to pick their own code.
func callError(err error) *ErrResponse {
	var errResp *ErrResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return newErrResponse(ErrCodeException, err.Error())
}

// HandleBatch dispatches each request of a batch independently and returns
// the responses in request order, without the nil responses of successful
// notifications. A failing element never affects its siblings.
func (s *Server) HandleBatch(ctx context.Context, reqs []*Request) []*Response {
	results := make([]*Response, len(reqs))

	limit := s.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = s.Handle(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	responses := results[:0]
	for _, resp := range results {
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses
}

// ServeJSON handles a raw request body and returns the raw response body. It
// returns nil when there is nothing to respond with: a successful
// notification, or a batch made only of successful notifications.
//
// Errors that apply to the body as a whole (malformed JSON, an empty batch)
// produce a single error response, never wrapped in an array.
func (s *Server) ServeJSON(ctx context.Context, body []byte) []byte {
	reqs, batch, perr := Parse(body)
	if perr != nil {
		logger.Debugf("Rejecting request body %s: %s", pretty.Abbrev(string(body), 64), perr)
		return encodeResponse(&Response{Error: perr})
	}
	if !batch {
		resp := s.Handle(ctx, reqs[0])
		if resp == nil {
			return nil
		}
		return encodeResponse(resp)
	}

	responses := s.HandleBatch(ctx, reqs)
	if len(responses) == 0 {
		return nil
	}
	encoded := make([][]byte, 0, len(responses))
	for _, resp := range responses {
		encoded = append(encoded, encodeResponse(resp))
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(bytes.Join(encoded, []byte(",")))
	buf.WriteByte(']')
	return buf.Bytes()
}

func encodeResponse(resp *Response) []byte {
	// MarshalJSON on Response does not fail.
	b, _ := resp.MarshalJSON()
	return b
}
