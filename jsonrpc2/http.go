package jsonrpc2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"
)

const httpContentType = "application/json"

var _ http.Handler = &HTTPServer{}

// HTTPServer provides a JSONRPC2 server over HTTP by implementing http.Handler.
type HTTPServer struct {
	Server

	// MaxContentLength is the request size limit (optional)
	MaxContentLength int64
	// Limiter rejects requests with 429 when exhausted (optional)
	Limiter *rate.Limiter
	// OmitContentType skips setting the JSON content type on responses, for
	// hosts that manage headers themselves.
	OmitContentType bool
}

func (h *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.ContentLength == 0 && r.URL.RawQuery == "" {
		// Ignore empty GET requests
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if h.MaxContentLength > 0 && r.ContentLength > h.MaxContentLength {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	body, err := readBody(r.Body, h.MaxContentLength)
	if err != nil {
		logger.Debugf("Failed to read request body from %s: %s", r.RemoteAddr, err)
		code := http.StatusBadRequest
		if _, ok := err.(ContentLengthError); ok {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, TransportReadError{Cause: err}.Error(), code)
		return
	}

	if !h.OmitContentType {
		w.Header().Set("Content-Type", httpContentType)
	}
	out := h.Server.ServeJSON(r.Context(), body)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, err := w.Write(out); err != nil {
		logger.Debugf("Failed to write response to %s: %s", r.RemoteAddr, err)
	}
}

// readBody reads all of r, failing if it's larger than limit when limit is
// positive.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return ioutil.ReadAll(r)
	}
	body, err := ioutil.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ContentLengthError{Limit: limit}
	}
	return body, nil
}

var _ Transport = &HTTPTransport{}

var defaultHTTPClient = cleanhttp.DefaultClient()

// HTTPTransport posts JSONRPC payloads to an HTTP endpoint.
type HTTPTransport struct {
	// Endpoint is the HTTP URL to post RPC payloads to.
	Endpoint string
	// HTTPClient is used to make requests, defaults to a non-pooled client.
	HTTPClient *http.Client
	// MaxContentLength is the response size limit (optional)
	MaxContentLength int64
}

// DialHTTP returns a Client that posts to endpoint.
func DialHTTP(endpoint string) *Client {
	return &Client{
		Transport: &HTTPTransport{Endpoint: endpoint},
	}
}

func (t *HTTPTransport) PostJSON(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", httpContentType)
	req.Header.Set("Accept", httpContentType)
	if ctx != nil {
		req = req.WithContext(ctx)
	}

	client := t.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, HTTPRequestError{
			Response: resp,
			Reason:   fmt.Sprintf("bad status code: %d", resp.StatusCode),
		}
	}
	if t.MaxContentLength > 0 && resp.ContentLength > t.MaxContentLength {
		return nil, HTTPRequestError{
			Response: resp,
			Reason:   "response too large",
		}
	}

	out, err := readBody(resp.Body, t.MaxContentLength)
	if err != nil {
		return nil, HTTPRequestError{
			Response: resp,
			Reason:   err.Error(),
		}
	}
	return out, nil
}

// HTTPRequestError is used when RPC over HTTP encounters an error during transport.
type HTTPRequestError struct {
	Response *http.Response
	Reason   string
}

func (err HTTPRequestError) Error() string {
	return fmt.Sprintf("http rpc request error: %s", err.Reason)
}

// TransportReadError is used when the server can't read a request body. It's
// reported by the transport, not as a JSONRPC error, since no envelope exists.
type TransportReadError struct {
	Cause error
}

func (err TransportReadError) Error() string {
	return fmt.Sprintf("Server unable to read request body: %s", err.Cause)
}

// ContentLengthError is used when a body exceeds the configured size limit.
type ContentLengthError struct {
	Limit int64
}

func (err ContentLengthError) Error() string {
	return fmt.Sprintf("body exceeds limit of %d bytes", err.Limit)
}
