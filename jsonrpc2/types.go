package jsonrpc2

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"
)

// Version is the only protocol version spoken by this package.
const Version = "2.0"

// ReservedPrefix is reserved for rpc-internal methods and is never dispatched.
const ReservedPrefix = "rpc."

const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeException      = -32099

	// Server-defined codes for requests that are well-formed JSON-RPC but
	// can't be accepted.
	ErrCodeReservedPrefix    = -32001
	ErrCodeMismatchedVersion = -32002
)

const (
	msgParse             = "Parse error."
	msgInvalidRequest    = "Invalid request."
	msgMethodNotFound    = "Method not found."
	msgReservedPrefix    = "Illegal method name; Method cannot start with 'rpc.'"
	msgMismatchedVersion = "Client/Server JSON-RPC version mismatch; Expected '2.0'"
)

// Request is a single JSONRPC call. A Request without an ID is a
// notification.
type Request struct {
	ID      json.RawMessage
	Version string
	Method  string
	Params  Params

	// err is set when the request could not be decoded as a request envelope.
	err *ErrResponse
}

// IsNotify returns true if the request has no ID (absent or null).
func (req *Request) IsNotify() bool {
	return isNull(req.ID)
}

func (req *Request) String() string {
	b, _ := json.Marshal(req)
	return string(b)
}

type wireRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// MarshalJSON encodes the request envelope. Params and ID are omitted when
// they're absent.
func (req Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{
		Version: req.Version,
		Method:  req.Method,
		ID:      req.ID,
	}
	if req.Params.Kind != NoParams {
		w.Params = req.Params.Raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a request envelope. Decoding never fails: a malformed
// envelope is kept with an invalid request error that Validate reports.
func (req *Request) UnmarshalJSON(data []byte) error {
	*req = *decodeRequest(data)
	return nil
}

// Response is a single JSONRPC response. Exactly one of Result or Error is
// encoded.
type Response struct {
	ID     json.RawMessage
	Result json.RawMessage
	Error  *ErrResponse
}

func (resp *Response) String() string {
	b, _ := resp.MarshalJSON()
	return string(b)
}

// MarshalJSON encodes the response envelope with a fixed key order:
// jsonrpc, then result or error, then id. A missing ID is encoded as null.
func (resp Response) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("jsonrpc")
	e.Str(Version)
	if resp.Error != nil {
		e.FieldStart("error")
		e.ObjStart()
		e.FieldStart("code")
		e.Int(resp.Error.Code)
		e.FieldStart("message")
		e.Str(resp.Error.Message)
		if len(resp.Error.Data) > 0 {
			e.FieldStart("data")
			e.Raw(resp.Error.Data)
		}
		e.ObjEnd()
	} else {
		e.FieldStart("result")
		rawOrNull(&e, resp.Result)
	}
	e.FieldStart("id")
	rawOrNull(&e, resp.ID)
	e.ObjEnd()
	return e.Bytes(), nil
}

type wireResponse struct {
	Version string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrResponse    `json:"error"`
	ID      json.RawMessage `json:"id"`
}

func (resp *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*resp = Response{
		ID:     w.ID,
		Result: w.Result,
		Error:  w.Error,
	}
	return nil
}

// ErrResponse is a JSONRPC error object. It's used as the error value for
// protocol-level failures.
type ErrResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (err *ErrResponse) Error() string {
	return fmt.Sprintf("%d: %s", err.Code, err.Message)
}

// ErrorCode returns the JSONRPC error code.
func (err *ErrResponse) ErrorCode() int {
	return err.Code
}

func newErrResponse(code int, message string) *ErrResponse {
	return &ErrResponse{Code: code, Message: message}
}

func rawOrNull(e *jx.Encoder, raw json.RawMessage) {
	if len(raw) == 0 {
		e.Null()
		return
	}
	e.Raw(raw)
}
