package jsonrpc2

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned when a request that expects a response has no ID.
var ErrMissingID = errors.New("jsonrpc2: request has no id")

// ErrEmptyResponse is returned when a response was expected but the transport
// returned an empty body.
var ErrEmptyResponse = errors.New("jsonrpc2: empty response")

// ErrNoTransport is returned when a Client is used without a Transport.
var ErrNoTransport = errors.New("jsonrpc2: client has no transport")

// IDMismatchError is returned when a response can't be correlated to the
// request that was sent.
type IDMismatchError struct {
	Sent     string
	Received string
}

func (err IDMismatchError) Error() string {
	if err.Sent == "" {
		return fmt.Sprintf("response id does not match any request id: %s", err.Received)
	}
	return fmt.Sprintf("response id does not match request id: %s != %s", err.Received, err.Sent)
}

// BatchSizeError is returned when the number of responses to a batch differs
// from the number of non-notification requests in it.
type BatchSizeError struct {
	Sent     int
	Received int
}

func (err BatchSizeError) Error() string {
	return fmt.Sprintf("batch size mismatch: sent %d requests expecting a response, received %d responses", err.Sent, err.Received)
}

// NotifyIDError is returned when a notification is sent with an ID.
type NotifyIDError struct {
	ID string
}

func (err NotifyIDError) Error() string {
	return fmt.Sprintf("notification must not have an id: %s", err.ID)
}

// DuplicateIDError is returned when a batch has more than one request with
// the same ID, since their responses could not be told apart.
type DuplicateIDError struct {
	ID string
}

func (err DuplicateIDError) Error() string {
	return fmt.Sprintf("batch has more than one request with id: %s", err.ID)
}

// DecodeError is returned when a response body can't be decoded.
type DecodeError struct {
	Cause error
	Body  []byte
}

func (err DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %s", err.Cause)
}

func (err DecodeError) Unwrap() error {
	return err.Cause
}
