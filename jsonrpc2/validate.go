package jsonrpc2

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/go-faster/jx"
)

// validMethodName matches method names made of letters, digits and
// underscores with at least one letter or digit.
var validMethodName = regexp.MustCompile(`^[A-Za-z0-9_]*[A-Za-z0-9][A-Za-z0-9_]*$`)

// validMethodPrefix matches prefixes that keep registered names valid.
var validMethodPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Parse decodes a raw request body. batch is true when the body is a JSON
// array, in which case reqs holds one Request per element in order. When the
// body as a whole is unusable, no requests are returned and perr is the error
// to respond with: ErrCodeParse for malformed JSON, ErrCodeInvalidRequest for
// empty input, an empty array, or a top-level value that isn't an object or
// an array.
//
// A malformed element within a batch does not fail the batch; the element is
// returned with an invalid request error that its Validate reports.
func Parse(data []byte) (reqs []*Request, batch bool, perr *ErrResponse) {
	kind := kindOf(data)
	if kind == jx.Invalid {
		// Nothing to decode at all.
		return nil, false, newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
	}
	if !json.Valid(data) {
		return nil, false, newErrResponse(ErrCodeParse, msgParse)
	}

	switch kind {
	case jx.Object:
		return []*Request{decodeRequest(data)}, false, nil
	case jx.Array:
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, false, newErrResponse(ErrCodeParse, msgParse)
		}
		if len(elems) == 0 {
			return nil, false, newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
		}
		reqs = make([]*Request, 0, len(elems))
		for _, elem := range elems {
			reqs = append(reqs, decodeRequest(elem))
		}
		return reqs, true, nil
	}
	return nil, false, newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
}

// decodeRequest decodes a single request envelope. If the envelope is
// malformed, the returned request carries an invalid request error and as
// much of the ID as could be recovered.
func decodeRequest(raw json.RawMessage) *Request {
	var w wireRequest
	if kindOf(raw) != jx.Object || json.Unmarshal(raw, &w) != nil {
		req := &Request{err: newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)}
		var partial struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(raw, &partial) == nil {
			req.ID = partial.ID
		}
		return req
	}

	req := &Request{
		ID:      w.ID,
		Version: w.Version,
		Method:  w.Method,
	}
	params, err := ParseParams(w.Params)
	if err != nil {
		req.err = newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
		return req
	}
	req.Params = params
	return req
}

// Validate returns nil if the request can be dispatched, or the error to
// respond with. Checks run in order and the first failure wins:
//
//  1. An error from decoding the envelope is returned as is.
//  2. A missing version or method is ErrCodeInvalidRequest.
//  3. A method starting with ReservedPrefix is ErrCodeReservedPrefix.
//  4. A method that isn't an identifier is ErrCodeInvalidRequest.
//  5. A version other than Version is ErrCodeMismatchedVersion.
//
// Validate does not modify the request.
func (req *Request) Validate() *ErrResponse {
	switch {
	case req.err != nil:
		return req.err
	case req.Version == "" || req.Method == "":
		return newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
	case strings.HasPrefix(req.Method, ReservedPrefix):
		return newErrResponse(ErrCodeReservedPrefix, msgReservedPrefix)
	case !validMethodName.MatchString(req.Method):
		return newErrResponse(ErrCodeInvalidRequest, msgInvalidRequest)
	case req.Version != Version:
		return newErrResponse(ErrCodeMismatchedVersion, msgMismatchedVersion)
	}
	return nil
}
