package jsonrpc2

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"
)

// ParamsKind is the shape of a request's params.
type ParamsKind int

const (
	// NoParams is used when params are absent or null.
	NoParams ParamsKind = iota
	// PositionalParams is an ordered JSON array of values.
	PositionalParams
	// NamedParams is a JSON object of name to value.
	NamedParams
)

func (k ParamsKind) String() string {
	switch k {
	case PositionalParams:
		return "positional"
	case NamedParams:
		return "named"
	}
	return "none"
}

// Params holds the raw params of a request along with their shape.
type Params struct {
	Kind ParamsKind
	Raw  json.RawMessage
}

// ParseParams classifies raw params. Anything other than an array, an object
// or null is an error.
func ParseParams(raw json.RawMessage) (Params, error) {
	if len(raw) == 0 {
		return Params{}, nil
	}
	switch kindOf(raw) {
	case jx.Array:
		return Params{Kind: PositionalParams, Raw: raw}, nil
	case jx.Object:
		return Params{Kind: NamedParams, Raw: raw}, nil
	case jx.Null:
		return Params{}, nil
	}
	return Params{}, fmt.Errorf("params must be an array or an object: %s", raw)
}

// PositionalParamsOf encodes args as positional params. No args is encoded as
// an empty array, not as absent params.
func PositionalParamsOf(args ...interface{}) (Params, error) {
	if args == nil {
		args = []interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return Params{}, err
	}
	return Params{Kind: PositionalParams, Raw: raw}, nil
}

// NamedParamsOf encodes v, which must encode to a JSON object, as named
// params.
func NamedParamsOf(v interface{}) (Params, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Params{}, err
	}
	if kindOf(raw) != jx.Object {
		return Params{}, fmt.Errorf("named params must encode to an object, got: %s", raw)
	}
	return Params{Kind: NamedParams, Raw: raw}, nil
}

// Positional returns the raw values of positional params. It returns nil for
// NoParams.
func (p Params) Positional() ([]json.RawMessage, error) {
	if p.Kind != PositionalParams {
		return nil, nil
	}
	var values []json.RawMessage
	if err := json.Unmarshal(p.Raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Named returns the name to value mapping of named params. It returns nil for
// other kinds.
func (p Params) Named() (map[string]interface{}, error) {
	if p.Kind != NamedParams {
		return nil, nil
	}
	named := map[string]interface{}{}
	if err := json.Unmarshal(p.Raw, &named); err != nil {
		return nil, err
	}
	return named, nil
}

// Len returns the number of arguments the params supply to a method. Named
// params supply a single aggregate argument.
func (p Params) Len() (int, error) {
	switch p.Kind {
	case PositionalParams:
		values, err := p.Positional()
		return len(values), err
	case NamedParams:
		return 1, nil
	}
	return 0, nil
}
