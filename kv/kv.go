// Package kv is a small key-value service meant to be exposed over JSONRPC.
// Values are arbitrary JSON.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/vipnode/junior/jsonrpc2"
	"github.com/vipnode/junior/kv/store"
)

// ErrCodeNotFound is the error code returned for keys that don't exist.
const ErrCodeNotFound = 404

// StatusResponse is returned by Service.Status.
type StatusResponse struct {
	Version string `json:"version"`
	NumKeys int    `json:"num_keys"`
}

// SetArgs are the named arguments of Service.Set.
type SetArgs struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Service is the RPC-exposed key-value service.
type Service struct {
	Store   store.Store
	Version string
}

func notFound(key string) error {
	data, _ := json.Marshal(key)
	return &jsonrpc2.ErrResponse{
		Code:    ErrCodeNotFound,
		Message: "Key not found.",
		Data:    data,
	}
}

// Get returns the value stored under key.
func (s *Service) Get(key string) (json.RawMessage, error) {
	v, err := s.Store.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(key)
	}
	return v, err
}

// Set stores args.Value under args.Key. It's usually called with named params:
//
//	{"method": "kv_set", "params": {"key": "foo", "value": [1, 2]}}
func (s *Service) Set(args SetArgs) error {
	value, err := json.Marshal(args.Value)
	if err != nil {
		return err
	}
	logger.Debugf("Set %q: %d bytes", args.Key, len(value))
	return s.Store.Set(args.Key, value)
}

// Delete removes key.
func (s *Service) Delete(key string) error {
	err := s.Store.Delete(key)
	if errors.Is(err, store.ErrNotFound) {
		return notFound(key)
	}
	return err
}

// Keys returns the sorted keys matching any of the prefixes, or all keys if
// no prefix is given.
func (s *Service) Keys(ctx context.Context, prefixes ...string) ([]string, error) {
	if len(prefixes) == 0 {
		return s.Store.Keys("")
	}
	seen := map[string]struct{}{}
	keys := []string{}
	for _, prefix := range prefixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.Store.Keys(prefix)
		if err != nil {
			return nil, err
		}
		for _, k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Status returns the service version and the number of stored keys.
func (s *Service) Status() (*StatusResponse, error) {
	keys, err := s.Store.Keys("")
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		Version: s.Version,
		NumKeys: len(keys),
	}, nil
}
