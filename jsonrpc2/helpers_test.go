package jsonrpc2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type FruitService struct{}

func (f *FruitService) Apple() string {
	return "Apple"
}

func (f *FruitService) Banana() error {
	return nil
}

func (f *FruitService) Cherry() (string, error) {
	return "Cherry", nil
}

func (f *FruitService) Durian() error {
	return errors.New("durian failure")
}

func (f *FruitService) Elderberry(n int, suffix string) string {
	return strings.Repeat("elderberry", n) + suffix
}

type Basket struct {
	Apples int `json:"apples"`
	Pears  int `json:"pears"`
}

func (f *FruitService) Fig(basket Basket) int {
	return basket.Apples + basket.Pears
}

func (f *FruitService) Grape(args map[string]interface{}) int {
	return len(args)
}

func (f *FruitService) Honeydew() string {
	panic("honeydew exploded")
}

func (f *FruitService) Kiwi(ctx context.Context, names ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(names, ","), nil
}

type lemon struct{}

func (f *FruitService) Lemon(l lemon) string {
	return "sour"
}

func (f *FruitService) Mango() error {
	return &ErrResponse{Code: 42, Message: "no mangoes"}
}

func assertEqualJSON(t *testing.T, a, b interface{}, format string, args ...interface{}) {
	t.Helper()

	aa, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	bb, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Compare(aa, bb) != 0 {
		prefix := fmt.Sprintf(format, args...)
		t.Errorf(prefix+"\n   got: %q\n  want: %q", aa, bb)
	}
}

// fakeTransport records sent payloads and returns a canned reply.
type fakeTransport struct {
	sent  [][]byte
	reply []byte
	err   error
}

func (t *fakeTransport) PostJSON(ctx context.Context, body []byte) ([]byte, error) {
	t.sent = append(t.sent, body)
	return t.reply, t.err
}
