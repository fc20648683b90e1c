package jsonrpc2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func requestWithID(id int) *Request {
	return &Request{
		ID:      json.RawMessage(strconv.Itoa(id)),
		Version: Version,
		Method:  "foo",
	}
}

func responsesJSON(ids ...int) []byte {
	var parts []string
	for _, id := range ids {
		if id%2 == 0 {
			parts = append(parts, fmt.Sprintf(`{"jsonrpc":"2.0","result":"r%d","id":%d}`, id, id))
		} else {
			parts = append(parts, fmt.Sprintf(`{"jsonrpc":"2.0","error":{"code":%d,"message":"e%d"},"id":%d}`, id, id, id))
		}
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}

func TestClientRequestIDs(t *testing.T) {
	c := Client{}
	req, err := c.Request("foo", 1, "two")
	if err != nil {
		t.Fatal(err)
	}
	if string(req.ID) != "1" || req.Params.Kind != PositionalParams || req.Version != Version {
		t.Errorf("unexpected request: %s", req)
	}
	req, err = c.NamedRequest("foo", map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(req.ID) != "2" || req.Params.Kind != NamedParams {
		t.Errorf("unexpected request: %s", req)
	}
	if _, err := c.NamedRequest("foo", []int{1}); err == nil {
		t.Error("expected error for non-object named params")
	}
	req, err = c.Notification("foo")
	if err != nil {
		t.Fatal(err)
	}
	if !req.IsNotify() {
		t.Errorf("notification has an id: %s", req)
	}
}

func TestClientConcurrentIDs(t *testing.T) {
	c := Client{}
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := c.NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if got, want := len(seen), workers*perWorker; got != want {
		t.Errorf("id collision: got %d unique ids; want %d", got, want)
	}
}

func TestSendRequest(t *testing.T) {
	t.Run("GoodID", func(t *testing.T) {
		transport := &fakeTransport{reply: []byte(`{"jsonrpc":"2.0","result":"foo","id":10}`)}
		c := Client{Transport: transport}
		resp, err := c.SendRequest(context.Background(), requestWithID(10))
		if err != nil {
			t.Fatal(err)
		}
		want := &ClientResponse{ID: json.RawMessage("10"), Result: json.RawMessage(`"foo"`)}
		if diff := cmp.Diff(want, resp); diff != "" {
			t.Errorf("response mismatch (-want +got):\n%s", diff)
		}
		if got, want := string(transport.sent[0]), `{"jsonrpc":"2.0","method":"foo","id":10}`; got != want {
			t.Errorf("wrong payload sent:\n   got: %s\n  want: %s", got, want)
		}
	})

	t.Run("BadID", func(t *testing.T) {
		transport := &fakeTransport{reply: []byte(`{"jsonrpc":"2.0","result":"foo","id":11}`)}
		c := Client{Transport: transport}
		resp, err := c.SendRequest(context.Background(), requestWithID(10))
		var mismatch IDMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected IDMismatchError, got: %v", err)
		}
		if mismatch.Sent != "10" || mismatch.Received != "11" {
			t.Errorf("wrong mismatch: %+v", mismatch)
		}
		if resp != nil {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("Notification", func(t *testing.T) {
		transport := &fakeTransport{}
		c := Client{Transport: transport}
		if _, err := c.SendRequest(context.Background(), &Request{Version: Version, Method: "foo"}); err != ErrMissingID {
			t.Errorf("expected ErrMissingID, got: %v", err)
		}
		if len(transport.sent) != 0 {
			t.Errorf("transport was called")
		}
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{}}
		if _, err := c.SendRequest(context.Background(), requestWithID(1)); err != ErrEmptyResponse {
			t.Errorf("expected ErrEmptyResponse, got: %v", err)
		}
	})

	t.Run("BadResponseJSON", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: []byte(`{bad:json,}`)}}
		_, err := c.SendRequest(context.Background(), requestWithID(1))
		if _, ok := err.(DecodeError); !ok {
			t.Errorf("expected DecodeError, got: %T %v", err, err)
		}
	})

	t.Run("TransportError", func(t *testing.T) {
		failure := errors.New("not.there")
		c := Client{Transport: &fakeTransport{err: failure}}
		if _, err := c.SendRequest(context.Background(), requestWithID(1)); err != failure {
			t.Errorf("expected transport error, got: %v", err)
		}
	})

	t.Run("NoTransport", func(t *testing.T) {
		c := Client{}
		if _, err := c.SendRequest(context.Background(), requestWithID(1)); err != ErrNoTransport {
			t.Errorf("expected ErrNoTransport, got: %v", err)
		}
	})

	t.Run("RejectedPayload", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: []byte(`{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error."},"id":null}`)}}
		_, err := c.SendRequest(context.Background(), requestWithID(1))
		if errResp, ok := err.(*ErrResponse); !ok || errResp.Code != ErrCodeParse {
			t.Errorf("expected parse error, got: %v", err)
		}
	})
}

func TestSendNotify(t *testing.T) {
	transport := &fakeTransport{reply: []byte("ignored")}
	c := Client{Transport: transport}
	if err := c.SendNotify(context.Background(), &Request{Version: Version, Method: "foo"}); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if len(transport.sent) != 1 {
		t.Errorf("wrong number of sends: %d", len(transport.sent))
	}

	transport = &fakeTransport{}
	c = Client{Transport: transport}
	err := c.SendNotify(context.Background(), requestWithID(10))
	if _, ok := err.(NotifyIDError); !ok {
		t.Errorf("expected NotifyIDError, got: %v", err)
	}
	if len(transport.sent) != 0 {
		t.Errorf("transport was called for a notification with an id")
	}
}

func TestSendBatch(t *testing.T) {
	var reqs []*Request
	for i := 10; i <= 15; i++ {
		reqs = append(reqs, requestWithID(i))
	}

	t.Run("Good", func(t *testing.T) {
		// Responses arrive out of order.
		transport := &fakeTransport{reply: responsesJSON(13, 10, 15, 11, 14, 12)}
		c := Client{Transport: transport}
		got, err := c.SendBatch(context.Background(), reqs)
		if err != nil {
			t.Fatal(err)
		}

		want := map[string]ClientResponse{}
		for i := 10; i <= 15; i++ {
			key := strconv.Itoa(i)
			if i%2 == 0 {
				want[key] = ClientResponse{ID: json.RawMessage(key), Result: json.RawMessage(fmt.Sprintf(`"r%d"`, i))}
			} else {
				want[key] = ClientResponse{ID: json.RawMessage(key), IsError: true, ErrorCode: i, ErrorMessage: fmt.Sprintf("e%d", i)}
			}
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
		if !strings.HasPrefix(string(transport.sent[0]), `[{"jsonrpc":"2.0","method":"foo","id":10},`) {
			t.Errorf("batch not sent as an array: %s", transport.sent[0])
		}
	})

	t.Run("TooFew", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: responsesJSON(10, 11, 12, 13)}}
		_, err := c.SendBatch(context.Background(), reqs)
		if got, want := err, (BatchSizeError{Sent: 6, Received: 4}); got != want {
			t.Errorf("got error %v; want %v", got, want)
		}
	})

	t.Run("TooMany", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: responsesJSON(10, 11, 12, 13, 14, 15, 16, 17)}}
		_, err := c.SendBatch(context.Background(), reqs)
		if got, want := err, (BatchSizeError{Sent: 6, Received: 8}); got != want {
			t.Errorf("got error %v; want %v", got, want)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: responsesJSON(10, 11, 12, 13, 14, 99)}}
		_, err := c.SendBatch(context.Background(), reqs)
		if _, ok := err.(IDMismatchError); !ok {
			t.Errorf("expected IDMismatchError, got: %v", err)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		// 10 is answered twice and 11 never.
		c := Client{Transport: &fakeTransport{reply: responsesJSON(10, 10)}}
		_, err := c.SendBatch(context.Background(), []*Request{requestWithID(10), requestWithID(11)})
		if got, want := err, (IDMismatchError{Received: "10"}); got != want {
			t.Errorf("got error %v; want %v", got, want)
		}
	})

	t.Run("DuplicateRequestID", func(t *testing.T) {
		transport := &fakeTransport{reply: responsesJSON(10, 10)}
		c := Client{Transport: transport}
		batch := []*Request{requestWithID(10), requestWithID(11), requestWithID(10)}
		_, err := c.SendBatch(context.Background(), batch)
		if got, want := err, (DuplicateIDError{ID: "10"}); got != want {
			t.Errorf("got error %v; want %v", got, want)
		}
		if len(transport.sent) != 0 {
			t.Errorf("batch with duplicate ids was sent: %s", transport.sent)
		}
	})

	t.Run("Notifications", func(t *testing.T) {
		var notes []*Request
		for i := 0; i < 6; i++ {
			notes = append(notes, &Request{Version: Version, Method: "foo"})
		}
		transport := &fakeTransport{}
		c := Client{Transport: transport}
		got, err := c.SendBatch(context.Background(), notes)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("unexpected correlation for notifications: %v", got)
		}
		if len(transport.sent) != 1 {
			t.Errorf("wrong number of sends: %d", len(transport.sent))
		}
	})

	t.Run("MixedNotifications", func(t *testing.T) {
		mixed := append([]*Request{{Version: Version, Method: "foo"}}, reqs[:2]...)
		c := Client{Transport: &fakeTransport{reply: responsesJSON(11, 10)}}
		got, err := c.SendBatch(context.Background(), mixed)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("wrong number of responses: %d", len(got))
		}
	})

	t.Run("RejectedBatch", func(t *testing.T) {
		c := Client{Transport: &fakeTransport{reply: []byte(`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request."},"id":null}`)}}
		_, err := c.SendBatch(context.Background(), reqs)
		if errResp, ok := err.(*ErrResponse); !ok || errResp.Code != ErrCodeInvalidRequest {
			t.Errorf("expected invalid request error, got: %v", err)
		}
	})
}

func TestHandleResponse(t *testing.T) {
	good := Response{ID: json.RawMessage("1"), Result: json.RawMessage(`"foo"`)}
	bad := Response{ID: json.RawMessage("2"), Error: &ErrResponse{Code: 1, Message: "foo"}}

	if diff := cmp.Diff(ClientResponse{ID: good.ID, Result: good.Result}, HandleResponse(&good)); diff != "" {
		t.Errorf("good response mismatch (-want +got):\n%s", diff)
	}
	errResp := HandleResponse(&bad)
	if diff := cmp.Diff(ClientResponse{ID: bad.ID, IsError: true, ErrorCode: 1, ErrorMessage: "foo"}, errResp); diff != "" {
		t.Errorf("error response mismatch (-want +got):\n%s", diff)
	}
	if err := errResp.Err(); err == nil || err.Error() != "1: foo" {
		t.Errorf("wrong error: %v", err)
	}

	batch := HandleBatchResponse([]Response{bad, good})
	if got := batch["1"].Result; string(got) != `"foo"` {
		t.Errorf("wrong result for id 1: %s", got)
	}
	if got := batch["2"]; got.ErrorCode != 1 || got.ErrorMessage != "foo" {
		t.Errorf("wrong error for id 2: %+v", got)
	}
}

func TestClientLocalCall(t *testing.T) {
	c := Local(newFruitServer(t))

	var got string
	if err := c.Call(context.Background(), &got, "apple"); err != nil {
		t.Fatal(err)
	}
	if want := "Apple"; got != want {
		t.Errorf("got %q; want %q", got, want)
	}

	err := c.Call(context.Background(), &got, "durian")
	if errResp, ok := err.(*ErrResponse); !ok || errResp.Code != ErrCodeException || errResp.Message != "durian failure" {
		t.Errorf("expected durian failure, got: %v", err)
	}

	if err := c.Notify(context.Background(), "banana"); err != nil {
		t.Errorf("unexpected notify error: %s", err)
	}

	a, err := c.Request("apple")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.NamedRequest("fig", Basket{Apples: 1, Pears: 2})
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Notification("banana")
	if err != nil {
		t.Fatal(err)
	}
	batch, err := c.SendBatch(context.Background(), []*Request{a, n, b})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(batch[string(a.ID)].Result); got != `"Apple"` {
		t.Errorf("wrong apple result: %s", got)
	}
	if got := string(batch[string(b.ID)].Result); got != "3" {
		t.Errorf("wrong fig result: %s", got)
	}
}
