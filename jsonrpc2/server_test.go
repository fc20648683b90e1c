package jsonrpc2

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func newFruitServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{}
	if err := s.Register("", &FruitService{}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServer(t *testing.T) {
	service := &FruitService{}
	s := Server{}
	if err := s.Register("foo_", service); err != nil {
		t.Error(err)
	}

	resp := s.Handle(context.Background(), &Request{
		ID:      json.RawMessage([]byte("1")),
		Version: Version,
		Method:  "foo_apple",
	})
	if resp.Error != nil {
		t.Errorf("unexpected error: %q", resp)
	}

	if string(resp.Result) != `"Apple"` {
		t.Errorf("unexpected result: %q", resp.Result)
	}
	if string(resp.ID) != "1" {
		t.Errorf("unexpected id: %q", resp.ID)
	}

	resp = s.Handle(context.Background(), &Request{
		ID:      json.RawMessage([]byte("2")),
		Version: Version,
		Method:  "foo_banana",
	})
	if resp.Error != nil {
		t.Errorf("unexpected error: %q", resp)
	}

	if string(resp.Result) != "null" {
		t.Errorf("unexpected result: %q", resp.Result)
	}

	resp = s.Handle(context.Background(), &Request{
		Version: Version,
		Method:  "foo_cherry",
	})
	if resp != nil {
		t.Errorf("unexpected response to notification: %q", resp)
	}
}

func TestServerRegister(t *testing.T) {
	s := Server{}
	if err := s.Register("rpc.", &FruitService{}); err == nil {
		t.Error("expected error for reserved prefix")
	}
	for _, prefix := range []string{"kv.", "fruit-", "a b_", "ünï_"} {
		if err := s.Register(prefix, &FruitService{}); err == nil {
			t.Errorf("expected error for prefix %q", prefix)
		}
	}
	if len(s.MethodNames()) != 0 {
		t.Errorf("rejected prefixes registered methods: %v", s.MethodNames())
	}
	if err := s.Register("fruit_", &FruitService{}); err != nil {
		t.Fatal(err)
	}
	names := s.MethodNames()
	if len(names) == 0 || names[0] != "fruit_apple" {
		t.Errorf("unexpected method names: %v", names)
	}
	for _, name := range names {
		if name == "fruit_lemon" {
			t.Errorf("hidden method listed: %s", name)
		}
	}
}

func TestServeJSON(t *testing.T) {
	s := newFruitServer(t)

	testCases := []struct {
		name string
		body string
		want string // empty means no response
	}{
		{
			"Call",
			`{"jsonrpc":"2.0","method":"apple","id":1}`,
			`{"jsonrpc":"2.0","result":"Apple","id":1}`,
		},
		{
			"CallStringID",
			`{"jsonrpc":"2.0","method":"cherry","id":"abc"}`,
			`{"jsonrpc":"2.0","result":"Cherry","id":"abc"}`,
		},
		{
			"Positional",
			`{"jsonrpc":"2.0","method":"elderberry","params":[1,"!"],"id":2}`,
			`{"jsonrpc":"2.0","result":"elderberry!","id":2}`,
		},
		{
			"Named",
			`{"jsonrpc":"2.0","method":"fig","params":{"apples":2,"pears":3},"id":3}`,
			`{"jsonrpc":"2.0","result":5,"id":3}`,
		},
		{
			"Notify",
			`{"jsonrpc":"2.0","method":"apple"}`,
			``,
		},
		{
			"NotifyNullID",
			`{"jsonrpc":"2.0","method":"apple","id":null}`,
			``,
		},
		{
			"NotifyFailure",
			`{"jsonrpc":"2.0","method":"durian"}`,
			`{"jsonrpc":"2.0","error":{"code":-32099,"message":"durian failure"},"id":null}`,
		},
		{
			"NotifyInvalid",
			`{"method":"apple"}`,
			`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request."},"id":null}`,
		},
		{
			"MethodNotFound",
			`{"jsonrpc":"2.0","method":"zucchini","id":4}`,
			`{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found."},"id":4}`,
		},
		{
			"UnexportedMethodName",
			`{"jsonrpc":"2.0","method":"Apple","id":4}`,
			`{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found."},"id":4}`,
		},
		{
			"Exception",
			`{"jsonrpc":"2.0","method":"durian","id":5}`,
			`{"jsonrpc":"2.0","error":{"code":-32099,"message":"durian failure"},"id":5}`,
		},
		{
			"Panic",
			`{"jsonrpc":"2.0","method":"honeydew","id":6}`,
			`{"jsonrpc":"2.0","error":{"code":-32099,"message":"honeydew exploded"},"id":6}`,
		},
		{
			"NotAccessible",
			`{"jsonrpc":"2.0","method":"lemon","id":7}`,
			`{"jsonrpc":"2.0","error":{"code":-32099,"message":"Called method is not publicly accessible."},"id":7}`,
		},
		{
			"TooFewParams",
			`{"jsonrpc":"2.0","method":"elderberry","params":[1],"id":8}`,
			`{"jsonrpc":"2.0","error":{"code":-32099,"message":"Too few parameters passed."},"id":8}`,
		},
		{
			"CustomErrorCode",
			`{"jsonrpc":"2.0","method":"mango","id":9}`,
			`{"jsonrpc":"2.0","error":{"code":42,"message":"no mangoes"},"id":9}`,
		},
		{
			"ParseError",
			`[bad:json::]`,
			`{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error."},"id":null}`,
		},
		{
			"EmptyBody",
			``,
			`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request."},"id":null}`,
		},
		{
			"EmptyBatch",
			`[]`,
			`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request."},"id":null}`,
		},
		{
			"MismatchedVersion",
			`{"jsonrpc":"1.0","method":"apple","id":10}`,
			`{"jsonrpc":"2.0","error":{"code":-32002,"message":"Client/Server JSON-RPC version mismatch; Expected '2.0'"},"id":10}`,
		},
		{
			"Batch",
			`[{"jsonrpc":"2.0","method":"apple","id":10},{"jsonrpc":"2.0","method":"apple","id":10},{"jsonrpc":"2.0","method":"apple","id":10}]`,
			`[{"jsonrpc":"2.0","result":"Apple","id":10},{"jsonrpc":"2.0","result":"Apple","id":10},{"jsonrpc":"2.0","result":"Apple","id":10}]`,
		},
		{
			"BatchMixed",
			`[{"jsonrpc":"2.0","method":"apple","id":1},{"jsonrpc":"2.0","method":"apple"},1,{"jsonrpc":"2.0","method":"durian","id":3}]`,
			`[{"jsonrpc":"2.0","result":"Apple","id":1},{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid request."},"id":null},{"jsonrpc":"2.0","error":{"code":-32099,"message":"durian failure"},"id":3}]`,
		},
		{
			"BatchNotifications",
			`[{"jsonrpc":"2.0","method":"apple"},{"jsonrpc":"2.0","method":"banana"}]`,
			``,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.ServeJSON(context.Background(), []byte(tc.body))
			if tc.want == "" {
				if got != nil {
					t.Errorf("expected no response, got: %s", got)
				}
				return
			}
			if string(got) != tc.want {
				t.Errorf("wrong response:\n   got: %s\n  want: %s", got, tc.want)
			}
		})
	}
}

func TestServeJSONReservedPrefix(t *testing.T) {
	s := newFruitServer(t)
	got := s.ServeJSON(context.Background(), []byte(`{"jsonrpc":"2.0","method":"rpc.apple","id":1}`))
	var resp Response
	if err := json.Unmarshal(got, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeReservedPrefix {
		t.Errorf("expected reserved prefix error, got: %s", got)
	}
	if string(resp.ID) != "1" {
		t.Errorf("wrong id: %s", resp.ID)
	}
}

func TestServeJSONConcurrentBatch(t *testing.T) {
	s := newFruitServer(t)
	s.MaxConcurrency = 4

	var reqs, want []string
	for i := 1; i <= 20; i++ {
		if i%5 == 0 {
			reqs = append(reqs, fmt.Sprintf(`{"jsonrpc":"2.0","method":"honeydew","id":%d}`, i))
			want = append(want, fmt.Sprintf(`{"jsonrpc":"2.0","error":{"code":-32099,"message":"honeydew exploded"},"id":%d}`, i))
			continue
		}
		reqs = append(reqs, fmt.Sprintf(`{"jsonrpc":"2.0","method":"elderberry","params":[1,"%d"],"id":%d}`, i, i))
		want = append(want, fmt.Sprintf(`{"jsonrpc":"2.0","result":"elderberry%d","id":%d}`, i, i))
	}

	got := s.ServeJSON(context.Background(), []byte("["+strings.Join(reqs, ",")+"]"))
	if string(got) != "["+strings.Join(want, ",")+"]" {
		t.Errorf("wrong batch response:\n   got: %s\n  want: [%s]", got, strings.Join(want, ","))
	}
}
