package rpc

import (
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/memflow/memflowd/internal/arena"
	"github.com/memflow/memflowd/internal/table"
)

type testClient struct {
	conn net.Conn
}

func (c *testClient) call(t *testing.T, method string, payload any) Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	reqBody, err := json.Marshal(Request{Method: method, Payload: body})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := writeFrame(c.conn, reqBody); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	respBody, err := readFrame(c.conn)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func newTestServer(t *testing.T) *testClient {
	t.Helper()

	a, err := arena.New(1 << 16)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	tbl := table.New(a)
	folder := t.TempDir()

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := NewServer(tbl, folder, log.WithField("component", "rpc"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go srv.handleConn(mustAccept(t, ln))

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	return &testClient{conn: clientConn}
}

func mustAccept(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return conn
}

func TestServerCreateSetGetRoundTrip(t *testing.T) {
	c := newTestServer(t)

	resp := c.call(t, "Create", createRequest{Size: 32, Type: "int"})
	if !resp.OK {
		t.Fatalf("Create failed: %+v", resp)
	}
	var created createResult
	if err := json.Unmarshal(resp.Result, &created); err != nil {
		t.Fatalf("unmarshal create result: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("created id is zero")
	}

	resp = c.call(t, "Set", setRequest{ID: created.ID, Value: "42"})
	if !resp.OK {
		t.Fatalf("Set failed: %+v", resp)
	}

	resp = c.call(t, "Get", idRequest{ID: created.ID})
	if !resp.OK {
		t.Fatalf("Get failed: %+v", resp)
	}
	var got getResult
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatalf("unmarshal get result: %v", err)
	}
	if got.Value != "42" {
		t.Fatalf("Get value = %q, want %q", got.Value, "42")
	}
}

func TestServerGetUnknownIDReturnsNotFound(t *testing.T) {
	c := newTestServer(t)

	resp := c.call(t, "Get", idRequest{ID: 9999})
	if resp.OK || resp.Error != "NotFound" {
		t.Fatalf("Get unknown id: got %+v, want error NotFound", resp)
	}
}

func TestServerIncDecRefOnUnknownIDIsNoop(t *testing.T) {
	c := newTestServer(t)

	resp := c.call(t, "IncreaseRefCount", idRequest{ID: 9999})
	if !resp.OK {
		t.Fatalf("IncreaseRefCount on unknown id: got %+v, want ok", resp)
	}
	resp = c.call(t, "DecreaseRefCount", idRequest{ID: 9999})
	if !resp.OK {
		t.Fatalf("DecreaseRefCount on unknown id: got %+v, want ok", resp)
	}
}
