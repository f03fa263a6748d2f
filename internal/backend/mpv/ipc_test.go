package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
)

// fakeMpv speaks the server side of the IPC protocol over a pipe.
type fakeMpv struct {
	conn net.Conn
	sc   *bufio.Scanner
}

func newFake(t *testing.T) (*conn, *fakeMpv) {
	t.Helper()
	client, server := net.Pipe()
	c := newConn(client)
	t.Cleanup(func() { _ = c.close(); _ = server.Close() })
	return c, &fakeMpv{conn: server, sc: bufio.NewScanner(server)}
}

func (f *fakeMpv) recv(t *testing.T) request {
	t.Helper()
	if !f.sc.Scan() {
		t.Fatal("connection closed while waiting for a command")
	}
	var req request
	if err := json.Unmarshal(f.sc.Bytes(), &req); err != nil {
		t.Fatalf("bad command line %q: %v", f.sc.Text(), err)
	}
	return req
}

func (f *fakeMpv) send(t *testing.T, line string) {
	t.Helper()
	if _, err := f.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConn_CommandRoundTrip(t *testing.T) {
	c, fake := newFake(t)

	go func() {
		req := fake.recv(t)
		fake.send(t, fmt.Sprintf(`{"request_id":%d,"error":"success","data":42}`, req.RequestID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := c.command(ctx, "get_property", "volume")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil || v != 42 {
		t.Errorf("data = %s, want 42", data)
	}
}

func TestConn_CommandError(t *testing.T) {
	c, fake := newFake(t)

	go func() {
		req := fake.recv(t)
		fake.send(t, fmt.Sprintf(`{"request_id":%d,"error":"invalid parameter"}`, req.RequestID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.command(ctx, "loadfile"); err == nil {
		t.Fatal("expected an error for a failed command")
	}
}

func TestConn_ResponsesCorrelatedOutOfOrder(t *testing.T) {
	c, fake := newFake(t)

	// Collect both requests, then answer them in reverse order.
	go func() {
		first := fake.recv(t)
		second := fake.recv(t)
		fake.send(t, fmt.Sprintf(`{"request_id":%d,"error":"success","data":"second"}`, second.RequestID))
		fake.send(t, fmt.Sprintf(`{"request_id":%d,"error":"success","data":"first"}`, first.RequestID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type result struct {
		data json.RawMessage
		err  error
	}
	firstDone := make(chan result, 1)
	go func() {
		d, err := c.command(ctx, "one")
		firstDone <- result{d, err}
	}()
	// Give the first command time to hit the wire before the second.
	time.Sleep(50 * time.Millisecond)
	d2, err := c.command(ctx, "two")
	if err != nil {
		t.Fatalf("second command: %v", err)
	}
	r1 := <-firstDone
	if r1.err != nil {
		t.Fatalf("first command: %v", r1.err)
	}
	if string(r1.data) != `"first"` || string(d2) != `"second"` {
		t.Errorf("responses crossed: first=%s second=%s", r1.data, d2)
	}
}

func TestConn_CommandContextCancelled(t *testing.T) {
	c, fake := newFake(t)

	go func() { fake.recv(t) }() // read but never answer

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.command(ctx, "get_property", "pause"); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestConn_EventsDelivered(t *testing.T) {
	c, fake := newFake(t)

	fake.send(t, `{"event":"end-file","reason":"eof"}`)

	select {
	case msg := <-c.events:
		if msg.Event != "end-file" || msg.Reason != "eof" {
			t.Errorf("got %+v, want end-file/eof", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestConn_CloseUnblocksPending(t *testing.T) {
	c, fake := newFake(t)

	go func() { fake.recv(t) }()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.command(context.Background(), "get_property", "pause")
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)
	_ = c.close()

	select {
	case err := <-errCh:
		if backend.KindOf(err) != backend.KindTransient {
			t.Errorf("error kind = %v, want transient", backend.KindOf(err))
		}
	case <-time.After(time.Second):
		t.Fatal("pending command not unblocked by close")
	}
}
