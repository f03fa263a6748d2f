package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/tlagarde/chorus/internal/backend"
)

const eventBacklog = 64

// message is one line of mpv's JSON IPC protocol. Responses carry
// request_id and error; asynchronous events carry event.
type message struct {
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// conn wraps the IPC socket. Requests are correlated to responses by
// request_id; asynchronous events arrive on the events channel, which
// is closed when the socket goes away.
type conn struct {
	mu      sync.Mutex
	sock    net.Conn
	nextID  int
	pending map[int]chan message

	events    chan message
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(sock net.Conn) *conn {
	c := &conn{
		sock:    sock,
		pending: make(map[int]chan message),
		events:  make(chan message, eventBacklog),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

type request struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// command sends an mpv command and waits for its response.
func (c *conn) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	c.mu.Lock()
	_, werr := c.sock.Write(append(payload, '\n'))
	c.mu.Unlock()
	if werr != nil {
		c.forget(id)
		return nil, backend.Errorf(backend.KindTransient, "mpv ipc", "write command: %v", werr)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.closed:
		return nil, backend.Errorf(backend.KindTransient, "mpv ipc", "connection closed")
	}
}

func (c *conn) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *conn) readLoop() {
	defer c.shutdown()
	sc := bufio.NewScanner(c.sock)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		var msg message
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			continue // skip malformed line
		}
		if msg.Event != "" {
			select {
			case c.events <- msg:
			default: // backlog full, drop
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.events)
	})
}

func (c *conn) close() error {
	return c.sock.Close()
}
