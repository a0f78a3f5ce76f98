package analysis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Transport handles the analysis server's line-delimited JSON protocol
// over stdio. Each message is one JSON object terminated by a newline;
// there is no framing header. Requests carry string IDs, responses echo
// them, and server-initiated messages carry an "event" key instead.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[string]chan *Response
	handlers map[string]EventHandler

	closed atomic.Bool
	done   chan struct{}
}

// EventHandler handles a notification event from the server.
type EventHandler func(event string, params json.RawMessage)

// Request represents an outbound analysis server request.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response represents an inbound analysis server response.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RequestError   `json:"error,omitempty"`
}

// event is used to parse incoming notifications.
type event struct {
	Event  string          `json:"event"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewTransport creates a new transport over the given connection.
// The reader and writer are typically the server process's stdout and
// stdin pipes.
func NewTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	t := &Transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		closer:   c,
		pending:  make(map[string]chan *Response),
		handlers: make(map[string]EventHandler),
		done:     make(chan struct{}),
	}
	return t
}

// Start begins reading messages from the connection.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close closes the transport and releases resources.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}

	close(t.done)

	// Cancel all pending requests by clearing the map.
	// We don't close the channels to avoid race conditions with
	// handleResponse. Callers waiting on pending channels will receive
	// from t.done instead.
	t.mu.Lock()
	t.pending = make(map[string]chan *Response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Call sends a request and waits for the matching response. The decoded
// result is stored into result when non-nil. A server-reported failure
// is returned as a *RequestError.
func (t *Transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := strconv.FormatInt(t.nextID.Add(1), 10)
	ch := make(chan *Response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &Request{
		ID:     id,
		Method: method,
		Params: params,
	}

	if err := t.send(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp, ok := <-ch:
		if !ok {
			return ErrShutdown
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

// Notify sends a request without waiting for its response. Used for
// subscription setup where the reply carries nothing of interest.
func (t *Transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	req := &Request{
		ID:     strconv.FormatInt(t.nextID.Add(1), 10),
		Method: method,
		Params: params,
	}

	return t.send(req)
}

// OnEvent registers a handler for a server notification event. The
// handler name "*" receives events with no dedicated handler.
func (t *Transport) OnEvent(name string, handler EventHandler) {
	t.mu.Lock()
	t.handlers[name] = handler
	t.mu.Unlock()
}

// send writes one newline-terminated JSON message, stamping the client
// request time the server uses for latency accounting.
func (t *Transport) send(msg *Request) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	data, err = sjson.SetBytes(data, "clientRequestTime", time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("stamp request time: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if _, err := t.writer.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	return nil
}

// readLoop reads newline-delimited messages from the connection.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if len(line) > 0 {
				t.dispatch(bytes.TrimSpace(line))
			}
			if t.closed.Load() {
				return
			}
			if err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		t.dispatch(line)
	}
}

// dispatch routes a message to the appropriate handler. Lines that are
// not valid JSON objects are skipped; the server interleaves no other
// output on stdout, so anything else is noise.
func (t *Transport) dispatch(data []byte) {
	if !gjson.ValidBytes(data) {
		return
	}

	// Responses carry "id"; notifications carry "event".
	if id := gjson.GetBytes(data, "id"); id.Exists() {
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		t.handleResponse(&resp)
		return
	}

	if ev := gjson.GetBytes(data, "event"); ev.Exists() {
		var notif event
		if err := json.Unmarshal(data, &notif); err != nil {
			return
		}
		t.handleEvent(&notif)
	}
}

// handleResponse routes a response to its waiting caller.
func (t *Transport) handleResponse(resp *Response) {
	if t.closed.Load() {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		// Remove from pending while holding lock to prevent races
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
			// Channel full, drop response
		}
	}
}

// handleEvent routes a notification to its handler.
func (t *Transport) handleEvent(notif *event) {
	t.mu.Lock()
	handler, ok := t.handlers[notif.Event]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.mu.Unlock()

	if ok && handler != nil {
		// Run handler in goroutine to avoid blocking read loop
		go handler(notif.Event, notif.Params)
	}
}

// IsClosed returns true if the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}
