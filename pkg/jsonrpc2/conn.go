package jsonrpc2

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Stream is the minimal byte-stream contract a Connection needs: a message
// Reader, a message Writer, and a way to tear the whole thing down. Each
// transport (stdio, HTTP+SSE, in-memory) produces one Stream per session.
type Stream interface {
	Reader
	Writer
	Close() error
}

// Handler processes an inbound Request and returns its result, or an error
// (preferably a *WireError so the caller controls the wire code; spec §7).
type Handler func(ctx context.Context, req *Request) (any, error)

// NotificationHandler processes an inbound Notification. It has no return
// path to the peer; spec §4.3 says unknown notifications are dropped at
// debug, which is what a Connection does when its NotificationHandler is nil.
type NotificationHandler func(ctx context.Context, n *Notification)

// Options configures a Connection's worker pool and logging.
type Options struct {
	// NumWorkers bounds concurrent inbound-request dispatch (spec §4.2,
	// "configurable number of worker threads"). Zero means 1.
	NumWorkers int
	Logger     *slog.Logger
}

// outstanding is one entry in the outstanding-request table (spec §3): the
// completion channel the caller awaits, guarded so it completes exactly
// once (spec §8 property 2).
type outstanding struct {
	done chan struct{}
	res  json.RawMessage
	err  error
}

// Connection is the RPC Runtime (spec §4.3): request-id allocation, the
// outstanding-request table, response/notification demultiplexing, and a
// bounded worker pool for dispatching inbound requests.
type Connection struct {
	stream Stream
	handle Handler
	notify NotificationHandler
	logger *slog.Logger

	nextID int64 // atomic, monotonic per connection (spec §4.3)

	mu          sync.Mutex
	outstanding map[string]*outstanding
	closed      bool

	sem *semaphore.Weighted

	readDone chan struct{}
	closeErr error
	closeOne sync.Once
}

// NewConnection constructs a Connection over stream but does not start its
// read loop; call Start once the caller has finished wiring up anything the
// handler closures depend on (e.g. a *ServerSession built from this same
// Connection), to avoid publishing a handler that can observe a half
// constructed dependency. Inbound requests are dispatched onto a bounded
// worker pool and handled with handle, inbound notifications with notify.
func NewConnection(stream Stream, handle Handler, notify NotificationHandler, opts *Options) *Connection {
	numWorkers := 1
	var logger *slog.Logger
	if opts != nil {
		if opts.NumWorkers > 0 {
			numWorkers = opts.NumWorkers
		}
		logger = opts.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		stream:      stream,
		handle:      handle,
		notify:      notify,
		logger:      logger,
		outstanding: make(map[string]*outstanding),
		sem:         semaphore.NewWeighted(int64(numWorkers)),
		readDone:    make(chan struct{}),
	}
	return c
}

// Start begins the read loop in the background. It must be called exactly
// once per Connection.
func (c *Connection) Start() {
	go c.readLoop()
}

func idKey(id ID) string { return id.String() + "/" + fmt.Sprintf("%T", id.Raw()) }

// Call sends a Request and blocks until the matching Response arrives, ctx
// is done, or the connection closes. The returned error preserves a
// *WireError from the peer verbatim.
func (c *Connection) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	id := Int64ID(atomic.AddInt64(&c.nextID, 1))
	entry := &outstanding{done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, NewError(CodeInternalError, "connection closed")
	}
	c.outstanding[idKey(id)] = entry
	c.mu.Unlock()

	if err := c.stream.Write(ctx, &Request{ID: id, Method: method, Params: raw}); err != nil {
		c.completeOnce(idKey(id), nil, err)
		return nil, err
	}

	select {
	case <-entry.done:
		return entry.res, entry.err
	case <-ctx.Done():
		c.completeOnce(idKey(id), nil, ctx.Err())
		return nil, ctx.Err()
	}
}

// Notify sends a one-way Notification; there is nothing to await.
func (c *Connection) Notify(ctx context.Context, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return NewError(CodeInternalError, "connection closed")
	}
	return c.stream.Write(ctx, &Notification{Method: method, Params: raw})
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(params)
}

// completeOnce resolves an outstanding entry at most once; later callers
// (e.g. a late response after a timeout already fired) are no-ops, matching
// spec §8 property 2.
func (c *Connection) completeOnce(key string, res json.RawMessage, err error) {
	c.mu.Lock()
	entry, ok := c.outstanding[key]
	if ok {
		delete(c.outstanding, key)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	entry.res, entry.err = res, err
	close(entry.done)
}

func (c *Connection) readLoop() {
	defer close(c.readDone)
	ctx := context.Background()
	for {
		msg, err := c.stream.Read(ctx)
		if err != nil {
			if mle, ok := err.(*MalformedLineError); ok {
				c.logger.Error("malformed message, skipping", "error", mle)
				continue
			}
			c.shutdown(err)
			return
		}
		switch m := msg.(type) {
		case *Response:
			c.handleResponse(m)
		case *Notification:
			c.handleNotification(m)
		case *Request:
			c.dispatchRequest(m)
		}
	}
}

func (c *Connection) handleResponse(resp *Response) {
	key := idKey(resp.ID)
	var err error
	if resp.Error != nil {
		err = resp.Error
	}
	c.mu.Lock()
	_, ok := c.outstanding[key]
	c.mu.Unlock()
	if !ok {
		// Orphan response: no outstanding request with this id (spec §4.3).
		c.logger.Debug("dropping orphan response", "id", resp.ID.String())
		return
	}
	c.completeOnce(key, resp.Result, err)
}

// handleNotification runs the notification handler on a worker goroutine,
// the same way dispatchRequest does for calls, so a slow or blocking
// subscriber callback cannot stall the read loop's inbound demux (spec §4.5:
// callbacks run off the connection's read path).
func (c *Connection) handleNotification(n *Notification) {
	if c.notify == nil {
		c.logger.Debug("dropping unhandled notification", "method", n.Method)
		return
	}
	if err := c.sem.Acquire(context.Background(), 1); err != nil {
		c.logger.Error("dropping notification, worker pool unavailable", "method", n.Method, "error", err)
		return
	}
	go func() {
		defer c.sem.Release(1)
		c.notify(context.Background(), n)
	}()
}

// dispatchRequest hands an inbound call to a worker. Per spec §4.2, a worker
// rejected by a shut-down executor surfaces -32000 to the requester.
func (c *Connection) dispatchRequest(req *Request) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.reply(req.ID, nil, NewError(CodeServerOverloaded, "server overloaded"))
		return
	}
	if err := c.sem.Acquire(context.Background(), 1); err != nil {
		c.reply(req.ID, nil, NewError(CodeServerOverloaded, "server overloaded"))
		return
	}
	go func() {
		defer c.sem.Release(1)
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			c.reply(req.ID, nil, NewError(CodeServerOverloaded, "server overloaded"))
			return
		}
		if c.handle == nil {
			c.reply(req.ID, nil, NewError(CodeMethodNotFound, "method not found: "+req.Method))
			return
		}
		res, err := c.handle(context.Background(), req)
		c.reply(req.ID, res, err)
	}()
}

func (c *Connection) reply(id ID, result any, err error) {
	var raw json.RawMessage
	var werr *WireError
	if err != nil {
		if we, ok := err.(*WireError); ok {
			werr = we
		} else {
			werr = NewError(CodeInternalError, err.Error())
		}
	} else {
		raw, err = marshalParams(result)
		if err != nil {
			werr = NewError(CodeInternalError, err.Error())
		}
	}
	if writeErr := c.stream.Write(context.Background(), &Response{ID: id, Result: raw, Error: werr}); writeErr != nil {
		c.logger.Debug("failed to write response", "error", writeErr)
	}
}

// shutdown is invoked once the read loop observes a transport-level error
// (EOF, closed pipe, ...): every outstanding request is failed with a
// transport-closed error (spec §4.3 Shutdown, §7).
func (c *Connection) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.outstanding
	c.outstanding = make(map[string]*outstanding)
	c.mu.Unlock()

	for key, entry := range pending {
		entry.err = fmt.Errorf("transport closed: %w", cause)
		close(entry.done)
		delete(pending, key)
	}
}

// Close shuts the connection down: it closes the underlying stream, then
// fails every outstanding request with "transport closed". Close is
// idempotent (spec §8 property 7).
func (c *Connection) Close() error {
	c.closeOne.Do(func() {
		c.closeErr = c.stream.Close()
		c.shutdown(fmt.Errorf("connection closed"))
	})
	<-c.readDone
	return c.closeErr
}

// Wait blocks until the read loop has exited, e.g. after the peer closes
// the transport.
func (c *Connection) Wait() {
	<-c.readDone
}
