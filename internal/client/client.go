// SPDX-License-Identifier: MIT
/*
Package client implements the debug client: one connection to the debug
listener per process, the init handshake that assigns a client id, and
fire-and-forget delivery of log envelopes.

Lifecycle:

	closed --Connect--> connecting --dial ok--> open --Disconnect/read error--> closed
	                               \--dial error-----------------------------> closed

There is exactly one connection attempt. Nothing is retried or queued while
the client is not open; such sends are dropped and counted.

Goroutines:
  - one dial goroutine, exiting once the connection is open or failed
  - one writer, the only goroutine that writes to the connection
  - one reader, which adopts the client id and feeds the Display
*/
package client

import (
	"context"
	"sync"
	"sync/atomic"

	"wsconsole/internal/envelope"
	applog "wsconsole/internal/log"
	"wsconsole/internal/transport"
)

// DefaultQueueSize is the outbound buffer used when Options.QueueSize is 0.
const DefaultQueueSize = 256

// State is the connection state of a Client.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// DropReason says why a record was not transmitted.
type DropReason string

const (
	DropNotOpen   DropReason = "not_open"
	DropQueueFull DropReason = "queue_full"
	DropEncode    DropReason = "encode"
)

// Display receives every inbound message, init included.
type Display interface {
	Show(msgType string, data map[string]any)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(msgType string, data map[string]any)

// Show calls f.
func (f DisplayFunc) Show(msgType string, data map[string]any) { f(msgType, data) }

// LogDisplay prints inbound messages to the local log.
type LogDisplay struct{}

// Show logs "<type> <data>" at info level.
func (LogDisplay) Show(msgType string, data map[string]any) {
	applog.Info(msgType, data)
}

// Options configures a Client. The zero value is usable.
type Options struct {
	Display   Display                                    // Defaults to LogDisplay.
	QueueSize int                                        // Outbound buffer; DefaultQueueSize if 0.
	OnDrop    func(reason DropReason, r envelope.Record) // Called outside any lock.
}

// Stats is a snapshot of the client's counters.
type Stats struct {
	Sent             uint64
	DroppedNotOpen   uint64
	DroppedQueueFull uint64
	DroppedEncode    uint64
}

// Client is the debug client. It is safe for concurrent use.
type Client struct {
	dialer  transport.Dialer
	display Display
	onDrop  func(DropReason, envelope.Record)

	mu        sync.Mutex // Protects the fields below.
	state     State
	id        string
	started   bool
	url       string
	outbound  chan []byte
	closing   chan struct{}
	closeOnce sync.Once

	wg sync.WaitGroup

	sent             atomic.Uint64
	droppedNotOpen   atomic.Uint64
	droppedQueueFull atomic.Uint64
	droppedEncode    atomic.Uint64
}

// New creates a Client in the closed state. Call Connect to open it.
func New(dialer transport.Dialer, opts Options) *Client {
	if opts.Display == nil {
		opts.Display = LogDisplay{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Client{
		dialer:   dialer,
		display:  opts.Display,
		onDrop:   opts.OnDrop,
		state:    StateClosed,
		outbound: make(chan []byte, opts.QueueSize),
		closing:  make(chan struct{}),
	}
}

// Connect starts the single connection attempt and returns immediately.
// Dial failures are logged locally; they are never returned. Calls after
// the first are ignored.
func (c *Client) Connect(ctx context.Context, url string) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		applog.Warnf("DebugClient: Connect called again for %s, ignoring", url)
		return
	}
	c.started = true
	c.url = url
	c.state = StateConnecting
	c.mu.Unlock()

	c.wg.Add(1)
	go c.dial(ctx, url)
}

func (c *Client) dial(ctx context.Context, url string) {
	defer c.wg.Done()

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		applog.Errorf("DebugClient: %v", err)
		c.markClosed()
		return
	}

	initFrame, err := envelope.Marshal(envelope.Init())
	if err != nil {
		// Init is a fixed map of strings; this cannot fail.
		applog.Errorf("DebugClient: %v", err)
		conn.Close()
		c.markClosed()
		return
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Disconnected while the dial was in flight.
		c.mu.Unlock()
		conn.Close()
		return
	}
	// The queue is empty here, so init is always the first frame.
	c.outbound <- initFrame
	c.state = StateOpen
	c.mu.Unlock()

	applog.Infof("Connected to socket at %s", url)

	c.wg.Add(2)
	go c.writeLoop(conn)
	go c.readLoop(conn)
}

// writeLoop is the only writer. On close it flushes what is queued, then
// closes the connection.
func (c *Client) writeLoop(conn transport.Conn) {
	defer c.wg.Done()
	defer conn.Close()

	for {
		select {
		case raw := <-c.outbound:
			if !c.write(conn, raw) {
				return
			}
		case <-c.closing:
			for {
				select {
				case raw := <-c.outbound:
					if !c.write(conn, raw) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *Client) write(conn transport.Conn, raw []byte) bool {
	if err := conn.WriteMessage(raw); err != nil {
		applog.Errorf("DebugClient: write failed: %v", err)
		c.markClosed()
		return false
	}
	c.sent.Add(1)
	return true
}

func (c *Client) readLoop(conn transport.Conn) {
	defer c.wg.Done()

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if c.State() == StateOpen && !transport.IsNormalClose(err) {
				applog.Errorf("DebugClient: connection lost: %v", err)
			}
			c.markClosed()
			return
		}
		c.handleMessage(raw)
	}
}

// handleMessage adopts the id from the first init and hands every message
// to the display. Malformed frames are logged and skipped.
func (c *Client) handleMessage(raw []byte) {
	in, err := envelope.ParseInbound(raw)
	if err != nil {
		applog.Warnf("DebugClient: ignoring inbound frame: %v", err)
		return
	}

	if in.Type == string(envelope.KindInit) {
		if id, ok := in.ID(); ok {
			c.mu.Lock()
			adopted := c.id == ""
			if adopted {
				c.id = id
			}
			c.mu.Unlock()
			if adopted {
				applog.Debugf("DebugClient: assigned client id %s", id)
			}
		}
	}

	c.display.Show(in.Type, in.Data)
}

// Send transmits one record if the client is open. It never blocks and
// never reports failure; dropped records are counted and passed to
// Options.OnDrop. Error values under data["error"] are projected for the
// error and trace kinds.
func (c *Client) Send(kind envelope.Kind, message string, data any) {
	rec := envelope.Record{Kind: kind, Message: message, Data: data}
	if reason, dropped := c.enqueue(rec); dropped {
		c.drop(reason, rec)
	}
}

func (c *Client) enqueue(rec envelope.Record) (DropReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return DropNotOpen, true
	}

	raw, err := envelope.Marshal(envelope.Build(rec, c.id))
	if err != nil {
		applog.Debugf("DebugClient: %v", err)
		return DropEncode, true
	}

	select {
	case c.outbound <- raw:
		return "", false
	default:
		return DropQueueFull, true
	}
}

func (c *Client) drop(reason DropReason, rec envelope.Record) {
	switch reason {
	case DropNotOpen:
		c.droppedNotOpen.Add(1)
	case DropQueueFull:
		c.droppedQueueFull.Add(1)
	case DropEncode:
		c.droppedEncode.Add(1)
	}
	if c.onDrop != nil {
		c.onDrop(reason, rec)
	}
}

// Disconnect sends a disconnect envelope, then flushes and closes the
// connection. It returns without waiting; use Wait for that.
func (c *Client) Disconnect() {
	c.Send(envelope.KindDisconnect, "", nil)
	c.markClosed()
}

// markClosed is terminal: a closed client never connects again.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.state = StateClosed
	c.started = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closing) })
}

// Wait blocks until the dial, writer and reader goroutines have exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the client id assigned by the listener, or "" before the
// handshake completes.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// URL returns the address passed to Connect.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		Sent:             c.sent.Load(),
		DroppedNotOpen:   c.droppedNotOpen.Load(),
		DroppedQueueFull: c.droppedQueueFull.Load(),
		DroppedEncode:    c.droppedEncode.Load(),
	}
}
