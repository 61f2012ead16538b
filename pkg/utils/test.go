// Package utils holds test doubles shared by the client, console and facade
// tests.
package utils

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"wsconsole/internal/transport"
)

// MockConn implements transport.Conn for testing. Written frames are copied
// and stored; inbound frames are injected with Deliver.
type MockConn struct {
	mu      sync.Mutex
	written [][]byte

	// WriteErr, when set, is returned by every WriteMessage.
	WriteErr error

	writes    chan []byte
	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewMockConn creates an open MockConn.
func NewMockConn() *MockConn {
	return &MockConn{
		writes:  make(chan []byte, 1024),
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

// WriteMessage stores a copy of data instead of transmitting it.
func (m *MockConn) WriteMessage(data []byte) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if m.closed.Load() {
		return io.ErrClosedPipe
	}
	frame := make([]byte, len(data))
	copy(frame, data)

	m.mu.Lock()
	m.written = append(m.written, frame)
	m.mu.Unlock()

	select {
	case m.writes <- frame:
	default:
	}
	return nil
}

// ReadMessage returns the next delivered frame, or io.EOF once closed.
func (m *MockConn) ReadMessage() ([]byte, error) {
	select {
	case raw := <-m.inbound:
		return raw, nil
	case <-m.done:
		return nil, io.EOF
	}
}

// Close unblocks ReadMessage and makes further writes fail.
func (m *MockConn) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.done)
	})
	return nil
}

// Deliver injects an inbound frame.
func (m *MockConn) Deliver(raw []byte) {
	m.inbound <- raw
}

// Writes exposes written frames in order, for tests that wait on them.
func (m *MockConn) Writes() <-chan []byte {
	return m.writes
}

// Frames returns every frame written so far.
func (m *MockConn) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

// Closed reports whether Close was called.
func (m *MockConn) Closed() bool {
	return m.closed.Load()
}

// MockDialer implements transport.Dialer for testing.
type MockDialer struct {
	Conn *MockConn
	Err  error

	// Gate, when non-nil, holds Dial until it is closed or receives.
	Gate chan struct{}

	calls atomic.Int32
	url   atomic.Value
}

// Dial returns Conn or Err after waiting on Gate.
func (d *MockDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.calls.Add(1)
	d.url.Store(url)
	if d.Gate != nil {
		select {
		case <-d.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}

// Calls returns how many times Dial was invoked.
func (d *MockDialer) Calls() int {
	return int(d.calls.Load())
}

// URL returns the last dialed address.
func (d *MockDialer) URL() string {
	s, _ := d.url.Load().(string)
	return s
}

var (
	_ transport.Conn   = (*MockConn)(nil)
	_ transport.Dialer = (*MockDialer)(nil)
)
