package transport

import (
	"context"
	"io"
	"sync"

	applog "wsconsole/internal/log"
)

// LoggingConn implements Conn by writing outbound frames to the local log.
// It never receives anything; ReadMessage blocks until Close. Useful for
// dry runs where no listener is available.
type LoggingConn struct {
	url       string
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoggingConn creates a new LoggingConn instance.
func NewLoggingConn(url string) *LoggingConn {
	applog.Infof("Transport: Using LoggingConn for %s", url)
	return &LoggingConn{url: url, done: make(chan struct{})}
}

// WriteMessage logs the frame. Logging transport never fails to "send".
func (lc *LoggingConn) WriteMessage(data []byte) error {
	applog.Infof("LOG_TRANSPORT: %s <- %s", lc.url, data)
	return nil
}

// ReadMessage blocks until the conn is closed.
func (lc *LoggingConn) ReadMessage() ([]byte, error) {
	<-lc.done
	return nil, io.EOF
}

// Close unblocks readers.
func (lc *LoggingConn) Close() error {
	lc.closeOnce.Do(func() {
		applog.Debugf("LOG_TRANSPORT: Close called.")
		close(lc.done)
	})
	return nil
}

// LoggingDialer hands out LoggingConns.
type LoggingDialer struct{}

// Dial never fails.
func (LoggingDialer) Dial(_ context.Context, url string) (Conn, error) {
	return NewLoggingConn(url), nil
}

// Ensure LoggingConn satisfies the interface at compile time.
var (
	_ Conn   = (*LoggingConn)(nil)
	_ Dialer = LoggingDialer{}
)
