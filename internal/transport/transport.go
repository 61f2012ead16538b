package transport

import "context"

// Conn is one open socket to the debug listener. Frames are whole JSON text
// messages. WriteMessage is called from a single goroutine; ReadMessage from
// another. Close may be called from either and must unblock ReadMessage.
type Conn interface {
	WriteMessage(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a Conn. Implementations make one attempt and never retry.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}
