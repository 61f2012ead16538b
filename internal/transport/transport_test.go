// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wsconsole/internal/envelope"
)

type recorder struct {
	mu    sync.Mutex
	peers []Peer
	envs  []*envelope.Envelope
}

func (r *recorder) handle(p Peer, e *envelope.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = append(r.peers, p)
	r.envs = append(r.envs, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envs)
}

func startListener(t *testing.T, h Handler) (*Listener, string) {
	t.Helper()
	l := NewListener("", "/", h)
	l.newID = func() string { return "fixed-id" }
	srv := httptest.NewServer(l)
	t.Cleanup(func() {
		l.Close()
		srv.Close()
	})
	return l, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) Conn {
	t.Helper()
	conn, err := NewWebSocketDialer(time.Second, nil).Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestListenerHandshake(t *testing.T) {
	rec := &recorder{}
	_, url := startListener(t, rec.handle)
	conn := dial(t, url)

	raw, err := envelope.Marshal(envelope.Init())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(raw))

	reply, err := conn.ReadMessage()
	require.NoError(t, err)
	in, err := envelope.ParseInbound(reply)
	require.NoError(t, err)
	assert.Equal(t, "init", in.Type)
	id, ok := in.ID()
	require.True(t, ok)
	assert.Equal(t, "fixed-id", id)

	raw, err = envelope.Marshal(envelope.Build(envelope.Record{Kind: envelope.KindLog, Message: "hi"}, id))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(raw))

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, envelope.KindInit, rec.envs[0].Type)
	assert.Equal(t, "fixed-id", rec.peers[1].ID)
	assert.Equal(t, "hi", rec.envs[1].Message)
}

func TestListenerIgnoresMalformedFrames(t *testing.T) {
	rec := &recorder{}
	_, url := startListener(t, rec.handle)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage([]byte("{oops")))
	raw, err := envelope.Marshal(envelope.Build(envelope.Record{Kind: envelope.KindInfo, Message: "after"}, ""))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(raw))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestListenerBroadcast(t *testing.T) {
	l, url := startListener(t, nil)
	conn := dial(t, url)

	require.Eventually(t, func() bool { return l.Clients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, l.Broadcast("notice", map[string]any{"text": "reload"}))

	raw, err := conn.ReadMessage()
	require.NoError(t, err)
	in, err := envelope.ParseInbound(raw)
	require.NoError(t, err)
	assert.Equal(t, "notice", in.Type)
	assert.Equal(t, "reload", in.Data["text"])

	assert.Error(t, l.Broadcast("bad", map[string]any{"f": func() {}}))
}

func TestListenerDropsClientOnDisconnect(t *testing.T) {
	l, url := startListener(t, nil)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return l.Clients() == 1 }, time.Second, 10*time.Millisecond)

	raw, err := envelope.Marshal(envelope.Build(envelope.Record{Kind: envelope.KindDisconnect}, ""))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(raw))

	require.Eventually(t, func() bool { return l.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketDialerFailure(t *testing.T) {
	_, err := NewWebSocketDialer(200*time.Millisecond, nil).Dial(context.Background(), "ws://127.0.0.1:1/")
	assert.Error(t, err)
}

func TestLoggingConn(t *testing.T) {
	conn, err := LoggingDialer{}.Dial(context.Background(), "ws://dry-run")
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage([]byte(`{"type":"log"}`)))

	done := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		done <- err
	}()

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("ReadMessage did not unblock on Close")
	}
}
