package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wsconsole/internal/envelope"
	applog "wsconsole/internal/log"
)

// Peer describes one connected instrumented process.
type Peer struct {
	ID         string // Assigned on init; empty until then.
	RemoteAddr string
}

// Handler receives every envelope a client sends, init and disconnect
// included. It runs on the client's read goroutine.
type Handler func(peer Peer, env *envelope.Envelope)

type peerConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
	peer Peer
}

func (pc *peerConn) writeJSON(v any) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.conn.WriteJSON(v)
}

// Listener is the debug listener side of the protocol: it accepts client
// connections, answers the init handshake with a fresh id and passes every
// record to its Handler.
type Listener struct {
	addr      string
	path      string
	handler   Handler
	newID     func() string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]*peerConn
	clientsMu sync.Mutex
	broadcast chan envelope.Inbound
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	bound     net.Addr
}

// NewListener creates a Listener. The broadcast loop starts immediately so
// the listener also works when mounted on an external server via ServeHTTP.
func NewListener(addr, path string, handler Handler) *Listener {
	if handler == nil {
		handler = func(Peer, *envelope.Envelope) {}
	}
	l := &Listener{
		addr:    addr,
		path:    path,
		handler: handler,
		newID:   uuid.NewString,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Debug surfaces connect from arbitrary origins
			},
		},
		clients:   make(map[*websocket.Conn]*peerConn),
		broadcast: make(chan envelope.Inbound, 256),
		done:      make(chan struct{}),
	}
	go l.handleBroadcasts()
	return l
}

// Start binds the address and serves in a goroutine. Bind errors are
// returned; serve errors after that are logged.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.bound = ln.Addr()

	mux := http.NewServeMux()
	mux.Handle(l.path, l)
	l.server = &http.Server{Handler: mux}

	go func() {
		applog.Infof("Listener: Accepting debug clients on ws://%s%s", l.bound, l.path)
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("Listener: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (l *Listener) Addr() net.Addr {
	return l.bound
}

// ServeHTTP upgrades the request and runs the client's read loop.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Listener: Upgrade error: %v", err)
		return
	}

	pc := &peerConn{conn: conn, peer: Peer{RemoteAddr: r.RemoteAddr}}
	l.clientsMu.Lock()
	l.clients[conn] = pc
	total := len(l.clients)
	l.clientsMu.Unlock()
	applog.Infof("Listener: Client connected from %s, total: %d", r.RemoteAddr, total)

	go l.readLoop(pc)
}

func (l *Listener) readLoop(pc *peerConn) {
	defer l.drop(pc)

	for {
		_, raw, err := pc.conn.ReadMessage()
		if err != nil {
			if !IsNormalClose(err) {
				applog.Debugf("Listener: Read from %s ended: %v", pc.peer.RemoteAddr, err)
			}
			return
		}

		env, err := envelope.ParseEnvelope(raw)
		if err != nil {
			applog.Warnf("Listener: Ignoring frame from %s: %v", pc.peer.RemoteAddr, err)
			continue
		}

		if env.Type == envelope.KindInit && pc.peer.ID == "" {
			pc.peer.ID = l.newID()
			reply := envelope.Inbound{
				Type: string(envelope.KindInit),
				Data: map[string]any{envelope.KeyID: pc.peer.ID},
			}
			if err := pc.writeJSON(reply); err != nil {
				applog.Warnf("Listener: Failed to acknowledge %s: %v", pc.peer.RemoteAddr, err)
				return
			}
		}

		l.handler(pc.peer, env)

		if env.Type == envelope.KindDisconnect {
			return
		}
	}
}

func (l *Listener) drop(pc *peerConn) {
	l.clientsMu.Lock()
	delete(l.clients, pc.conn)
	total := len(l.clients)
	l.clientsMu.Unlock()
	pc.conn.Close()
	applog.Infof("Listener: Client %s disconnected, total: %d", pc.peer.RemoteAddr, total)
}

// handleBroadcasts sends queued messages to all connected clients.
func (l *Listener) handleBroadcasts() {
	for {
		select {
		case <-l.done:
			return
		case msg := <-l.broadcast:
			l.clientsMu.Lock()
			targets := make([]*peerConn, 0, len(l.clients))
			for _, pc := range l.clients {
				targets = append(targets, pc)
			}
			l.clientsMu.Unlock()

			for _, pc := range targets {
				if err := pc.writeJSON(msg); err != nil {
					applog.Warnf("Listener: Error sending to %s: %v", pc.peer.RemoteAddr, err)
					pc.conn.Close()
				}
			}
		}
	}
}

// Broadcast queues a control message for every connected client. Data must
// be JSON encodable. Messages are dropped when the queue is full.
func (l *Listener) Broadcast(msgType string, data map[string]any) error {
	if _, err := json.Marshal(data); err != nil {
		return fmt.Errorf("broadcast %s: %w", msgType, err)
	}
	select {
	case l.broadcast <- envelope.Inbound{Type: msgType, Data: data}:
	default:
		applog.Warnf("Listener: Broadcast queue full, dropping %s", msgType)
	}
	return nil
}

// Clients returns the number of connected clients.
func (l *Listener) Clients() int {
	l.clientsMu.Lock()
	defer l.clientsMu.Unlock()
	return len(l.clients)
}

// Close disconnects every client and shuts the server down.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		applog.Infof("Listener: Closing")
		close(l.done)

		l.clientsMu.Lock()
		for conn := range l.clients {
			conn.Close()
		}
		l.clients = make(map[*websocket.Conn]*peerConn)
		l.clientsMu.Unlock()

		if l.server != nil {
			err = l.server.Close()
		}
	})
	return err
}
