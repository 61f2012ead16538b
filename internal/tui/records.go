// Package tui renders what instrumented clients send to a debug listener.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"wsconsole/internal/envelope"
	"wsconsole/internal/transport"
)

const shortIDLen = 8

// RecordPrinter writes one styled line per envelope. It is safe for use from
// every client read goroutine at once.
type RecordPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	peer   lipgloss.Style
	muted  lipgloss.Style
	stack  lipgloss.Style
	styles map[envelope.Kind]lipgloss.Style
}

// NewRecordPrinter styles output for w. Colours are dropped when w is not a
// terminal.
func NewRecordPrinter(w io.Writer) *RecordPrinter {
	r := lipgloss.NewRenderer(w)
	badge := func(fg, bg string) lipgloss.Style {
		return r.NewStyle().
			Foreground(lipgloss.Color(fg)).
			Background(lipgloss.Color(bg)).
			Padding(0, 1).
			Bold(true)
	}

	return &RecordPrinter{
		w:     w,
		peer:  r.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("#7D7D7D")),
		stack: r.NewStyle().Foreground(lipgloss.Color("#7D7D7D")).PaddingLeft(4),
		styles: map[envelope.Kind]lipgloss.Style{
			envelope.KindLog:        badge("#FFFDF5", "#5A5A5A"),
			envelope.KindInfo:       badge("#FFFDF5", "#25A065"),
			envelope.KindDebug:      badge("#FFFDF5", "#3C6FD8"),
			envelope.KindError:      badge("#FFFDF5", "#D83C3C"),
			envelope.KindTrace:      badge("#1A1A1A", "#E8B33C"),
			envelope.KindInit:       badge("#1A1A1A", "#A7E8C3"),
			envelope.KindDisconnect: badge("#1A1A1A", "#C9C9C9"),
		},
	}
}

// Print is a transport.Handler.
func (p *RecordPrinter) Print(peer transport.Peer, env *envelope.Envelope) {
	line := p.Render(peer, env)
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

// Render formats env without writing it.
func (p *RecordPrinter) Render(peer transport.Peer, env *envelope.Envelope) string {
	style, ok := p.styles[env.Type]
	if !ok {
		style = p.styles[envelope.KindLog]
	}

	parts := []string{
		p.peer.Render(peerLabel(peer)),
		style.Render(strings.ToUpper(string(env.Type))),
	}
	if env.Message != "" {
		parts = append(parts, env.Message)
	}

	var stack string
	rest := make(map[string]any, len(env.Data))
	for k, v := range env.Data {
		if k == envelope.KeyID {
			continue
		}
		if k == envelope.KeyError && env.Type.IsErrorKind() {
			if detail, ok := v.(map[string]any); ok {
				parts = append(parts, fmt.Sprint(detail["errorString"]))
				if s, ok := detail["stack"].(string); ok {
					stack = s
				}
				continue
			}
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		parts = append(parts, p.muted.Render(compact(rest)))
	}

	out := strings.Join(parts, " ")
	if stack != "" {
		out += "\n" + p.stack.Render(strings.TrimRight(stack, "\n"))
	}
	return out
}

func peerLabel(peer transport.Peer) string {
	id := peer.ID
	if id == "" {
		return peer.RemoteAddr
	}
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return id
}

// compact renders data as key=value pairs in key order; nested values are
// JSON.
func compact(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		switch v := data[k].(type) {
		case string:
			b.WriteString(v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				fmt.Fprint(&b, v)
				continue
			}
			b.Write(raw)
		}
	}
	return b.String()
}
