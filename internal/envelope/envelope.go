// SPDX-License-Identifier: MIT
//
// Package envelope defines the JSON messages exchanged between an
// instrumented process and the debug listener.
package envelope

import (
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the envelope type field.
type Kind string

const (
	KindLog        Kind = "log"
	KindInfo       Kind = "info"
	KindDebug      Kind = "debug"
	KindError      Kind = "error"
	KindTrace      Kind = "trace"
	KindInit       Kind = "init"
	KindDisconnect Kind = "disconnect"
)

// Relation is sent in the init handshake to identify the peer role.
const RelationClient = "client"

// TypeNotice is a listener-to-client message carrying free text under
// KeyText. Clients hand it to their Display like any inbound message.
const TypeNotice = "notice"

// Data keys with protocol meaning.
const (
	KeyID       = "id"
	KeyRelation = "relation"
	KeyError    = "error"
	KeyValue    = "value"
	KeyText     = "text"
)

// IsErrorKind reports whether payloads of k carry an error under KeyError.
func (k Kind) IsErrorKind() bool {
	return k == KindError || k == KindTrace
}

// Record is an outbound message before it is stamped and encoded.
type Record struct {
	Kind    Kind
	Message string
	Data    any
}

// Envelope is the wire shape. Message is omitted for init and disconnect.
type Envelope struct {
	Type    Kind           `json:"type"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data"`
}

// Inbound is what the listener sends back. Only Type and Data.id carry
// meaning; everything else is handed to the display untouched.
type Inbound struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ID returns data.id when it is a non-empty string.
func (in *Inbound) ID() (string, bool) {
	id, ok := in.Data[KeyID].(string)
	return id, ok && id != ""
}

// ErrorDetail is the transmitted projection of a Go error.
type ErrorDetail struct {
	ErrorString string `json:"errorString"`
	Message     string `json:"message"`
	Stack       string `json:"stack,omitempty"`
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// NewErrorDetail projects err. The stack comes from the innermost
// github.com/pkg/errors frame set in the chain; when there is none and
// captureStack is true the caller's stack is recorded instead.
func NewErrorDetail(err error, captureStack bool) ErrorDetail {
	d := ErrorDetail{
		ErrorString: fmt.Sprintf("%T: %s", err, err.Error()),
		Message:     err.Error(),
	}

	var st stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if s, ok := e.(stackTracer); ok {
			st = s
		}
	}
	switch {
	case st != nil:
		d.Stack = strings.TrimPrefix(fmt.Sprintf("%+v", st.StackTrace()), "\n")
	case captureStack:
		d.Stack = callerStack(3)
	}
	return d
}

func callerStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Build turns r into an Envelope stamped with clientID. The caller's data is
// never mutated: map payloads are copied, error values under KeyError are
// projected to ErrorDetail for error kinds, and non-map payloads are placed
// under KeyValue.
func Build(r Record, clientID string) Envelope {
	data := make(map[string]any)

	switch payload := r.Data.(type) {
	case nil:
	case map[string]any:
		for k, v := range payload {
			data[k] = v
		}
	default:
		if !spreadMap(data, payload) {
			data[KeyValue] = payload
		}
	}

	if r.Kind.IsErrorKind() {
		if err, ok := data[KeyError].(error); ok {
			data[KeyError] = NewErrorDetail(err, r.Kind == KindTrace)
		}
	}

	if clientID != "" {
		data[KeyID] = clientID
	} else {
		delete(data, KeyID)
	}

	return Envelope{Type: r.Kind, Message: r.Message, Data: data}
}

// spreadMap copies the entries of any string-keyed map, including typed and
// named maps, into dst. It reports false for everything else.
func spreadMap(dst map[string]any, v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return false
	}
	iter := rv.MapRange()
	for iter.Next() {
		dst[iter.Key().String()] = iter.Value().Interface()
	}
	return true
}

// Init returns the handshake envelope. It never carries an id.
func Init() Envelope {
	return Envelope{
		Type: KindInit,
		Data: map[string]any{KeyRelation: RelationClient},
	}
}

// Marshal encodes e as a JSON text frame.
func Marshal(e Envelope) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", e.Type, err)
	}
	return b, nil
}

// ParseInbound decodes a frame from the listener.
func ParseInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode inbound message: %w", err)
	}
	if in.Type == "" {
		return nil, fmt.Errorf("decode inbound message: missing type")
	}
	return &in, nil
}

// ParseEnvelope decodes an outbound frame. The listener uses it to read what
// clients send.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &e, nil
}
