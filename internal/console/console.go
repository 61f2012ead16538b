// SPDX-License-Identifier: MIT
/*
Package console is the logging surface applications call instead of
printing directly. A Console has the five methods of a browser-style
console; Wrap decorates any Console so that eligible calls are also
forwarded to a Sink (the debug client) while the wrapped Console still
produces its normal local output.

Forwarding rules:
  - Log, Info, Debug take (message, data). They forward when message is a
    string and data passes serializable.Check.
  - Error, Trace take one value. They forward when it is an error.

The wrapped Console always runs, with the original arguments, after the
forwarding decision. Nothing here panics into the caller.
*/
package console

import (
	"reflect"
	"sync/atomic"

	"wsconsole/internal/envelope"
	applog "wsconsole/internal/log"
	"wsconsole/internal/serializable"
)

// Console is the logging capability set.
type Console interface {
	Log(args ...any)
	Info(args ...any)
	Debug(args ...any)
	Error(v any)
	Trace(v any)
}

// Sink receives forwarded records. *client.Client satisfies it.
type Sink interface {
	Send(kind envelope.Kind, message string, data any)
}

// Stats counts forwarding decisions.
type Stats struct {
	Forwarded uint64
	Rejected  uint64
}

// Instrumented forwards eligible calls to a Sink and delegates every call to
// the original Console.
type Instrumented struct {
	original Console
	sink     Sink

	forwarded atomic.Uint64
	rejected  atomic.Uint64
}

// Wrap decorates original. A nil original defaults to NewStd().
func Wrap(original Console, sink Sink) *Instrumented {
	if original == nil {
		original = NewStd()
	}
	return &Instrumented{original: original, sink: sink}
}

// Original returns the wrapped Console.
func (c *Instrumented) Original() Console {
	return c.original
}

func (c *Instrumented) Log(args ...any) {
	c.forwardMessage(envelope.KindLog, args)
	c.original.Log(args...)
}

func (c *Instrumented) Info(args ...any) {
	c.forwardMessage(envelope.KindInfo, args)
	c.original.Info(args...)
}

func (c *Instrumented) Debug(args ...any) {
	c.forwardMessage(envelope.KindDebug, args)
	c.original.Debug(args...)
}

func (c *Instrumented) Error(v any) {
	c.forwardError(envelope.KindError, v)
	c.original.Error(v)
}

func (c *Instrumented) Trace(v any) {
	c.forwardError(envelope.KindTrace, v)
	c.original.Trace(v)
}

// Stats returns a snapshot of the counters.
func (c *Instrumented) Stats() Stats {
	return Stats{Forwarded: c.forwarded.Load(), Rejected: c.rejected.Load()}
}

func (c *Instrumented) forwardMessage(kind envelope.Kind, args []any) {
	var (
		message any
		data    any
	)
	if len(args) > 0 {
		message = args[0]
	}
	if len(args) > 1 {
		data = args[1]
	}

	msg, ok := message.(string)
	if !ok || !serializable.Check(data) {
		c.rejected.Add(1)
		return
	}
	c.send(kind, msg, data)
}

func (c *Instrumented) forwardError(kind envelope.Kind, v any) {
	err, ok := v.(error)
	if !ok || isNilError(err) {
		c.rejected.Add(1)
		return
	}
	// Error() is user code and may still panic.
	defer func() {
		if r := recover(); r != nil {
			c.rejected.Add(1)
			applog.Errorf("console: %s value %T panicked in Error(): %v", kind, v, r)
		}
	}()
	c.send(kind, err.Error(), map[string]any{envelope.KeyError: err})
}

// isNilError reports a nil interface or a typed nil inside one, such as a
// nil *MyErr returned as error.
func isNilError(err error) bool {
	if err == nil {
		return true
	}
	rv := reflect.ValueOf(err)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (c *Instrumented) send(kind envelope.Kind, message string, data any) {
	if c.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			applog.Errorf("console: forwarding %s failed: %v", kind, r)
		}
	}()
	c.sink.Send(kind, message, data)
	c.forwarded.Add(1)
}

var _ Console = (*Instrumented)(nil)
