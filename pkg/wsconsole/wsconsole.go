// SPDX-License-Identifier: MIT
//
// Package wsconsole is the entry point for applications: it builds a debug
// client from a Config, connects it, and optionally installs the
// instrumented console so package-level console calls are mirrored to the
// debug listener.
//
// Prefer New and thread the Instance through your composition root. Shared
// exists for code that needs one process-wide instance; the first Config it
// sees wins until that instance is disconnected.
package wsconsole

import (
	"context"
	"errors"
	"sync"
	"time"

	"wsconsole/internal/client"
	"wsconsole/internal/config"
	"wsconsole/internal/console"
	"wsconsole/internal/envelope"
	applog "wsconsole/internal/log"
	"wsconsole/internal/transport"
)

// ErrMissingURL is returned by New when an active Config has no
// DebugServerURL.
var ErrMissingURL = errors.New("wsconsole: DebugServerURL is required")

// Aliases so callers outside this module can name the types they configure.
type (
	Display    = client.Display
	DropReason = client.DropReason
	Record     = envelope.Record
	Console    = console.Console
)

// Config is the construction-time configuration.
type Config struct {
	EnableInProduction bool
	// EnableConsoleOverrides defaults to true when nil.
	EnableConsoleOverrides *bool
	DebugServerURL         string
	// Mode comes from the host environment; only "development" activates
	// instrumentation unless EnableInProduction is set.
	Mode string

	QueueSize        int
	HandshakeTimeout time.Duration

	// Dialer overrides the WebSocket dialer; tests inject a mock here.
	Dialer transport.Dialer
	// Display receives inbound listener messages; defaults to the local log.
	Display Display
	// Console is the original console to wrap; defaults to console.NewStd.
	Console Console
	// OnDrop observes records the client could not transmit.
	OnDrop func(reason DropReason, r Record)
}

// FromConfig maps file/env configuration onto a Config.
func FromConfig(c config.ClientConfig) Config {
	overrides := c.EnableConsoleOverrides
	return Config{
		EnableInProduction:     c.EnableInProduction,
		EnableConsoleOverrides: &overrides,
		DebugServerURL:         c.DebugServerURL,
		Mode:                   c.Mode,
		QueueSize:              c.QueueSize,
		HandshakeTimeout:       c.HandshakeTimeout,
	}
}

func (c Config) active() bool {
	return config.ClientConfig{Mode: c.Mode, EnableInProduction: c.EnableInProduction}.Active()
}

func (c Config) overridesEnabled() bool {
	return c.EnableConsoleOverrides == nil || *c.EnableConsoleOverrides
}

// Instance bundles a debug client and the console that feeds it.
type Instance struct {
	client  *client.Client
	console console.Console
	active  bool
	shared  bool
}

// New builds and connects an Instance. When the Config is inactive the
// returned Instance holds a client that never connects and drops
// everything, and its console is the unwrapped original.
func New(ctx context.Context, cfg Config) (*Instance, error) {
	original := cfg.Console
	if original == nil {
		original = console.NewStd()
	}

	if !cfg.active() {
		applog.Infof("To use dev tools please run in development mode")
		return &Instance{
			client:  client.New(transport.LoggingDialer{}, client.Options{}),
			console: original,
		}, nil
	}

	if cfg.DebugServerURL == "" {
		return nil, ErrMissingURL
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = transport.NewWebSocketDialer(cfg.HandshakeTimeout, nil)
	}

	c := client.New(dialer, client.Options{
		Display:   cfg.Display,
		QueueSize: cfg.QueueSize,
		OnDrop:    cfg.OnDrop,
	})
	c.Connect(ctx, cfg.DebugServerURL)

	inst := &Instance{client: c, console: original, active: true}
	if cfg.overridesEnabled() {
		inst.console = console.Wrap(original, c)
	}
	return inst, nil
}

// Client returns the debug client.
func (i *Instance) Client() *client.Client { return i.client }

// Console returns the console to log through. It forwards to the client
// when the Instance is active and console overrides are enabled; otherwise
// it is the original console.
func (i *Instance) Console() console.Console { return i.console }

// Active reports whether the activation gate let this Instance connect.
func (i *Instance) Active() bool { return i.active }

// Disconnect tells the listener this client is leaving and closes the
// connection. Disconnecting the Shared instance also releases it: the
// process-wide console goes back to the original and the next Shared call
// builds a new Instance.
func (i *Instance) Disconnect() {
	i.client.Disconnect()
	if !i.shared {
		return
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == i {
		shared = nil
		console.Uninstall()
	}
}

// Wait blocks until the client's goroutines exit after Disconnect.
func (i *Instance) Wait() {
	i.client.Wait()
}

var (
	sharedMu sync.Mutex
	shared   *Instance
)

// Shared returns the process-wide Instance, creating it from cfg on first
// use. Later configs are ignored until that Instance is disconnected. When overrides are enabled on an active
// config, the package-level console in internal/console is instrumented
// once; installation is skipped for inactive configs.
func Shared(ctx context.Context, cfg Config) (*Instance, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	if cfg.Console != nil {
		console.SetOriginal(cfg.Console)
	}
	cfg.Console = console.Active()

	inst, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if inst.active && cfg.overridesEnabled() {
		inst.console = console.Install(inst.client)
	}
	inst.shared = true
	shared = inst
	return shared, nil
}

// Log, Info, Debug, Error and Trace go through the process-wide console,
// which Shared instruments when console overrides are enabled.
func Log(args ...any)   { console.Log(args...) }
func Info(args ...any)  { console.Info(args...) }
func Debug(args ...any) { console.Debug(args...) }
func Error(v any)       { console.Error(v) }
func Trace(v any)       { console.Trace(v) }
