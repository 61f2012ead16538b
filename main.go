package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"wsconsole/cmd"
	"wsconsole/internal/client"
	"wsconsole/internal/config"
	"wsconsole/internal/console"
	"wsconsole/internal/envelope"
	applog "wsconsole/internal/log"
	"wsconsole/internal/transport"
	"wsconsole/internal/tui"
	"wsconsole/pkg/build"
	"wsconsole/pkg/wsconsole"
)

// main is the entry point for the wsconsole tool.
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments
//   - Load configuration and apply flag overrides
//
// 2. Run Phase:
//   - listen: serve the debug listener until interrupted
//   - send: connect, forward messages, disconnect
//
// 3. Shutdown Phase:
//   - Handle termination signals
//   - Close the listener or disconnect the client
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("%v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts.Command == "" {
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// ==================== RUN PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case cmd.CommandListen:
		err = runListen(ctx, cfg, opts, os.Stdin)
	case cmd.CommandSend:
		err = runSend(ctx, cfg, opts, os.Stdin)
	}
	if err != nil {
		applog.Fatalf("%v", err)
	}
}

func loadConfig(opts *cmd.Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Verbose {
		cfg.Debug = true
	}
	if opts.Addr != "" {
		cfg.Listener.Addr = opts.Addr
	}
	if opts.Path != "" {
		cfg.Listener.Path = opts.Path
	}
	if opts.URL != "" {
		cfg.Client.DebugServerURL = opts.URL
	}
	if opts.Force {
		cfg.Client.EnableInProduction = true
	}
	if opts.DryRun && cfg.Client.DebugServerURL == "" {
		cfg.Client.DebugServerURL = "ws://dry-run/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	return cfg, nil
}

func runListen(ctx context.Context, cfg *config.Config, opts *cmd.Options, stdin io.Reader) error {
	printer := tui.NewRecordPrinter(os.Stdout)
	l := transport.NewListener(cfg.Listener.Addr, cfg.Listener.Path, printer.Print)
	if err := l.Start(); err != nil {
		return err
	}
	applog.Infof("Listening on ws://%s%s", l.Addr(), cfg.Listener.Path)

	if opts.Relay {
		go func() {
			if err := relayLines(ctx, l, stdin); err != nil {
				applog.Warnf("relay stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()

	// ==================== SHUTDOWN PHASE ====================

	applog.Infof("Shutting down, %d client(s) connected", l.Clients())
	return l.Close()
}

// relayLines broadcasts each line of r to every connected client as a
// notice until r is exhausted or ctx is done.
func relayLines(ctx context.Context, l *transport.Listener, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := l.Broadcast(envelope.TypeNotice, map[string]any{envelope.KeyText: line}); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "reading stdin")
}

func runSend(ctx context.Context, cfg *config.Config, opts *cmd.Options, stdin io.Reader) error {
	wc := wsconsole.FromConfig(cfg.Client)
	local, err := console.ByName(cfg.Client.LocalConsole)
	if err != nil {
		return err
	}
	wc.Console = local
	if opts.DryRun {
		wc.Dialer = transport.LoggingDialer{}
	}

	inst, err := wsconsole.Shared(ctx, wc)
	if err != nil {
		return err
	}
	defer func() {
		inst.Disconnect()
		inst.Wait()
		stats := inst.Client().Stats()
		applog.Debugf("sent=%d dropped(not_open=%d queue_full=%d encode=%d)",
			stats.Sent, stats.DroppedNotOpen, stats.DroppedQueueFull, stats.DroppedEncode)
	}()

	// Records sent before the connection opens are dropped. A dry run has
	// no listener to assign an id, so it only waits for the conn.
	if inst.Active() && opts.WaitForID > 0 {
		ready, what := func() bool { return inst.Client().ID() != "" }, "client id"
		if opts.DryRun {
			ready, what = func() bool { return inst.Client().State() == client.StateOpen }, "open connection"
		}
		if err := waitUntil(ctx, opts.WaitForID, ready); err != nil {
			applog.Warnf("no %s from %s: %v", what, inst.Client().URL(), err)
		}
	}

	if !opts.ReadStdin {
		for _, m := range opts.Messages {
			inst.Console().Log(m)
		}
		return nil
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		inst.Console().Log(scanner.Text())
	}
	return errors.Wrap(scanner.Err(), "reading stdin")
}

func waitUntil(ctx context.Context, timeout time.Duration, ready func() bool) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for !ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("timed out after %s", timeout)
		case <-tick.C:
		}
	}
	return nil
}
