package console

import "sync"

// The process-wide console. Code that cannot have a Console injected calls
// the package-level functions below, which go through active.
var (
	activeMu  sync.RWMutex
	active    Console = NewStd()
	installed *Instrumented
)

// Active returns the console the package-level functions use.
func Active() Console {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// SetOriginal replaces the console that Install will wrap. It has no effect
// once Install has run.
func SetOriginal(c Console) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if installed == nil && c != nil {
		active = c
	}
}

// Install wraps the active console so its calls are forwarded to sink. Until
// Uninstall, later calls return the first installation and ignore sink, so
// the original console is never wrapped twice.
func Install(sink Sink) *Instrumented {
	activeMu.Lock()
	defer activeMu.Unlock()
	if installed == nil {
		installed = Wrap(active, sink)
		active = installed
	}
	return installed
}

// Uninstall puts the original console back behind the package-level
// functions. A later Install wraps it again with a new sink.
func Uninstall() {
	activeMu.Lock()
	defer activeMu.Unlock()
	if installed != nil {
		active = installed.Original()
		installed = nil
	}
}

// Installed reports whether Install has run.
func Installed() bool {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return installed != nil
}

func Log(args ...any)   { Active().Log(args...) }
func Info(args ...any)  { Active().Info(args...) }
func Debug(args ...any) { Active().Debug(args...) }
func Error(v any)       { Active().Error(v) }
func Trace(v any)       { Active().Trace(v) }
