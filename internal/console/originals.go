package console

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	applog "wsconsole/internal/log"
)

// Std writes through the package-level leveled logger.
type Std struct{}

// NewStd returns the default local console.
func NewStd() Std { return Std{} }

func (Std) Log(args ...any)   { applog.Info(args...) }
func (Std) Info(args ...any)  { applog.Info(args...) }
func (Std) Debug(args ...any) { applog.Debug(args...) }
func (Std) Error(v any)       { applog.Error(v) }

// Trace logs v followed by a stack at debug level, like console.trace.
// Errors from github.com/pkg/errors print their own origin stack; anything
// else gets the stack of the calling goroutine.
func (Std) Trace(v any) {
	if _, ok := v.(interface{ StackTrace() errors.StackTrace }); ok {
		applog.Debugf("Trace: %+v", v)
		return
	}
	applog.Debugf("Trace: %v\n%s", v, debug.Stack())
}

// Zap writes to a zap logger. Log and Info share the info level.
type Zap struct {
	sugared *zap.SugaredLogger
}

// NewZap wraps logger. A nil logger falls back to zap.NewNop.
func NewZap(logger *zap.Logger) *Zap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zap{sugared: logger.Sugar()}
}

func (z *Zap) Log(args ...any)   { z.sugared.Info(sprint(args)) }
func (z *Zap) Info(args ...any)  { z.sugared.Info(sprint(args)) }
func (z *Zap) Debug(args ...any) { z.sugared.Debug(sprint(args)) }

func (z *Zap) Error(v any) {
	if err, ok := v.(error); ok {
		z.sugared.Errorw(fmt.Sprint(err), zap.Error(err))
		return
	}
	z.sugared.Error(v)
}

func (z *Zap) Trace(v any) {
	z.sugared.Desugar().WithOptions(zap.AddStacktrace(zap.DebugLevel)).Debug(fmt.Sprintf("%v", v))
}

// Logrus writes to a logrus logger or entry.
type Logrus struct {
	logger logrus.FieldLogger
}

// NewLogrus wraps logger. A nil logger uses logrus.StandardLogger.
func NewLogrus(logger logrus.FieldLogger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logrus{logger: logger}
}

func (l *Logrus) Log(args ...any)   { l.logger.Info(sprint(args)) }
func (l *Logrus) Info(args ...any)  { l.logger.Info(sprint(args)) }
func (l *Logrus) Debug(args ...any) { l.logger.Debug(sprint(args)) }

func (l *Logrus) Error(v any) {
	if err, ok := v.(error); ok {
		l.logger.WithError(err).Error(fmt.Sprint(err))
		return
	}
	l.logger.Error(v)
}

func (l *Logrus) Trace(v any) {
	l.logger.WithField("trace", true).Debugf("%+v", v)
}

// ByName builds one of the local consoles by its config name: "std" (or
// empty), "zap" or "logrus".
func ByName(name string) (Console, error) {
	switch name {
	case "", "std":
		return NewStd(), nil
	case "zap":
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, errors.Wrap(err, "building zap logger")
		}
		return NewZap(logger), nil
	case "logrus":
		return NewLogrus(logrus.StandardLogger()), nil
	default:
		return nil, errors.Errorf("unknown local console %q", name)
	}
}

// sprint joins operands with spaces, as a console does.
func sprint(args []any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

var (
	_ Console = Std{}
	_ Console = (*Zap)(nil)
	_ Console = (*Logrus)(nil)
)
