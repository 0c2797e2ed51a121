package logger

import (
	"io"
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
)

// Logger is the application-wide logger. Extra args are printed after the message
// and forwarded to the error tracker; errors and maps are reported as such.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Options configures the default logger.
type Options struct {
	Env          string
	RollbarToken string
	Output       io.Writer
}

type stdLogger struct {
	std     *log.Logger
	rollbar bool
}

var _ Logger = (*stdLogger)(nil)

// New returns a logger writing to Output (stderr by default) and mirroring
// entries to Rollbar when a token is configured.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l := &stdLogger{std: log.New(out, "", log.LstdFlags|log.Lmicroseconds)}
	if opts.RollbarToken != "" {
		rollbar.SetToken(opts.RollbarToken)
		rollbar.SetEnvironment(opts.Env)
		rollbar.SetEnabled(true)
		l.rollbar = true
	} else {
		rollbar.SetEnabled(false)
	}
	return l
}

// Nop discards everything. Used by tests.
func Nop() Logger {
	return &stdLogger{std: log.New(io.Discard, "", 0)}
}

func (l *stdLogger) print(level, msg string, args []interface{}) {
	if len(args) == 0 {
		l.std.Printf("[%s] %s", level, msg)
		return
	}
	l.std.Printf("[%s] %s %+v", level, msg, args)
}

func (l *stdLogger) report(level, msg string, args []interface{}) {
	if !l.rollbar {
		return
	}
	rollbar.Log(level, append([]interface{}{msg}, args...)...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	l.print("DEBUG", msg, args)
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO", msg, args)
	l.report(rollbar.INFO, msg, args)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.print("WARN", msg, args)
	l.report(rollbar.WARN, msg, args)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.print("ERROR", msg, args)
	l.report(rollbar.ERR, msg, args)
}

// Close flushes pending error reports.
func Close() {
	rollbar.Close()
}
