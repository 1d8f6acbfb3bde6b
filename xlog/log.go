// Package xlog is the structured, leveled logger used throughout the
// consensus worker core. It follows the shape of the teacher's own
// log package (github.com/BerithFoundation/berith-chain/log, itself a
// log15 descendant): a message plus an ordered list of key/value
// context pairs, six severity levels, and a terminal formatter that
// color-codes the level when writing to a tty.
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a log severity level, ordered from most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "?????"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger writes leveled, structured entries. It is safe for concurrent
// use; the worker itself is single-threaded, but collaborator
// implementations (storage, metrics) may log from their own goroutines.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  Lvl
	module string
}

// Root is the default logger, writing to stderr with color auto-detected.
var Root = New("")

// New creates a Logger tagged with module, inheriting the terminal
// detection the teacher's cmd/berith performs at startup.
func New(module string) *Logger {
	w := colorable.NewColorableStderr()
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	return &Logger{
		out:    w,
		color:  useColor,
		level:  LvlInfo,
		module: module,
	}
}

// SetLevel changes the minimum severity that is written out.
func (l *Logger) SetLevel(lvl Lvl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// SetOutput redirects the logger, disabling color detection (used by
// tests that capture output into a buffer).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.color = false
}

func (l *Logger) write(lvl Lvl, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.level {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	caller := stack.Caller(2)

	levelTag := lvl.String()
	if l.color {
		if c, ok := levelColor[lvl]; ok {
			levelTag = c.Sprint(lvl.String())
		}
	}

	line := fmt.Sprintf("%s [%s] %s", ts, levelTag, msg)
	if l.module != "" {
		line += fmt.Sprintf(" module=%s", l.module)
	}
	for i := 0; i+1 < len(ctx); i += 2 {
		line += fmt.Sprintf(" %v=%v", ctx[i], ctx[i+1])
	}
	if lvl <= LvlWarn {
		line += fmt.Sprintf(" caller=%+v", caller)
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }

// New returns a child logger carrying an additional module tag, used by
// each package (worker, selection, storage, ...) to identify its lines.
func (l *Logger) New(module string) *Logger {
	child := New(module)
	child.level = l.level
	return child
}

func Crit(msg string, ctx ...interface{})  { Root.Crit(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root.Debug(msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { Root.Trace(msg, ctx...) }
