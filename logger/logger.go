package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Logger is a zerolog logger that takes its fields as maps, so call sites
// can build them with Fields and the helpers in fields.go.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New writes to the stream named by cfg.Output.
func New(cfg *Config, serviceName string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, serviceName, out)
}

// NewWithWriter builds a logger on w. Unparseable levels fall back to info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = zerolog.New(consoleWriter(cfg, serviceName, w))
	default:
		zl = zerolog.New(w)
	}

	zc := zl.Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		// Skip emit and the level method that called it.
		zc = zc.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 2)
	}
	if serviceName != "" {
		zc = zc.Str("service", serviceName)
	}
	return &Logger{zl: zc.Logger(), service: serviceName}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithContext adds the request, user, execution and trace identifiers
// stored on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	for _, f := range contextFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			zc = zc.Str(f.field, v)
		}
	}
	return l.derive(zc)
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.zl.With().Str(FieldComponent, name))
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.zl.With().Fields(fields))
}

func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.zl.With().Err(err))
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// emit is a no-op for a disabled level; zerolog hands back a nil event.
func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	if event == nil {
		return
	}
	for _, fm := range fields {
		event.Fields(fm)
	}
	event.Msg(msg)
}

var global atomic.Pointer[Logger]

// Init installs the global logger for serviceName from cfg.
func Init(cfg *Config, serviceName string) {
	cfg.ApplyDefaults()
	global.Store(New(cfg, serviceName))
}

// SetGlobalLogger replaces the global logger. nil restores the default on
// next use.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger, installing a console logger at
// info level if none was set.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := &Config{}
	cfg.ApplyDefaults()
	global.CompareAndSwap(nil, New(cfg, ""))
	return global.Load()
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}

var levelTags = map[string]struct{ tag, color string }{
	"DEBUG": {"[DBG]", "\033[36m"},
	"INFO":  {"[INF]", "\033[32m"},
	"WARN":  {"[WRN]", "\033[33m"},
	"ERROR": {"[ERR]", "\033[31m"},
	"FATAL": {"[FTL]", "\033[35m"},
}

// consoleWriter prefixes each line with a short service tag, e.g.
// "[WOR][INF]" for workflowd.
func consoleWriter(cfg *Config, serviceName string, w io.Writer) zerolog.ConsoleWriter {
	paint := func(color, s string) string {
		if cfg.NoColor {
			return s
		}
		return color + s + "\033[0m"
	}
	var prefix string
	if len(serviceName) >= 3 {
		prefix = paint("\033[34m", "["+strings.ToUpper(serviceName[:3])+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			name := strings.ToUpper(fmt.Sprint(i))
			lvl := "[" + name + "]"
			if t, ok := levelTags[name]; ok {
				lvl = paint(t.color, t.tag)
			}
			return prefix + lvl
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
