package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/transit-board/internal/common/discord"
)

// Logger interface defines the logging methods
type Logger interface {
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// logger implementation
type loggerImpl struct {
	zl zerolog.Logger
}

// Config holds configuration for the logger
type Config struct {
	Level      zerolog.Level
	Console    io.Writer
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	DiscordURL string
}

// DefaultConfig logs info and above to stdout and a rotating file
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Console:    ConsoleWriter(),
		FilePath:   "transitboard.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// New creates a new logger instance with the given writers
func New(writers ...io.Writer) Logger {
	var nonNil []io.Writer
	for _, w := range writers {
		if w != nil {
			nonNil = append(nonNil, w)
		}
	}
	if len(nonNil) == 0 {
		nonNil = append(nonNil, io.Discard)
	}
	multi := io.MultiWriter(nonNil...)
	zl := zerolog.New(multi).With().Timestamp().Logger()
	return &loggerImpl{zl: zl}
}

// NewFromConfig builds a leveled logger. ERROR and FATAL events are also
// posted to Discord when a webhook URL is configured.
func NewFromConfig(cfg Config) Logger {
	var writers []io.Writer
	if cfg.Console != nil {
		writers = append(writers, cfg.Console)
	}
	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}

	l := New(writers...).(*loggerImpl)
	l.zl = l.zl.Level(cfg.Level)
	if cfg.DiscordURL != "" {
		l.zl = l.zl.Hook(&discordHook{client: discord.NewClient(cfg.DiscordURL)})
	}
	return l
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &loggerImpl{zl: zerolog.Nop()}
}

// ConsoleWriter returns a console writer
func ConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Info logs an info message
func (l *loggerImpl) Info(msg string, fields ...interface{}) {
	logWithFields(l.zl.Info(), msg, fields...)
}

// Warn logs a warning message
func (l *loggerImpl) Warn(msg string, fields ...interface{}) {
	logWithFields(l.zl.Warn(), msg, fields...)
}

// Error logs an error message
func (l *loggerImpl) Error(msg string, fields ...interface{}) {
	logWithFields(l.zl.Error(), msg, fields...)
}

// Debug logs a debug message
func (l *loggerImpl) Debug(msg string, fields ...interface{}) {
	logWithFields(l.zl.Debug(), msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *loggerImpl) Fatal(msg string, fields ...interface{}) {
	logWithFields(l.zl.Fatal(), msg, fields...)
}

// With returns a child logger carrying the given key-value pairs
func (l *loggerImpl) With(fields ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &loggerImpl{zl: ctx.Logger()}
}

// alertFieldsKey carries an event's fields through to the Discord hook
type alertFieldsKey struct{}

// logWithFields adds structured fields to the event
func logWithFields(event *zerolog.Event, msg string, fields ...interface{}) {
	if event == nil {
		return
	}
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]interface{}); ok {
			event.Fields(m).Ctx(context.WithValue(context.Background(), alertFieldsKey{}, m)).Msg(msg)
			return
		}
	}
	// fallback: treat as key-value pairs
	collected := map[string]interface{}{}
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			collected[key] = fields[i+1]
			if key == "error" {
				if err, ok := fields[i+1].(error); ok && err != nil {
					event = event.Err(err)
					continue
				}
			}
			event = event.Interface(key, fields[i+1])
		}
	}
	if len(collected) > 0 {
		event = event.Ctx(context.WithValue(context.Background(), alertFieldsKey{}, collected))
	}
	event.Msg(msg)
}

type discordHook struct {
	client *discord.Client
}

func (h *discordHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	name := strings.ToUpper(level.String())
	var fields map[string]interface{}
	if ctx := e.GetCtx(); ctx != nil {
		fields, _ = ctx.Value(alertFieldsKey{}).(map[string]interface{})
	}
	if level >= zerolog.FatalLevel {
		// the process exits right after this event
		_ = h.client.SendLogMessage(name, msg, fields)
		return
	}
	go func() {
		_ = h.client.SendLogMessage(name, msg, fields)
	}()
}
