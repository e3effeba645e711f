package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logOutput is one destination of the handler and the lowest level it takes.
type logOutput struct {
	w     io.Writer
	level slog.Level
}

// horusHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<sessionID>\t<message>\t<key=value ...>
//
// Each record is formatted once and written to every output whose level
// it reaches.
type horusHandler struct {
	outputs   []logOutput
	sessionID string
	attrs     []slog.Attr
}

func (h *horusHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, o := range h.outputs {
		if level >= o.level {
			return true
		}
	}
	return false
}

func (h *horusHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.sessionID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	for _, o := range h.outputs {
		if r.Level < o.level {
			continue
		}
		if _, err := o.w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (h *horusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &horusHandler{
		outputs:   h.outputs,
		sessionID: h.sessionID,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *horusHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps a config log level onto slog. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// newLogger creates a structured logger that writes to a rotating
// logDir/horus.log at the configured level and to stderr for warnings and
// errors. The returned closer releases the log file.
func newLogger(logDir, sessionID, level string) (*slog.Logger, io.Closer, error) {
	fileLevel, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "horus.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	handler := &horusHandler{
		outputs: []logOutput{
			{w: file, level: fileLevel},
			{w: os.Stderr, level: slog.LevelWarn},
		},
		sessionID: sessionID,
	}
	return slog.New(handler), file, nil
}

// slogAdapter wraps *slog.Logger to satisfy the horus.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
