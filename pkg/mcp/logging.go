package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// LoggingLevel is one of the eight RFC-5424 severity names MCP uses for
// logging/setLevel and notifications/message (spec §6).
type LoggingLevel string

const (
	LevelEmergency LoggingLevel = "emergency"
	LevelAlert     LoggingLevel = "alert"
	LevelCritical  LoggingLevel = "critical"
	LevelError     LoggingLevel = "error"
	LevelWarning   LoggingLevel = "warning"
	LevelNotice    LoggingLevel = "notice"
	LevelInfo      LoggingLevel = "info"
	LevelDebug     LoggingLevel = "debug"
)

// levelSeverity ranks the eight names from most (0) to least severe (7),
// per spec §4.4: "lower name = higher severity".
var levelSeverity = map[LoggingLevel]int{
	LevelEmergency: 0,
	LevelAlert:     1,
	LevelCritical:  2,
	LevelError:     3,
	LevelWarning:   4,
	LevelNotice:    5,
	LevelInfo:      6,
	LevelDebug:     7,
}

// IsValidLoggingLevel reports whether s is one of the eight RFC-5424 names.
func IsValidLoggingLevel(s string) bool {
	_, ok := levelSeverity[LoggingLevel(s)]
	return ok
}

// compareLevels returns <0 if a is strictly more severe than b, 0 if equal,
// >0 if a is less severe. "a meets threshold b" iff compareLevels(a, b) <= 0
// (spec §8 property 5: "threshold is ≤ L in severity").
func compareLevels(a, b LoggingLevel) int {
	return levelSeverity[a] - levelSeverity[b]
}

// slog <-> MCP level mapping, used by the LoggingHandler bridge below.
var slogToMCPLevel = map[slog.Level]LoggingLevel{
	slog.LevelDebug:                    LevelDebug,
	slog.LevelInfo:                     LevelInfo,
	(slog.LevelInfo + slog.LevelWarn) / 2: LevelNotice,
	slog.LevelWarn:                    LevelWarning,
	slog.LevelError:                   LevelError,
	slog.LevelError + 4:               LevelCritical,
	slog.LevelError + 8:               LevelAlert,
	slog.LevelError + 12:              LevelEmergency,
}

var mcpToSlogLevel = func() map[LoggingLevel]slog.Level {
	m := make(map[LoggingLevel]slog.Level, len(slogToMCPLevel))
	for sl, ml := range slogToMCPLevel {
		m[ml] = sl
	}
	return m
}()

func slogLevelToMCP(l slog.Level) LoggingLevel {
	if ml, ok := slogToMCPLevel[l]; ok {
		return ml
	}
	return LevelDebug
}

func mcpLevelToSlog(l LoggingLevel) slog.Level {
	if sl, ok := mcpToSlogLevel[l]; ok {
		return sl
	}
	return slog.LevelDebug
}

// LoggingHandler is an slog.Handler that turns log records into
// notifications/message broadcasts through a Registry (spec §4.4
// "log-message(level, data, logger?)"), the way the source framework
// bridges its own structured logger into the protocol's log capability.
type LoggingHandler struct {
	registry   *Registry
	loggerName string

	mu      *sync.Mutex
	buf     *bytes.Buffer
	handler slog.Handler
}

// NewLoggingHandler returns a LoggingHandler that publishes through
// registry under the given logger name.
func NewLoggingHandler(registry *Registry, loggerName string) *LoggingHandler {
	var buf bytes.Buffer
	jsonHandler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey || a.Key == slog.MessageKey {
				return a
			}
			return a
		},
	})
	return &LoggingHandler{
		registry:   registry,
		loggerName: loggerName,
		mu:         new(sync.Mutex),
		buf:        &buf,
		handler:    jsonHandler,
	}
}

func (h *LoggingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *LoggingHandler) WithAttrs(as []slog.Attr) slog.Handler {
	h2 := *h
	h2.handler = h.handler.WithAttrs(as)
	return &h2
}

func (h *LoggingHandler) WithGroup(name string) slog.Handler {
	h2 := *h
	h2.handler = h.handler.WithGroup(name)
	return &h2
}

func (h *LoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	h.buf.Reset()
	err := h.handler.Handle(ctx, r)
	data := append([]byte(nil), h.buf.Bytes()...)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	var payload json.RawMessage = data
	h.registry.LogMessage(slogLevelToMCP(r.Level), h.loggerName, payload)
	return nil
}

var _ fmt.Stringer = LoggingLevel("")

func (l LoggingLevel) String() string { return string(l) }
