package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is a level below slog.LevelDebug for the highest-volume,
// byte-level wire tracing.
const LevelTrace = slog.Level(-8)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

// NewLogger builds the logger the demo command and any embedder wires
// through the library, with its level taken from cfg.LogLevel.
func NewLogger(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		level = LevelTrace
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "info":
		fallthrough
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				levelLabel, exists := levelNames[level]
				if !exists {
					levelLabel = level.String()
				}
				a.Value = slog.StringValue(levelLabel)
			}
			return a
		},
	}
	return slog.New(handler{slog.NewTextHandler(os.Stdout, opts)})
}

// handler adds the active session's login name and switchboard session id
// to every record, when the context carries them.
type handler struct {
	slog.Handler
}

type ctxKey string

const (
	ctxKeyLoginName ctxKey = "loginName"
	ctxKeySessionID ctxKey = "sessionID"
)

// WithLoginName attaches a login name to ctx for handler to pick up.
func WithLoginName(ctx context.Context, loginName string) context.Context {
	return context.WithValue(ctx, ctxKeyLoginName, loginName)
}

// WithSessionID attaches a switchboard session id to ctx for handler to pick up.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, sessionID)
}

func (h handler) Handle(ctx context.Context, r slog.Record) error {
	if ln, ok := ctx.Value(ctxKeyLoginName).(string); ok {
		r.AddAttrs(slog.String("loginName", ln))
	}
	if sid, ok := ctx.Value(ctxKeySessionID).(string); ok {
		r.AddAttrs(slog.String("sessionID", sid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handler{h.Handler.WithAttrs(attrs)}
}

func (h handler) WithGroup(name string) slog.Handler {
	return handler{h.Handler.WithGroup(name)}
}
