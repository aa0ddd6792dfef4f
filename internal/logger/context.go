package logger

import "context"

type contextKey struct{}

// LogContext is the logging scope of one service hook invocation. The Ctx
// logging functions prepend its non-empty fields to every record.
type LogContext struct {
	TraceID string
	SpanID  string
	Logger  string // logical logger: lifecycled.service, lifecycled.lifecycle, ...
	Service string // service instance name
	Phase   string // lifecycle event tag, e.g. lifecycle.setup
	Handler string // hook or invoker name

	// Level is the service's own minimum level. LevelDebug adds no
	// filtering on top of the process level.
	Level Level
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext bound to a service and its log level.
func NewLogContext(service string, level Level) *LogContext {
	return &LogContext{Logger: "lifecycled.service", Service: service, Level: level}
}

// Clone returns a copy; nil stays nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

func (lc *LogContext) derive(set func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		set(c)
	}
	return c
}

// WithHandler returns a copy scoped to one hook in one phase.
func (lc *LogContext) WithHandler(logger, phase, handler string) *LogContext {
	return lc.derive(func(c *LogContext) {
		c.Logger, c.Phase, c.Handler = logger, phase, handler
	})
}

// WithTrace returns a copy carrying the span the hook runs in.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.derive(func(c *LogContext) {
		c.TraceID, c.SpanID = traceID, spanID
	})
}
