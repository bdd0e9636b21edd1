package logger

import "context"

// context keys use concrete type struct{} to avoid allocating on assignment to interface{}.
type logCtxKey struct{}

var logTracerKey = logCtxKey{}

// Tracer carries request-scoped identity that every log line should mention.
type Tracer struct {
	RemoteAddr string `json:"remote_addr,omitempty"`
	AppTraceID string `json:"app_trace_id,omitempty"`
}

// Inject inject Tracer object into context.
// Use context Values only for request-scoped data that transits processes and APIs,
// not for passing optional parameters to functions. https://blog.golang.org/context
func Inject(ctx context.Context, stuff Tracer) context.Context {
	return context.WithValue(ctx, logTracerKey, stuff)
}

// Extract get Tracer information from context.
func Extract(ctx context.Context) (Tracer, bool) {
	stuff, ok := ctx.Value(logTracerKey).(Tracer)
	if !ok {
		return Tracer{}, false
	}

	return stuff, ok
}

// MustExtract will extract Tracer without false condition.
// When Tracer is not exist, it will return empty Tracer instead of error.
func MustExtract(ctx context.Context) Tracer {
	stuff, _ := Extract(ctx)
	return stuff
}
