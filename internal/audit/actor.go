package audit

import "context"

type actorKey struct{}
type traceKey struct{}

// WithActor returns a context carrying the display label of the principal
// responsible for subsequent audited operations. Hosts set it once per unit
// of work (e.g. in auth middleware) instead of threading the label through
// every call, and instead of a process-wide slot that would leak across
// concurrent requests.
func WithActor(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, actorKey{}, label)
}

// ActorFrom returns the actor label carried by ctx, or "" when none is set.
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTraceID attaches a trace identifier recorded alongside each entry.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceIDFrom returns the trace id carried by ctx, or "".
func TraceIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
