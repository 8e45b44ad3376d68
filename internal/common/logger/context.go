package logger

import "context"

type requestIDKey struct{}

// RequestIDField is the log field carrying the inbound request id.
const RequestIDField = "requestId"

// ContextWithRequestID stores the request id on ctx.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored on ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// FromContext returns base scoped to the request carried by ctx. Without a
// request id the line is tagged "no-id".
func FromContext(ctx context.Context, base Logger) Logger {
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		id = "no-id"
	}
	return base.WithFields(map[string]interface{}{RequestIDField: id})
}
