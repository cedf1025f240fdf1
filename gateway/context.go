package gateway

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader carries the correlation id on every request.
const RequestIDHeader = "X-Request-ID"

// WithRequestID attaches a correlation id to ctx for outgoing requests.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by [WithRequestID].
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func requestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}
