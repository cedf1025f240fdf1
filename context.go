package portalAuth

import (
	"context"

	"github.com/MrEthical07/portalAuth/gateway"
)

type sessionContextKey struct{}

// WithSession attaches a copy of sess to ctx. HTTP middleware uses it to
// hand the admitted session to handlers.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess.Clone())
}

// SessionFromContext returns the session attached by [WithSession].
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(*Session)
	return sess, ok && sess != nil
}

// WithRequestID attaches the id sent as X-Request-ID on identity-provider
// calls and recorded on audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return gateway.WithRequestID(ctx, id)
}
