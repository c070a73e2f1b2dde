package apperrors

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying the given request id, used to
// correlate log lines for a single REST call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID extracts the request id previously stored with WithRequestID,
// returning "" if none is present.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
