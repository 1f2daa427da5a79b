package handler

import "context"

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUser       contextKey = "authenticated_user"
)

// WithRequestID returns a context carrying requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext retrieves the request ID set by RequestID
// middleware, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// WithAuthenticatedUser returns a context carrying the authenticated-user
// identity populated by an external authentication layer (§6 collaborator
// "authenticated user").
func WithAuthenticatedUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// AuthenticatedUser retrieves the authenticated-user identity from ctx, or
// "" if none was set.
func AuthenticatedUser(ctx context.Context) string {
	user, _ := ctx.Value(contextKeyUser).(string)
	return user
}
