// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing any
// net/http code.
//
// Usage in services:
//
//	parentID := requestcontext.ParentID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware:
//
//	ctx = requestcontext.WithParentID(ctx, parentID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"

	"guardian/pkg/domain"
)

type (
	parentIDKey  struct{}
	requestIDKey struct{}
)

// WithParentID stores the authenticated parent on the context.
func WithParentID(ctx context.Context, parentID domain.ParentID) context.Context {
	return context.WithValue(ctx, parentIDKey{}, parentID)
}

// ParentID returns the authenticated parent, or the zero value when the
// request is unauthenticated.
func ParentID(ctx context.Context) domain.ParentID {
	parentID, _ := ctx.Value(parentIDKey{}).(domain.ParentID)
	return parentID
}

// WithRequestID stores the request correlation id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation id, or "" when unset.
func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}
