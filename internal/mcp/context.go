package mcp

import "context"

// clientContextKey is the context key for the calling client.
type clientContextKey struct{}

// ClientContext identifies the signed-in client a tool call acts for.
type ClientContext struct {
	ClientID string
	Email    string
}

// WithClientContext returns a new context with cc attached.
func WithClientContext(ctx context.Context, cc ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, cc)
}

// GetClientContext extracts the ClientContext from ctx, if present.
func GetClientContext(ctx context.Context) (ClientContext, bool) {
	cc, ok := ctx.Value(clientContextKey{}).(ClientContext)
	return cc, ok && cc.ClientID != ""
}
