package authkit

import "context"

type contextKey int

const clientIPKey contextKey = iota

// WithClientIP attaches the caller's IP address to the context. Audit events
// emitted during the request carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
