package identity

import (
	"context"
	"strings"
)

// Role of the verified caller. Identity verification happens upstream; the
// core only receives the resolved caller id and role.
type Role string

const (
	RoleUser  Role = "user"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Caller is the verified identity attached to an inbound request.
type Caller struct {
	ID   string
	Role Role
}

type callerKey struct{}

// WithCaller stores the verified caller in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the verified caller, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || strings.TrimSpace(caller.ID) == "" {
		return Caller{}, false
	}
	return caller, true
}

func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleHost:
		return RoleHost
	default:
		return RoleUser
	}
}
