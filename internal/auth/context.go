package auth

import "context"

type contextKey struct{}

// AuthContext identifies the signed-in administrator for a request.
type AuthContext struct {
	UserID    int64
	Username  string
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func Username(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Username
}
