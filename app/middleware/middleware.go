package appMiddleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey     contextKey = "userID"
	userHolderKey contextKey = "userHolder"
)

// Claims are the access-token claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserHolder lets outer middleware observe the user id resolved further down the chain.
type UserHolder struct {
	UserID string
}

func WithUserHolder(ctx context.Context, h *UserHolder) context.Context {
	return context.WithValue(ctx, userHolderKey, h)
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(userHolderKey).(*UserHolder); ok {
		h.UserID = userID
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext is the currentUserId() capability used by handlers.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
