package cont

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// PutUserID stores the authenticated author id in the request context.
func PutUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the author id set by the authentication middleware.
func GetUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
