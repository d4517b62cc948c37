package ctxkeys

import (
	"context"

	"github.com/Kyushi/pemoi/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const UserKey contextKey = "user"

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Viewer is the request's viewer, anonymous without a signed-in user.
func Viewer(ctx context.Context) model.Viewer {
	return model.ViewerFor(User(ctx))
}
