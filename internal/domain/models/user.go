package models

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// User is the caller identity taken from a verified access token.
type User struct {
	ID   uuid.UUID
	Role types.UserRole
}

func AnonymousUser() *User {
	return &User{}
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == uuid.Nil
}

func (u *User) Is(role types.UserRole) bool {
	return u != nil && u.Role == role
}

type userKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext never returns nil.
func UserFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userKey{}).(*User); ok && u != nil {
		return u
	}
	return AnonymousUser()
}
