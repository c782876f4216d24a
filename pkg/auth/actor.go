package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Actor is the caller a service operation runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.UserID != uuid.Nil && a.Role == enums.RoleAdmin
}

// RequireUser fails with UNAUTHORIZED when no user is signed in.
func (a Actor) RequireUser() error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return nil
}

// RequireAdmin fails with UNAUTHORIZED for anonymous callers and FORBIDDEN
// for signed-in non-admins.
func (a Actor) RequireAdmin() error {
	if err := a.RequireUser(); err != nil {
		return err
	}
	if a.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

// ActorPtr returns the user id as a pointer for nullable audit columns.
func (a Actor) ActorPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
