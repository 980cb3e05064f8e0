package openshelf

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated identity context for a user. It is created by
// consuming a successful external login, refreshed on token renewal, and
// destroyed on logout or inactivity timeout.
type Session struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userID"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Expired reports whether the session token has lapsed. A session is
// authenticated only while its token is unexpired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IdentityProvider is the external identity authority. Registration and OTP
// issuance live behind it and are out of scope here.
type IdentityProvider interface {
	// GetSession returns the provider's current session, or nil when the user
	// is signed out. Errors indicate the provider could not be consulted.
	GetSession(ctx context.Context) (*Session, error)

	// Refresh renews the session token and returns the renewed session.
	Refresh(ctx context.Context) (*Session, error)

	// Logout invalidates the provider-side session.
	Logout(ctx context.Context) error

	// Subscribe registers a handler for out-of-band session changes (nil means
	// the session ended externally). The returned func removes the handler.
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// Authorizer yields the permission set an operation should be judged against.
type Authorizer interface {
	// PermissionSet returns the resolved permissions of the current tenant
	// context, or an error when no tenant is selected.
	PermissionSet() (PermissionSet, error)
}
