package openshelf

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MembershipStatus is the lifecycle state of a user's membership in a tenant.
type MembershipStatus string

const (
	MembershipActive   = MembershipStatus("active")
	MembershipInactive = MembershipStatus("inactive")
	MembershipPending  = MembershipStatus("pending")
)

// Membership grants a user a role within a tenant. Memberships are created
// externally (invitation acceptance) and are read-only from this core's
// perspective.
type Membership struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"userID"`
	TenantID      uuid.UUID        `json:"tenantID"`
	TenantName    string           `json:"tenantName"`
	TenantCode    string           `json:"tenantCode"`
	Role          Role             `json:"role"`
	CustomGrants  []Permission     `json:"customGrants,omitempty"`
	CustomDenials []Permission     `json:"customDenials,omitempty"`
	Status        MembershipStatus `json:"status"`
	JoinedAt      time.Time        `json:"joinedAt"`
}

// IsActive reports whether the membership currently permits acting in its tenant.
func (m *Membership) IsActive() bool {
	return m.Status == MembershipActive
}

// EffectivePermissions resolves the membership's role, grants and denials into
// a permission set. Derived on demand, never persisted.
func (m *Membership) EffectivePermissions() PermissionSet {
	return Resolve(m.Role, m.CustomGrants, m.CustomDenials)
}

// TenantDirectory is the remote authority on who may act where. It is consumed
// as an external collaborator; its own policy engine is opaque to this core.
type TenantDirectory interface {
	// ListMemberships returns every membership record for the user, in any
	// status. Callers filter for active ones.
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)

	// GetMembership returns the user's membership in the given tenant, or an
	// error with code ENotFound when no record exists.
	GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*Membership, error)
}
