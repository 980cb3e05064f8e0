package openshelf

import (
	"time"

	"github.com/google/uuid"
)

// TenantContext is the cached "current tenant" selection. At most one is
// current per session. A persisted TenantContext must always correspond to an
// active membership; a restore that no longer matches the fresh membership
// list is purged, never trusted.
type TenantContext struct {
	TenantID       uuid.UUID `json:"tenantID"`
	TenantName     string    `json:"tenantName"`
	TenantCode     string    `json:"tenantCode"`
	Role           Role      `json:"role"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// NewTenantContext derives a tenant context from a membership.
func NewTenantContext(m *Membership, now time.Time) *TenantContext {
	return &TenantContext{
		TenantID:       m.TenantID,
		TenantName:     m.TenantName,
		TenantCode:     m.TenantCode,
		Role:           m.Role,
		LastAccessedAt: now,
	}
}
