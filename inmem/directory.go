package inmem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf"
)

// TenantDirectory is an in memory openshelf.TenantDirectory, used in tests and
// by the dev daemon, which seeds it from a memberships file.
type TenantDirectory struct {
	mu          sync.RWMutex
	memberships []openshelf.Membership
}

var _ openshelf.TenantDirectory = (*TenantDirectory)(nil)

// NewTenantDirectory returns a directory holding the given memberships.
func NewTenantDirectory(ms ...openshelf.Membership) *TenantDirectory {
	return &TenantDirectory{memberships: ms}
}

// ListMemberships returns every membership record for the user, in any status.
func (d *TenantDirectory) ListMemberships(ctx context.Context, userID uuid.UUID) ([]openshelf.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []openshelf.Membership
	for _, m := range d.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMembership returns the user's membership in the tenant, or ENotFound.
func (d *TenantDirectory) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*openshelf.Membership, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.memberships {
		if m.UserID == userID && m.TenantID == tenantID {
			m := m
			return &m, nil
		}
	}
	return nil, &openshelf.Error{
		Code: openshelf.ENotFound,
		Msg:  "membership not found",
	}
}

// SetStatus updates the status of the user's membership in the tenant, for
// simulating revocation.
func (d *TenantDirectory) SetStatus(userID, tenantID uuid.UUID, status openshelf.MembershipStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.memberships {
		if d.memberships[i].UserID == userID && d.memberships[i].TenantID == tenantID {
			d.memberships[i].Status = status
		}
	}
}

// SetRole updates the role of the user's membership in the tenant, for
// simulating a promotion or demotion.
func (d *TenantDirectory) SetRole(userID, tenantID uuid.UUID, role openshelf.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.memberships {
		if d.memberships[i].UserID == userID && d.memberships[i].TenantID == tenantID {
			d.memberships[i].Role = role
		}
	}
}

// SetDenials replaces the custom denials of the user's membership in the
// tenant.
func (d *TenantDirectory) SetDenials(userID, tenantID uuid.UUID, denials ...openshelf.Permission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.memberships {
		if d.memberships[i].UserID == userID && d.memberships[i].TenantID == tenantID {
			d.memberships[i].CustomDenials = denials
		}
	}
}
