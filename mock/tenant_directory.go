package mock

import (
	"context"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf"
)

var _ openshelf.TenantDirectory = (*TenantDirectory)(nil)

// TenantDirectory is a mock implementation of an openshelf.TenantDirectory.
type TenantDirectory struct {
	ListMembershipsFn func(context.Context, uuid.UUID) ([]openshelf.Membership, error)
	GetMembershipFn   func(context.Context, uuid.UUID, uuid.UUID) (*openshelf.Membership, error)
}

// NewTenantDirectory returns a mock whose methods report no memberships.
func NewTenantDirectory() *TenantDirectory {
	return &TenantDirectory{
		ListMembershipsFn: func(context.Context, uuid.UUID) ([]openshelf.Membership, error) {
			return nil, nil
		},
		GetMembershipFn: func(context.Context, uuid.UUID, uuid.UUID) (*openshelf.Membership, error) {
			return nil, &openshelf.Error{Code: openshelf.ENotFound, Msg: "membership not found"}
		},
	}
}

// ListMemberships returns every membership record for the user.
func (d *TenantDirectory) ListMemberships(ctx context.Context, userID uuid.UUID) ([]openshelf.Membership, error) {
	return d.ListMembershipsFn(ctx, userID)
}

// GetMembership returns the user's membership in the given tenant.
func (d *TenantDirectory) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*openshelf.Membership, error) {
	return d.GetMembershipFn(ctx, userID, tenantID)
}
