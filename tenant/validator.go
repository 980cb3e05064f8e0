package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf"
)

// Validator confirms against the remote authority that a user holds an active
// membership in a tenant. The check is idempotent and safe to retry; the
// Validator itself never retries.
//
// There is exactly one validation path. No environment gets a permissive
// fallback.
type Validator struct {
	directory openshelf.TenantDirectory
}

// NewValidator returns a Validator over the given directory.
func NewValidator(directory openshelf.TenantDirectory) *Validator {
	return &Validator{directory: directory}
}

// Validate returns the user's active membership in the tenant. A membership
// that is missing or not active resolves to ErrTenantAccessDenied with no
// distinction between the two. Directory failures surface as retryable.
func (v *Validator) Validate(ctx context.Context, userID, tenantID uuid.UUID) (*openshelf.Membership, error) {
	m, err := v.directory.GetMembership(ctx, userID, tenantID)
	if err != nil {
		if openshelf.ErrorCode(err) == openshelf.ENotFound {
			return nil, ErrTenantAccessDenied
		}
		return nil, ErrDirectoryUnavailable(err)
	}

	if !m.IsActive() {
		return nil, ErrTenantAccessDenied
	}

	return m, nil
}
