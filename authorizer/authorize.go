// Package authorizer guards tenant-scoped operations against the permission
// set resolved for the caller's current tenant.
package authorizer

import (
	"context"
	"fmt"

	"github.com/openshelf/openshelf"
	icontext "github.com/openshelf/openshelf/context"
)

func isAllowedAll(a openshelf.Authorizer, permissions []openshelf.Permission) error {
	pset, err := a.PermissionSet()
	if err != nil {
		return err
	}

	for _, p := range permissions {
		if !pset.Has(p) {
			return &openshelf.Error{
				Code: openshelf.EForbidden,
				Msg:  fmt.Sprintf("%s is forbidden", p),
			}
		}
	}
	return nil
}

// IsAllowed checks to see if an action is authorized by retrieving the
// authorizer off of context and checking the permission against it.
func IsAllowed(ctx context.Context, p openshelf.Permission) error {
	return IsAllowedAll(ctx, p)
}

// IsAllowedAll checks to see if an action is authorized by ALL permissions.
func IsAllowedAll(ctx context.Context, permissions ...openshelf.Permission) error {
	a, err := icontext.GetAuthorizer(ctx)
	if err != nil {
		return err
	}
	return isAllowedAll(a, permissions)
}

// IsAllowedAny checks to see if an action is authorized by AT LEAST ONE
// of the permissions.
func IsAllowedAny(ctx context.Context, permissions ...openshelf.Permission) error {
	a, err := icontext.GetAuthorizer(ctx)
	if err != nil {
		return err
	}
	pset, err := a.PermissionSet()
	if err != nil {
		return err
	}
	for _, p := range permissions {
		if pset.Has(p) {
			return nil
		}
	}
	return &openshelf.Error{
		Code: openshelf.EForbidden,
		Msg:  fmt.Sprintf("none of %v is permitted", permissions),
	}
}
