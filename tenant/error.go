package tenant

import (
	"github.com/openshelf/openshelf"
)

var (
	// ErrTenantAccessDenied is returned for a tenant the user may not act in.
	// Missing and inactive memberships share this error deliberately, so
	// callers cannot probe whether a membership record exists.
	ErrTenantAccessDenied = &openshelf.Error{
		Code: openshelf.EForbidden,
		Msg:  "no access to the requested library",
	}

	// ErrNoTenantSelected is returned by permission queries before a tenant
	// has been chosen.
	ErrNoTenantSelected = &openshelf.Error{
		Code: openshelf.EInvalid,
		Msg:  "no library selected",
	}

	// ErrSwitchSuperseded is returned to a switch caller whose in-flight
	// validation was overtaken by a newer switch. No state was changed on its
	// behalf.
	ErrSwitchSuperseded = &openshelf.Error{
		Code: openshelf.EConflict,
		Msg:  "switch superseded by a newer request",
	}
)

// ErrDirectoryUnavailable wraps a failure to reach the tenant directory.
// Safe to retry.
func ErrDirectoryUnavailable(err error) *openshelf.Error {
	return &openshelf.Error{
		Code: openshelf.EUnavailable,
		Msg:  "library directory unavailable",
		Err:  err,
	}
}
