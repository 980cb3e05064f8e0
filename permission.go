package openshelf

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Permission names a single capability in action:resource form.
type Permission string

// The capability catalog. Tenant-scoped operations guard themselves with
// exactly one of these.
const (
	ReadBooks       = Permission("read:books")
	WriteBooks      = Permission("write:books")
	DeleteBooks     = Permission("delete:books")
	ReadMembers     = Permission("read:members")
	WriteMembers    = Permission("write:members")
	DeleteMembers   = Permission("delete:members")
	ReadLoans       = Permission("read:loans")
	WriteLoans      = Permission("write:loans")
	ReadReports     = Permission("read:reports")
	ManageStaff     = Permission("manage:staff")
	ManageSettings  = Permission("manage:settings")
	ManageTenant    = Permission("manage:tenant")
	ManageBilling   = Permission("manage:billing")
	TransferOwner   = Permission("transfer:ownership")
	ExportReports   = Permission("export:reports")
	ImportInventory = Permission("import:inventory")
)

// Role is the named position a member holds within a tenant.
type Role string

const (
	RoleLibrarian = Role("librarian")
	RoleManager   = Role("manager")
	RoleOwner     = Role("owner")
)

// Valid returns an error unless the role is one of the known roles.
func (r Role) Valid() error {
	switch r {
	case RoleLibrarian, RoleManager, RoleOwner:
		return nil
	default:
		return &Error{
			Code: EInvalid,
			Msg:  fmt.Sprintf("unknown role %q", string(r)),
		}
	}
}

// Role defaults are built as a chain: each higher role starts from the full
// set of the role below it and adds a delta. The chain is what makes
// librarian ⊆ manager ⊆ owner hold without keeping three lists in sync by hand.
var (
	librarianDefaults = []Permission{
		ReadBooks, WriteBooks,
		ReadMembers, WriteMembers,
		ReadLoans, WriteLoans,
	}

	managerDelta = []Permission{
		DeleteBooks, DeleteMembers,
		ReadReports, ExportReports, ImportInventory,
		ManageStaff,
	}

	ownerDelta = []Permission{
		ManageSettings, ManageTenant, ManageBilling, TransferOwner,
	}

	roleDefaults = map[Role]PermissionSet{
		RoleLibrarian: NewPermissionSet(librarianDefaults...),
		RoleManager:   NewPermissionSet(librarianDefaults...).With(managerDelta...),
		RoleOwner:     NewPermissionSet(librarianDefaults...).With(managerDelta...).With(ownerDelta...),
	}
)

// RoleDefaults returns a copy of the default permission set for the role.
// Unknown roles resolve to the empty set.
func RoleDefaults(r Role) PermissionSet {
	return roleDefaults[r].clone()
}

// PermissionSet is an immutable-by-convention set of permissions. The zero
// value is the empty set and is safe to query.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the provided permissions.
func NewPermissionSet(ps ...Permission) PermissionSet {
	s := make(PermissionSet, len(ps))
	for _, p := range ps {
		s[p] = struct{}{}
	}
	return s
}

func (s PermissionSet) clone() PermissionSet {
	c := make(PermissionSet, len(s))
	for p := range s {
		c[p] = struct{}{}
	}
	return c
}

// With returns a new set containing this set plus the provided permissions.
func (s PermissionSet) With(ps ...Permission) PermissionSet {
	c := s.clone()
	for _, p := range ps {
		c[p] = struct{}{}
	}
	return c
}

// Without returns a new set containing this set minus the provided permissions.
func (s PermissionSet) Without(ps ...Permission) PermissionSet {
	c := s.clone()
	for _, p := range ps {
		delete(c, p)
	}
	return c
}

// Has reports whether the permission is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether at least one of the permissions is in the set.
func (s PermissionSet) HasAny(ps ...Permission) bool {
	for _, p := range ps {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of the permissions is in the set.
func (s PermissionSet) HasAll(ps ...Permission) bool {
	for _, p := range ps {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every permission in the set is also in other.
func (s PermissionSet) SubsetOf(other PermissionSet) bool {
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold exactly the same permissions.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// List returns the permissions in the set, sorted for stable output.
func (s PermissionSet) List() []Permission {
	ps := make([]Permission, 0, len(s))
	for p := range s {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}

// Resolve computes the effective permission set for a membership:
// (role defaults ∪ grants) minus denials. Denials win over everything,
// including the role's own defaults. Pure; no side effects.
func Resolve(role Role, grants, denials []Permission) PermissionSet {
	return RoleDefaults(role).With(grants...).Without(denials...)
}

// ErrPermissionDenied builds the error raised at the entry of a tenant-scoped
// operation the current role may not perform.
func ErrPermissionDenied(p Permission, role Role, tenantID uuid.UUID) *Error {
	return &Error{
		Code: EForbidden,
		Msg:  fmt.Sprintf("%s is forbidden for role %s in tenant %s", p, role, tenantID),
	}
}
