package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/inmem"
)

// membershipsFile is the on-disk seed format for the dev directory.
//
//	[[membership]]
//	user = "3f2b..."
//	tenant = "a41c..."
//	tenant-name = "Central Library"
//	tenant-code = "CEN"
//	role = "manager"
//	status = "active"
//	grants = ["export:reports"]
//	denials = ["delete:members"]
type membershipsFile struct {
	Memberships []membershipEntry `toml:"membership"`
}

type membershipEntry struct {
	User       string   `toml:"user"`
	Tenant     string   `toml:"tenant"`
	TenantName string   `toml:"tenant-name"`
	TenantCode string   `toml:"tenant-code"`
	Role       string   `toml:"role"`
	Status     string   `toml:"status"`
	Grants     []string `toml:"grants"`
	Denials    []string `toml:"denials"`
}

// loadDirectory reads the membership seed file into an in-memory directory.
// An absent file yields an empty directory.
func loadDirectory(path string) (*inmem.TenantDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return inmem.NewTenantDirectory(), nil
		}
		return nil, err
	}

	var file membershipsFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unable to parse membership seed %s: %w", path, err)
	}

	ms := make([]openshelf.Membership, 0, len(file.Memberships))
	for i, e := range file.Memberships {
		userID, err := uuid.Parse(e.User)
		if err != nil {
			return nil, fmt.Errorf("membership %d: bad user id: %w", i, err)
		}
		tenantID, err := uuid.Parse(e.Tenant)
		if err != nil {
			return nil, fmt.Errorf("membership %d: bad tenant id: %w", i, err)
		}
		role := openshelf.Role(e.Role)
		if err := role.Valid(); err != nil {
			return nil, fmt.Errorf("membership %d: %w", i, err)
		}
		status := openshelf.MembershipStatus(e.Status)
		if status == "" {
			status = openshelf.MembershipActive
		}

		ms = append(ms, openshelf.Membership{
			ID:            uuid.New(),
			UserID:        userID,
			TenantID:      tenantID,
			TenantName:    e.TenantName,
			TenantCode:    e.TenantCode,
			Role:          role,
			CustomGrants:  toPermissions(e.Grants),
			CustomDenials: toPermissions(e.Denials),
			Status:        status,
			JoinedAt:      time.Now(),
		})
	}

	return inmem.NewTenantDirectory(ms...), nil
}

func toPermissions(ss []string) []openshelf.Permission {
	if len(ss) == 0 {
		return nil
	}
	ps := make([]openshelf.Permission, 0, len(ss))
	for _, s := range ss {
		ps = append(ps, openshelf.Permission(s))
	}
	return ps
}
