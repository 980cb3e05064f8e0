package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/kit/metric"
)

// DirectoryMetrics is a metrics middleware for the tenant directory.
type DirectoryMetrics struct {
	// RED metrics
	rec *metric.REDClient

	directory openshelf.TenantDirectory
}

var _ openshelf.TenantDirectory = (*DirectoryMetrics)(nil)

// NewDirectoryMetrics creates a new tenant directory metrics middleware.
func NewDirectoryMetrics(reg prometheus.Registerer, d openshelf.TenantDirectory) *DirectoryMetrics {
	return &DirectoryMetrics{
		rec:       metric.New(reg, "tenant_directory"),
		directory: d,
	}
}

// ListMemberships calls the underlying directory and tracks RED metrics for the call.
func (m *DirectoryMetrics) ListMemberships(ctx context.Context, userID uuid.UUID) (ms []openshelf.Membership, err error) {
	rec := m.rec.Record("list_memberships")
	ms, err = m.directory.ListMemberships(ctx, userID)
	return ms, rec(err)
}

// GetMembership calls the underlying directory and tracks RED metrics for the call.
func (m *DirectoryMetrics) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (mem *openshelf.Membership, err error) {
	rec := m.rec.Record("get_membership")
	mem, err = m.directory.GetMembership(ctx, userID, tenantID)
	return mem, rec(err)
}
