package identity

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/kit/metric"
)

// ProviderMetrics is a metrics middleware for an identity provider.
type ProviderMetrics struct {
	// RED metrics
	rec *metric.REDClient

	provider openshelf.IdentityProvider
}

var _ openshelf.IdentityProvider = (*ProviderMetrics)(nil)

// NewProviderMetrics creates a new identity provider metrics middleware.
func NewProviderMetrics(reg prometheus.Registerer, p openshelf.IdentityProvider) *ProviderMetrics {
	return &ProviderMetrics{
		rec:      metric.New(reg, "identity"),
		provider: p,
	}
}

// GetSession calls the underlying provider and tracks RED metrics for the call.
func (m *ProviderMetrics) GetSession(ctx context.Context) (s *openshelf.Session, err error) {
	rec := m.rec.Record("get_session")
	s, err = m.provider.GetSession(ctx)
	return s, rec(err)
}

// Refresh calls the underlying provider and tracks RED metrics for the call.
func (m *ProviderMetrics) Refresh(ctx context.Context) (s *openshelf.Session, err error) {
	rec := m.rec.Record("refresh")
	s, err = m.provider.Refresh(ctx)
	return s, rec(err)
}

// Logout calls the underlying provider and tracks RED metrics for the call.
func (m *ProviderMetrics) Logout(ctx context.Context) (err error) {
	rec := m.rec.Record("logout")
	err = m.provider.Logout(ctx)
	return rec(err)
}

// Subscribe passes through to the underlying provider.
func (m *ProviderMetrics) Subscribe(fn func(*openshelf.Session)) (unsubscribe func()) {
	return m.provider.Subscribe(fn)
}
