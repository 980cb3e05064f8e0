package mock

import (
	"context"

	"github.com/openshelf/openshelf"
)

var _ openshelf.IdentityProvider = (*IdentityProvider)(nil)

// IdentityProvider is a mock implementation of an openshelf.IdentityProvider.
type IdentityProvider struct {
	GetSessionFn func(context.Context) (*openshelf.Session, error)
	RefreshFn    func(context.Context) (*openshelf.Session, error)
	LogoutFn     func(context.Context) error
	SubscribeFn  func(func(*openshelf.Session)) func()
}

// NewIdentityProvider returns a mock whose methods return zero values.
func NewIdentityProvider() *IdentityProvider {
	return &IdentityProvider{
		GetSessionFn: func(context.Context) (*openshelf.Session, error) { return nil, nil },
		RefreshFn:    func(context.Context) (*openshelf.Session, error) { return nil, nil },
		LogoutFn:     func(context.Context) error { return nil },
		SubscribeFn:  func(func(*openshelf.Session)) func() { return func() {} },
	}
}

// GetSession returns the provider's current session.
func (p *IdentityProvider) GetSession(ctx context.Context) (*openshelf.Session, error) {
	return p.GetSessionFn(ctx)
}

// Refresh renews the session token.
func (p *IdentityProvider) Refresh(ctx context.Context) (*openshelf.Session, error) {
	return p.RefreshFn(ctx)
}

// Logout invalidates the provider-side session.
func (p *IdentityProvider) Logout(ctx context.Context) error {
	return p.LogoutFn(ctx)
}

// Subscribe registers a handler for out-of-band session changes.
func (p *IdentityProvider) Subscribe(fn func(*openshelf.Session)) func() {
	return p.SubscribeFn(fn)
}
