// Package tenant holds the access context: which tenants the user may act in,
// which one is current, and the permission set resolved for it.
package tenant

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/local"
	"github.com/openshelf/openshelf/pubsub"
)

// ContextStore is the single source of truth for the current tenant. All
// mutation goes through it; readers see a consistent (context, permissions)
// pair.
type ContextStore struct {
	directory openshelf.TenantDirectory
	validator *Validator
	local     *local.Store
	bus       *pubsub.Bus
	log       *zap.Logger
	clock     clock.Clock
	userID    uuid.UUID

	mu          sync.RWMutex
	available   []openshelf.Membership
	current     *openshelf.TenantContext
	permissions openshelf.PermissionSet

	// generation linearizes overlapping switch requests: only the response
	// matching the latest generation may mutate state.
	generation uint64
}

var _ openshelf.Authorizer = (*ContextStore)(nil)

// Option configures a ContextStore.
type Option func(*ContextStore)

// WithClock swaps the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *ContextStore) { s.clock = c }
}

// NewContextStore creates a store for one user's session.
func NewContextStore(log *zap.Logger, directory openshelf.TenantDirectory, validator *Validator, store *local.Store, bus *pubsub.Bus, userID uuid.UUID, opts ...Option) *ContextStore {
	s := &ContextStore{
		directory: directory,
		validator: validator,
		local:     store,
		bus:       bus,
		log:       log,
		clock:     clock.New(),
		userID:    userID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshAvailableTenants fetches the user's active memberships and
// reconciles the current selection against them: a persisted selection is
// restored only if its tenant is still in the fresh list, a lone tenant is
// auto-selected, and anything else leaves the selection empty.
func (s *ContextStore) RefreshAvailableTenants(ctx context.Context) error {
	memberships, err := s.directory.ListMemberships(ctx, s.userID)
	if err != nil {
		return ErrDirectoryUnavailable(err)
	}

	active := make([]openshelf.Membership, 0, len(memberships))
	for _, m := range memberships {
		if m.IsActive() {
			active = append(active, m)
		}
	}

	s.mu.Lock()
	s.available = active

	var events []openshelf.Event

	if s.current != nil {
		// revocation since the last fetch invalidates the live selection too
		if m := findByTenantID(active, s.current.TenantID); m == nil {
			s.log.Info("current library no longer accessible, clearing selection",
				zap.String("tenant", s.current.TenantID.String()))
			s.current = nil
			s.permissions = nil
			s.local.RemoveTenantContext(s.userID)
			events = append(events, openshelf.TenantChangedEvent{Context: nil})
		} else if s.current.Role != m.Role ||
			s.current.TenantName != m.TenantName ||
			s.current.TenantCode != m.TenantCode ||
			!s.permissions.Equal(m.EffectivePermissions()) {
			// still accessible, but the membership itself changed; the fresh
			// record is authoritative, not the live context
			s.log.Info("membership changed, rebuilding the current context",
				zap.String("tenant", m.TenantID.String()),
				zap.String("role", string(m.Role)))
			s.setCurrentLocked(m)
			events = append(events, openshelf.TenantChangedEvent{Context: s.current})
		}
	} else if restored := s.local.LoadTenantContext(s.userID); restored != nil {
		if m := findByTenantID(active, restored.TenantID); m != nil {
			// rebuild from the fresh membership; the stored blob is a hint,
			// not an authority
			s.setCurrentLocked(m)
			events = append(events, openshelf.TenantChangedEvent{Context: s.current})
		} else {
			s.log.Info("stored library selection is no longer valid, purging it",
				zap.String("tenant", restored.TenantID.String()))
			s.local.RemoveTenantContext(s.userID)
		}
	}

	if s.current == nil && len(active) == 1 {
		s.setCurrentLocked(&active[0])
		events = append(events, openshelf.TenantChangedEvent{Context: s.current})
	}
	s.mu.Unlock()

	for _, e := range events {
		s.bus.Publish(e)
	}
	return nil
}

// SelectTenant makes the membership's tenant current and persists the choice.
// Selecting the already-current tenant changes nothing and emits nothing.
func (s *ContextStore) SelectTenant(ctx context.Context, m openshelf.Membership) error {
	if !m.IsActive() {
		return ErrTenantAccessDenied
	}

	s.mu.Lock()
	// an explicit selection supersedes any switch still in flight
	s.generation++
	if s.current != nil && s.current.TenantID == m.TenantID {
		s.mu.Unlock()
		return nil
	}
	s.setCurrentLocked(&m)
	current := s.current
	s.mu.Unlock()

	s.bus.Publish(openshelf.TenantChangedEvent{Context: current})
	return nil
}

// ClearSelection resets to "no tenant selected" and removes the persisted
// entry.
func (s *ContextStore) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.permissions = nil
	s.local.RemoveTenantContext(s.userID)
	s.mu.Unlock()

	s.bus.Publish(openshelf.TenantChangedEvent{Context: nil})
}

// SwitchTenant validates access against the remote authority and, if this
// request is still the newest one, makes the tenant current. A switch that is
// overtaken by a later switch has no effect on state: its result is discarded
// and the caller gets ErrSwitchSuperseded. On validation failure the current
// context is left untouched.
func (s *ContextStore) SwitchTenant(ctx context.Context, tenantID uuid.UUID) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	m, err := s.validator.Validate(ctx, s.userID, tenantID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding stale switch result",
			zap.String("tenant", tenantID.String()),
			zap.Uint64("generation", gen))
		return ErrSwitchSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if s.current != nil && s.current.TenantID == m.TenantID {
		s.mu.Unlock()
		return nil
	}
	s.setCurrentLocked(m)
	current := s.current
	s.mu.Unlock()

	s.bus.Publish(openshelf.TenantChangedEvent{Context: current})
	return nil
}

// Current returns a copy of the current tenant context, or nil.
func (s *ContextStore) Current() *openshelf.TenantContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	tc := *s.current
	return &tc
}

// Available returns the active memberships from the last fetch.
func (s *ContextStore) Available() []openshelf.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]openshelf.Membership, len(s.available))
	copy(out, s.available)
	return out
}

// PermissionSet implements openshelf.Authorizer for the current tenant.
func (s *ContextStore) PermissionSet() (openshelf.PermissionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoTenantSelected
	}
	return s.permissions, nil
}

// Has reports whether the current tenant's role holds the permission.
func (s *ContextStore) Has(p openshelf.Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.Has(p)
}

// HasAny reports whether at least one permission is held.
func (s *ContextStore) HasAny(ps ...openshelf.Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.HasAny(ps...)
}

// HasAll reports whether every permission is held.
func (s *ContextStore) HasAll(ps ...openshelf.Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions.HasAll(ps...)
}

// Require returns nil when the permission is held, ErrNoTenantSelected before
// any selection, and a permission-denied error naming the permission, role and
// tenant otherwise. Intended for the entry of tenant-scoped mutating
// operations.
func (s *ContextStore) Require(p openshelf.Permission) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ErrNoTenantSelected
	}
	if s.permissions.Has(p) {
		return nil
	}
	return openshelf.ErrPermissionDenied(p, s.current.Role, s.current.TenantID)
}

// setCurrentLocked installs m as the current tenant, resolves its permission
// set, and persists the selection. Callers hold s.mu.
func (s *ContextStore) setCurrentLocked(m *openshelf.Membership) {
	s.current = openshelf.NewTenantContext(m, s.clock.Now())
	s.permissions = m.EffectivePermissions()
	s.local.SaveTenantContext(s.userID, s.current)
	s.log.Info("library selected",
		zap.String("tenant", m.TenantID.String()),
		zap.String("role", string(m.Role)))
}

func findByTenantID(ms []openshelf.Membership, tenantID uuid.UUID) *openshelf.Membership {
	for i := range ms {
		if ms[i].TenantID == tenantID {
			return &ms[i]
		}
	}
	return nil
}
