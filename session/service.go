// Package session owns the authenticated identity session: consuming the
// external provider's login state, single-flight refresh, inactivity timeout,
// and logout. It is the first component to initialize; everything tenant
// scoped waits for it.
package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/local"
	"github.com/openshelf/openshelf/pubsub"
)

// State is the lifecycle state of the session service.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
	StateErrored
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Service manages the identity session. All exported methods are safe for
// concurrent use.
type Service struct {
	provider openshelf.IdentityProvider
	local    *local.Store
	bus      *pubsub.Bus
	clock    clock.Clock
	log      *zap.Logger
	cfg      Config

	refreshGroup singleflight.Group

	mu      sync.RWMutex
	state   State
	session *openshelf.Session
	lastErr error

	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	unsubscribe func()
}

// NewService creates a session service and starts its inactivity monitor. The
// monitor only acts while a session is authenticated; Close stops it.
func NewService(log *zap.Logger, provider openshelf.IdentityProvider, store *local.Store, bus *pubsub.Bus, cfg Config) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		provider: provider,
		local:    store,
		bus:      bus,
		clock:    cfg.Clock,
		log:      log,
		cfg:      cfg,
		state:    StateUninitialized,
		done:     make(chan struct{}),
	}

	s.unsubscribe = provider.Subscribe(s.onProviderChange)

	s.wg.Add(1)
	go s.monitor()

	return s
}

// Initialize loads any existing session from the identity provider and blocks
// until the outcome is known. It leaves the service Authenticated,
// Unauthenticated, or Errored.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.lastErr = nil
	s.mu.Unlock()

	sess, err := s.provider.GetSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateErrored
		s.lastErr = err
		s.log.Error("session initialization failed", zap.Error(err))
		return err
	}
	if sess == nil {
		s.state = StateUnauthenticated
		s.session = nil
		s.log.Info("no existing session")
		return nil
	}

	sess.LastActivityAt = s.clock.Now()
	s.session = sess
	s.state = StateAuthenticated
	s.log.Info("session established",
		zap.String("user", sess.UserID.String()),
		zap.Time("expires", sess.ExpiresAt))
	return nil
}

// Retry re-runs initialization after a provider error. Provider errors are
// never retried automatically.
func (s *Service) Retry(ctx context.Context) error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateErrored {
		return &openshelf.Error{
			Code: openshelf.EConflict,
			Msg:  "retry is only valid after an initialization error",
		}
	}
	return s.Initialize(ctx)
}

// Refresh renews the session token. Concurrent calls while a refresh is in
// flight share the same outcome rather than issuing duplicate requests.
func (s *Service) Refresh(ctx context.Context) error {
	v, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		return s.provider.Refresh(ctx)
	})
	if err != nil {
		if openshelf.ErrorCode(err) == openshelf.EUnauthorized {
			// the provider no longer recognizes the session; it is over
			s.endSession("refresh rejected")
			return err
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warn("session refresh failed", zap.Error(err))
		return err
	}

	sess, _ := v.(*openshelf.Session)
	if sess == nil {
		// a conforming provider errors instead, but a nil session is still
		// the end of this one
		s.endSession("refresh returned no session")
		return &openshelf.Error{
			Code: openshelf.EUnauthorized,
			Msg:  "session refresh returned no session",
		}
	}

	s.mu.Lock()
	sess.LastActivityAt = s.clock.Now()
	s.session = sess
	s.state = StateAuthenticated
	s.lastErr = nil
	s.mu.Unlock()

	s.bus.Publish(openshelf.SessionRefreshedEvent{Session: *sess})
	return nil
}

// Logout clears the session, purges the persisted tenant selection, and
// notifies. The provider call is best effort.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.provider.Logout(ctx); err != nil {
		s.log.Warn("provider logout failed, clearing local session anyway", zap.Error(err))
	}
	s.endSession("logout")
	return nil
}

// RecordActivity marks the user as active now, deferring the inactivity
// timeout. No-op unless authenticated.
func (s *Service) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.session == nil {
		return
	}
	s.session.LastActivityAt = s.clock.Now()
}

// Preferences returns the stored preferences for the current user, or the
// defaults when no one is signed in.
func (s *Service) Preferences() openshelf.SessionPreferences {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()
	if sess == nil {
		return openshelf.DefaultPreferences()
	}
	return s.local.LoadPreferences(sess.UserID)
}

// UpdatePreferences persists the preferences for the current user and
// notifies. Persistence is best effort; the update is visible either way.
func (s *Service) UpdatePreferences(prefs openshelf.SessionPreferences) error {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()
	if sess == nil {
		return &openshelf.Error{
			Code: openshelf.EUnauthorized,
			Msg:  "no session to store preferences for",
		}
	}

	s.local.SavePreferences(sess.UserID, prefs)
	s.bus.Publish(openshelf.PreferencesChangedEvent{Preferences: prefs})
	return nil
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticated reports whether a live, unexpired session exists.
func (s *Service) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.session != nil && !s.session.Expired(s.clock.Now())
}

// CurrentSession returns a copy of the current session, or nil.
func (s *Service) CurrentSession() *openshelf.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// Err returns the most recent provider error, or nil.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Close stops the inactivity monitor and detaches from the provider. It does
// not end the provider-side session.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		close(s.done)
	})
	s.wg.Wait()
}

// endSession transitions to Unauthenticated, purges the persisted tenant
// selection, and publishes session-ended. Safe to call from any state.
func (s *Service) endSession(reason string) {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.state = StateUnauthenticated
	s.mu.Unlock()

	if sess == nil {
		return
	}

	s.local.RemoveTenantContext(sess.UserID)
	s.log.Info("session ended",
		zap.String("user", sess.UserID.String()),
		zap.String("reason", reason))
	s.bus.Publish(openshelf.SessionEndedEvent{UserID: sess.UserID})
}

// onProviderChange handles out-of-band provider notifications, for example a
// sign-out performed elsewhere.
func (s *Service) onProviderChange(sess *openshelf.Session) {
	if sess == nil {
		s.endSession("provider notification")
		return
	}

	s.mu.Lock()
	sess2 := *sess
	sess2.LastActivityAt = s.clock.Now()
	s.session = &sess2
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.bus.Publish(openshelf.SessionRefreshedEvent{Session: sess2})
}
