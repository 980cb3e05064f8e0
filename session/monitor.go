package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/openshelf"
)

// monitor periodically checks the session for inactivity and token expiry.
// It runs until Close and acts only while a session is authenticated, so a
// breach can fire at most once before re-authentication.
func (s *Service) monitor() {
	defer s.wg.Done()

	ticker := s.clock.Ticker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *Service) check() {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.session == nil {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	sess := s.session

	if sess.Expired(now) {
		s.session = nil
		s.state = StateUnauthenticated
		s.mu.Unlock()

		s.local.RemoveTenantContext(sess.UserID)
		s.log.Info("session token expired", zap.String("user", sess.UserID.String()))
		s.bus.Publish(openshelf.SessionEndedEvent{UserID: sess.UserID})
		return
	}

	idle := now.Sub(sess.LastActivityAt)
	if idle < s.cfg.InactivityThreshold {
		s.mu.Unlock()
		return
	}

	s.session = nil
	s.state = StateUnauthenticated
	s.mu.Unlock()

	// provider-side invalidation is best effort; the local session is gone
	// regardless
	if err := s.provider.Logout(context.Background()); err != nil {
		s.log.Warn("provider logout on timeout failed", zap.Error(err))
	}

	s.local.RemoveTenantContext(sess.UserID)
	s.log.Info("session timed out",
		zap.String("user", sess.UserID.String()),
		zap.Duration("idle", idle))
	s.bus.Publish(openshelf.SessionTimeoutEvent{UserID: sess.UserID, IdleFor: idle})
	s.bus.Publish(openshelf.SessionEndedEvent{UserID: sess.UserID})
}

// idleFor reports how long the current session has been idle, for diagnostics.
func (s *Service) idleFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return 0
	}
	return s.clock.Now().Sub(s.session.LastActivityAt)
}
