package openshelf

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a channel on the event bus.
type EventType string

const (
	EventSessionEnded       = EventType("session-ended")
	EventSessionRefreshed   = EventType("session-refreshed")
	EventTenantChanged      = EventType("tenant-changed")
	EventPreferencesChanged = EventType("preferences-changed")
	EventSessionTimeout     = EventType("session-timeout")
)

// Event is the closed set of notifications crossing component boundaries.
// The unexported method seals the set to the variants defined in this file.
type Event interface {
	Type() EventType
	event()
}

// SessionEndedEvent is published when a session is destroyed by logout,
// timeout, or an external end-of-session notification.
type SessionEndedEvent struct {
	UserID uuid.UUID
}

func (SessionEndedEvent) Type() EventType { return EventSessionEnded }
func (SessionEndedEvent) event()          {}

// SessionRefreshedEvent is published after a successful token renewal.
type SessionRefreshedEvent struct {
	Session Session
}

func (SessionRefreshedEvent) Type() EventType { return EventSessionRefreshed }
func (SessionRefreshedEvent) event()          {}

// TenantChangedEvent is published when the current tenant selection changes.
// Context is nil when the selection was cleared.
type TenantChangedEvent struct {
	Context *TenantContext
}

func (TenantChangedEvent) Type() EventType { return EventTenantChanged }
func (TenantChangedEvent) event()          {}

// PreferencesChangedEvent is published after preferences are updated.
type PreferencesChangedEvent struct {
	Preferences SessionPreferences
}

func (PreferencesChangedEvent) Type() EventType { return EventPreferencesChanged }
func (PreferencesChangedEvent) event()          {}

// SessionTimeoutEvent is published exactly once per inactivity breach.
type SessionTimeoutEvent struct {
	UserID  uuid.UUID
	IdleFor time.Duration
}

func (SessionTimeoutEvent) Type() EventType { return EventSessionTimeout }
func (SessionTimeoutEvent) event()          {}
