package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/mock"
)

// The monitor goroutine registers its ticker with the mock clock shortly
// after NewService returns; give it a moment before advancing time.
func (f *serviceFixture) settle() {
	time.Sleep(10 * time.Millisecond)
}

func (f *serviceFixture) countEvents(typ openshelf.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type() == typ {
			n++
		}
	}
	return n
}

func TestMonitorTimesOutIdleSession(t *testing.T) {
	userID := uuid.New()
	provider := mock.NewIdentityProvider()

	f := newServiceFixture(t, provider)
	provider.GetSessionFn = func(context.Context) (*openshelf.Session, error) {
		return testSession(f.clock, userID), nil
	}

	require.NoError(t, f.svc.Initialize(context.Background()))
	f.settle()

	f.clock.Add(31 * time.Minute)

	require.Eventually(t, func() bool {
		return f.svc.State() == StateUnauthenticated
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return f.countEvents(openshelf.EventSessionTimeout) == 1 &&
			f.countEvents(openshelf.EventSessionEnded) == 1
	}, time.Second, time.Millisecond)

	// further ticks must not fire again
	f.clock.Add(31 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, f.countEvents(openshelf.EventSessionTimeout))
}

func TestMonitorTimeoutInvalidatesProviderSession(t *testing.T) {
	userID := uuid.New()
	provider := mock.NewIdentityProvider()

	logouts := make(chan struct{}, 1)
	provider.LogoutFn = func(context.Context) error {
		logouts <- struct{}{}
		return nil
	}

	f := newServiceFixture(t, provider)
	provider.GetSessionFn = func(context.Context) (*openshelf.Session, error) {
		return testSession(f.clock, userID), nil
	}

	require.NoError(t, f.svc.Initialize(context.Background()))
	f.settle()
	f.clock.Add(31 * time.Minute)

	select {
	case <-logouts:
	case <-time.After(time.Second):
		t.Fatal("expected a provider logout on timeout")
	}
}

func TestMonitorActivityDefersTimeout(t *testing.T) {
	userID := uuid.New()
	provider := mock.NewIdentityProvider()

	f := newServiceFixture(t, provider)
	provider.GetSessionFn = func(context.Context) (*openshelf.Session, error) {
		return testSession(f.clock, userID), nil
	}

	require.NoError(t, f.svc.Initialize(context.Background()))
	f.settle()

	f.clock.Add(20 * time.Minute)
	require.Equal(t, StateAuthenticated, f.svc.State())
	require.Equal(t, 20*time.Minute, f.svc.idleFor())

	f.svc.RecordActivity()
	require.Equal(t, time.Duration(0), f.svc.idleFor())

	// 20 more minutes is only 20 idle, not 40
	f.clock.Add(20 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateAuthenticated, f.svc.State())
	require.Zero(t, f.countEvents(openshelf.EventSessionTimeout))
}

func TestMonitorEndsExpiredSession(t *testing.T) {
	userID := uuid.New()
	provider := mock.NewIdentityProvider()

	f := newServiceFixture(t, provider)
	provider.GetSessionFn = func(context.Context) (*openshelf.Session, error) {
		now := f.clock.Now()
		return &openshelf.Session{
			ID:        uuid.New(),
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(5 * time.Minute),
		}, nil
	}

	require.NoError(t, f.svc.Initialize(context.Background()))
	f.local.SaveTenantContext(userID, &openshelf.TenantContext{TenantID: uuid.New()})
	f.settle()

	f.clock.Add(6 * time.Minute)

	require.Eventually(t, func() bool {
		return f.svc.State() == StateUnauthenticated
	}, time.Second, time.Millisecond)

	// expiry is an ended session, not an inactivity timeout
	require.Eventually(t, func() bool {
		return f.countEvents(openshelf.EventSessionEnded) == 1
	}, time.Second, time.Millisecond)
	require.Zero(t, f.countEvents(openshelf.EventSessionTimeout))
	require.Nil(t, f.local.LoadTenantContext(userID))
}

func TestMonitorStopsOnClose(t *testing.T) {
	userID := uuid.New()
	provider := mock.NewIdentityProvider()

	f := newServiceFixture(t, provider)
	provider.GetSessionFn = func(context.Context) (*openshelf.Session, error) {
		return testSession(f.clock, userID), nil
	}

	require.NoError(t, f.svc.Initialize(context.Background()))
	f.settle()
	f.svc.Close()

	f.clock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateAuthenticated, f.svc.State(), "a closed service must stop acting on the session")
	require.Empty(t, f.eventTypes())
}
