package tenant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/inmem"
	"github.com/openshelf/openshelf/local"
	"github.com/openshelf/openshelf/mock"
	"github.com/openshelf/openshelf/pubsub"
)

type storeFixture struct {
	store     *ContextStore
	local     *local.Store
	bus       *pubsub.Bus
	userID    uuid.UUID
	clock     *clock.Mock
	directory openshelf.TenantDirectory

	mu     sync.Mutex
	events []openshelf.Event
}

func newFixture(t *testing.T, userID uuid.UUID, directory openshelf.TenantDirectory) *storeFixture {
	t.Helper()

	f := &storeFixture{
		bus:       pubsub.NewBus(),
		userID:    userID,
		clock:     clock.NewMock(),
		directory: directory,
	}
	t.Cleanup(f.bus.Close)

	f.bus.Subscribe(openshelf.EventTenantChanged, func(e openshelf.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
	})

	log := zaptest.NewLogger(t)
	f.local = local.NewStore(log, inmem.NewKVStore())
	f.store = NewContextStore(log, directory, NewValidator(directory), f.local, f.bus, f.userID, WithClock(f.clock))
	return f
}

func (f *storeFixture) tenantChanges() []openshelf.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]openshelf.Event, len(f.events))
	copy(out, f.events)
	return out
}

func membership(userID uuid.UUID, name string, role openshelf.Role, status openshelf.MembershipStatus) openshelf.Membership {
	return openshelf.Membership{
		ID:         uuid.New(),
		UserID:     userID,
		TenantID:   uuid.New(),
		TenantName: name,
		TenantCode: name[:3],
		Role:       role,
		Status:     status,
		JoinedAt:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestRefreshMultiTenantFreshLogin(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)
	pending := membership(userID, "Eastside Library", openshelf.RoleManager, openshelf.MembershipPending)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2, pending))

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	require.Len(t, f.store.Available(), 2, "only active memberships are selectable")
	require.Nil(t, f.store.Current(), "two choices means no auto-selection")
	require.Empty(t, f.tenantChanges())
}

func TestRefreshSingleTenantAutoSelects(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleManager, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1))

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, t1.TenantID, current.TenantID)
	require.Equal(t, openshelf.RoleManager, current.Role)

	// selection is persisted
	require.NotNil(t, f.local.LoadTenantContext(userID))

	// permissions are the manager defaults
	pset, err := f.store.PermissionSet()
	require.NoError(t, err)
	require.Equal(t, openshelf.RoleDefaults(openshelf.RoleManager).List(), pset.List())

	require.Len(t, f.tenantChanges(), 1)
}

func TestRefreshRestoresPersistedSelection(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	// a previous run selected t2
	f.local.SaveTenantContext(userID, openshelf.NewTenantContext(&t2, time.Now()))

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, t2.TenantID, current.TenantID)
	require.Equal(t, openshelf.RoleOwner, current.Role)
}

func TestRefreshPurgesRevokedSelection(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)

	// the persisted selection points at t2; by now t2's membership is gone
	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))
	f.local.SaveTenantContext(userID, openshelf.NewTenantContext(&t2, time.Now()))

	dir := f.directory.(*inmem.TenantDirectory)
	dir.SetStatus(userID, t2.TenantID, openshelf.MembershipInactive)

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	require.Nil(t, f.store.Current(), "revoked selection must not be restored")
	require.Nil(t, f.local.LoadTenantContext(userID), "revoked selection must be purged from storage")
}

func TestRefreshClearsCurrentWhenRevoked(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)
	t3 := membership(userID, "Eastside Library", openshelf.RoleManager, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2, t3))

	require.NoError(t, f.store.SelectTenant(context.Background(), t2))

	dir := f.directory.(*inmem.TenantDirectory)
	dir.SetStatus(userID, t2.TenantID, openshelf.MembershipInactive)

	// two libraries remain, so nothing is auto-selected in its place
	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))
	require.Nil(t, f.store.Current(), "live selection must drop when access is revoked")

	changes := f.tenantChanges()
	last := changes[len(changes)-1].(openshelf.TenantChangedEvent)
	require.Nil(t, last.Context)
}

func TestRefreshClearedSelectionFallsBackToLoneTenant(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	require.NoError(t, f.store.SelectTenant(context.Background(), t2))

	dir := f.directory.(*inmem.TenantDirectory)
	dir.SetStatus(userID, t2.TenantID, openshelf.MembershipInactive)

	// t1 is the only library left, so the cleared selection lands on it
	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, t1.TenantID, current.TenantID)

	changes := f.tenantChanges()
	require.Nil(t, changes[len(changes)-2].(openshelf.TenantChangedEvent).Context, "the revocation is observable before the fallback")
	require.Equal(t, t1.TenantID, changes[len(changes)-1].(openshelf.TenantChangedEvent).Context.TenantID)
}

func TestRefreshRebuildsDemotedMembership(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleOwner, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleLibrarian, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))
	require.True(t, f.store.Has(openshelf.ManageTenant))

	dir := f.directory.(*inmem.TenantDirectory)
	dir.SetRole(userID, t1.TenantID, openshelf.RoleLibrarian)

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, openshelf.RoleLibrarian, current.Role)
	require.False(t, f.store.Has(openshelf.ManageTenant), "demotion must revoke owner capabilities")

	changes := f.tenantChanges()
	last := changes[len(changes)-1].(openshelf.TenantChangedEvent)
	require.Equal(t, openshelf.RoleLibrarian, last.Context.Role)

	// a refresh with nothing changed emits nothing further
	n := len(changes)
	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))
	require.Len(t, f.tenantChanges(), n)
}

func TestRefreshAppliesNewDenialToCurrent(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleManager, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleLibrarian, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))
	require.True(t, f.store.Has(openshelf.DeleteMembers))

	dir := f.directory.(*inmem.TenantDirectory)
	dir.SetDenials(userID, t1.TenantID, openshelf.DeleteMembers)

	require.NoError(t, f.store.RefreshAvailableTenants(context.Background()))

	require.False(t, f.store.Has(openshelf.DeleteMembers), "a denial added upstream must take effect on refresh")
	require.Equal(t, openshelf.RoleManager, f.store.Current().Role)
}

func TestRefreshDirectoryFailure(t *testing.T) {
	directory := mock.NewTenantDirectory()
	directory.ListMembershipsFn = func(context.Context, uuid.UUID) ([]openshelf.Membership, error) {
		return nil, &openshelf.Error{Code: openshelf.EInternal, Msg: "boom"}
	}

	f := newFixture(t, uuid.New(), directory)
	err := f.store.RefreshAvailableTenants(context.Background())
	require.Error(t, err)
	require.Equal(t, openshelf.EUnavailable, openshelf.ErrorCode(err))
}

func TestSelectTenantIdempotent(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleManager, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))
	first := f.store.Current()

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))
	second := f.store.Current()

	require.Equal(t, first, second, "re-selecting must not produce an observable change")
	require.Len(t, f.tenantChanges(), 1, "re-selecting must not emit a second event")
}

func TestSelectInactiveMembershipRejected(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleManager, openshelf.MembershipInactive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1))
	err := f.store.SelectTenant(context.Background(), t1)
	require.ErrorIs(t, err, ErrTenantAccessDenied)
	require.Nil(t, f.store.Current())
}

func TestClearSelection(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleManager, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))
	f.store.ClearSelection(context.Background())

	require.Nil(t, f.store.Current())
	require.Nil(t, f.local.LoadTenantContext(userID))

	changes := f.tenantChanges()
	require.Len(t, changes, 2)
	require.Nil(t, changes[1].(openshelf.TenantChangedEvent).Context)

	// clearing again changes nothing
	f.store.ClearSelection(context.Background())
	require.Len(t, f.tenantChanges(), 2)
}

func TestSwitchTenant(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	require.NoError(t, f.store.SwitchTenant(context.Background(), t2.TenantID))

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, t2.TenantID, current.TenantID)
	require.Equal(t, openshelf.RoleOwner, current.Role)
}

func TestSwitchToRevokedTenantLeavesContext(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t2 := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipInactive)

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1, t2))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))

	err := f.store.SwitchTenant(context.Background(), t2.TenantID)
	require.ErrorIs(t, err, ErrTenantAccessDenied)

	current := f.store.Current()
	require.NotNil(t, current, "failed switch must not clear the selection")
	require.Equal(t, t1.TenantID, current.TenantID)
}

func TestSwitchRaceLatestWins(t *testing.T) {
	userID := uuid.New()
	tenantA := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	tenantB := membership(userID, "Harbor Library", openshelf.RoleOwner, openshelf.MembershipActive)

	entered := make(chan struct{})
	release := make(chan struct{})

	directory := mock.NewTenantDirectory()
	directory.GetMembershipFn = func(_ context.Context, _ uuid.UUID, tenantID uuid.UUID) (*openshelf.Membership, error) {
		if tenantID == tenantA.TenantID {
			close(entered)
			<-release
			m := tenantA
			return &m, nil
		}
		m := tenantB
		return &m, nil
	}

	f := newFixture(t, userID, directory)

	errA := make(chan error, 1)
	go func() {
		errA <- f.store.SwitchTenant(context.Background(), tenantA.TenantID)
	}()

	// wait for A's validation to be in flight, then overtake it with B
	<-entered
	require.NoError(t, f.store.SwitchTenant(context.Background(), tenantB.TenantID))

	// A's validation finally comes back; its result must be discarded
	close(release)
	require.ErrorIs(t, <-errA, ErrSwitchSuperseded)

	current := f.store.Current()
	require.NotNil(t, current)
	require.Equal(t, tenantB.TenantID, current.TenantID, "the newest switch decides the final state")
	require.Equal(t, openshelf.RoleOwner, current.Role)
}

func TestPermissionQueries(t *testing.T) {
	userID := uuid.New()
	t1 := membership(userID, "Central Library", openshelf.RoleLibrarian, openshelf.MembershipActive)
	t1.CustomDenials = []openshelf.Permission{openshelf.WriteLoans}

	f := newFixture(t, userID, inmem.NewTenantDirectory(t1))

	// before any selection
	_, err := f.store.PermissionSet()
	require.ErrorIs(t, err, ErrNoTenantSelected)
	require.ErrorIs(t, f.store.Require(openshelf.ReadBooks), ErrNoTenantSelected)
	require.False(t, f.store.Has(openshelf.ReadBooks))

	require.NoError(t, f.store.SelectTenant(context.Background(), t1))

	require.True(t, f.store.Has(openshelf.ReadBooks))
	require.False(t, f.store.Has(openshelf.WriteLoans), "denial must mask the role default")
	require.True(t, f.store.HasAny(openshelf.ManageStaff, openshelf.ReadBooks))
	require.False(t, f.store.HasAll(openshelf.ReadBooks, openshelf.ManageStaff))

	require.NoError(t, f.store.Require(openshelf.ReadBooks))

	err = f.store.Require(openshelf.ManageStaff)
	require.Error(t, err)
	require.Equal(t, openshelf.EForbidden, openshelf.ErrorCode(err))
	require.Contains(t, err.Error(), "manage:staff")
	require.Contains(t, err.Error(), "librarian")
}
