package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/models"
)

type fakeSource struct {
	snap  Snapshot
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeSource) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSource) ListBusinesses(ctx context.Context) ([]models.Business, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.snap.Businesses, nil
}

func (f *fakeSource) ListOrders(ctx context.Context) ([]models.Order, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.snap.Orders, f.err
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]models.Product, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.snap.Products, nil
}

func (f *fakeSource) ListDeliveryPersons(ctx context.Context) ([]models.DeliveryPerson, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.snap.DeliveryPersons, nil
}

func (f *fakeSource) ListClients(ctx context.Context) ([]models.Client, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.snap.Clients, nil
}

func order(status models.OrderStatus, dp *uuid.UUID) models.Order {
	return models.Order{ID: uuid.New(), ClientID: uuid.New(), BusinessID: uuid.New(),
		DeliveryPersonID: dp, Status: status, TotalPrice: 10, CreatedAt: time.Now()}
}

func TestMirrorLoadAndReset(t *testing.T) {
	src := &fakeSource{snap: Snapshot{
		Orders:     []models.Order{order(models.StatusPending, nil)},
		Businesses: []models.Business{{ID: uuid.New(), Name: "Tacos"}},
	}}
	m := NewMirror()
	assert.Equal(t, StateEmpty, m.State())

	require.NoError(t, m.Load(context.Background(), src))
	assert.Equal(t, int32(5), src.calls.Load())
	snap, state := m.Snapshot()
	assert.Equal(t, StateReady, state)
	assert.Len(t, snap.Orders, 1)
	assert.Len(t, snap.Businesses, 1)

	m.Reset()
	snap, state = m.Snapshot()
	assert.Equal(t, StateEmpty, state)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Businesses)
}

func TestMirrorLoadFailureKeepsPreviousData(t *testing.T) {
	src := &fakeSource{snap: Snapshot{Orders: []models.Order{order(models.StatusPending, nil)}}}
	m := NewMirror()
	require.NoError(t, m.Load(context.Background(), src))
	m.MarkStale()

	src.err = errors.New("backend down")
	src.snap.Orders = nil
	require.Error(t, m.Load(context.Background(), src))

	snap, state := m.Snapshot()
	assert.Equal(t, StateStale, state)
	assert.Len(t, snap.Orders, 1)
}

func TestMirrorReportsLoading(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	m := NewMirror()
	done := make(chan error)
	go func() { done <- m.Load(context.Background(), src) }()

	require.Eventually(t, func() bool { return m.State() == StateLoading }, time.Second, time.Millisecond)
	view := BuildClientView(Snapshot{}, m.State(), uuid.New())
	assert.True(t, view.Loading)

	close(src.gate)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, m.State())
}

func TestResetDuringLoadDiscardsResult(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{}), snap: Snapshot{Orders: []models.Order{order(models.StatusPending, nil)}}}
	m := NewMirror()
	done := make(chan error)
	go func() { done <- m.Load(context.Background(), src) }()

	require.Eventually(t, func() bool { return m.State() == StateLoading }, time.Second, time.Millisecond)
	m.Reset()
	close(src.gate)
	require.NoError(t, <-done)

	snap, state := m.Snapshot()
	assert.Equal(t, StateEmpty, state)
	assert.Empty(t, snap.Orders)
}

func TestApplyPatchesOnlyTheAffectedRecord(t *testing.T) {
	a, b := order(models.StatusPending, nil), order(models.StatusReady, nil)
	m := NewMirror()
	require.NoError(t, m.Load(context.Background(), &fakeSource{snap: Snapshot{Orders: []models.Order{a, b}}}))

	accepted := a
	accepted.Status = models.StatusAccepted
	m.Apply(OrderChanged(accepted))

	snap, _ := m.Snapshot()
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, models.StatusAccepted, snap.Orders[0].Status)
	assert.Equal(t, b, snap.Orders[1])

	c := order(models.StatusPending, nil)
	m.Apply(OrderChanged(c))
	m.Apply(Removed(dbhelper.Orders, b.ID))
	snap, _ = m.Snapshot()
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, c.ID, snap.Orders[1].ID)
}

func TestApplyIgnoredOnEmptyMirror(t *testing.T) {
	m := NewMirror()
	m.Apply(OrderChanged(order(models.StatusPending, nil)))
	snap, state := m.Snapshot()
	assert.Equal(t, StateEmpty, state)
	assert.Empty(t, snap.Orders)
}

func TestSessionsApplyInvalidatesOthers(t *testing.T) {
	o := order(models.StatusReady, nil)
	src := &fakeSource{snap: Snapshot{Orders: []models.Order{o}}}
	s := NewSessions(src)
	actor, other := uuid.New(), uuid.New()

	ctx := context.Background()
	ma, err := s.Ensure(ctx, actor)
	require.NoError(t, err)
	mo, err := s.Ensure(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	dp := uuid.New()
	claimed := o
	claimed.DeliveryPersonID = &dp
	claimed.Status = models.StatusDelivering
	s.Apply(actor, OrderChanged(claimed))

	assert.Equal(t, StateReady, ma.State())
	assert.Equal(t, StateStale, mo.State())

	src.snap.Orders = []models.Order{claimed}
	mo, err = s.Ensure(ctx, other)
	require.NoError(t, err)
	snap, state := mo.Snapshot()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, models.StatusDelivering, snap.Orders[0].Status)
}

func TestSessionsStartAndEnd(t *testing.T) {
	src := &fakeSource{snap: Snapshot{Clients: []models.Client{{ID: uuid.New()}}}}
	s := NewSessions(src)
	user := uuid.New()

	m := s.Start(user)
	require.Eventually(t, func() bool { return m.State() == StateReady }, time.Second, time.Millisecond)

	s.End(user)
	assert.Equal(t, StateEmpty, m.State())
	assert.Equal(t, 0, s.Len())
}

func TestEnsureWaitsForLoginLoad(t *testing.T) {
	ready := order(models.StatusReady, nil)
	src := &fakeSource{gate: make(chan struct{}), snap: Snapshot{Orders: []models.Order{ready}}}
	s := NewSessions(src)
	user := uuid.New()

	m := s.Start(user)
	require.Eventually(t, func() bool { return m.State() == StateLoading }, time.Second, time.Millisecond)

	got := make(chan *Mirror)
	go func() {
		m, err := s.Ensure(context.Background(), user)
		assert.NoError(t, err)
		got <- m
	}()
	select {
	case <-got:
		t.Fatal("Ensure returned while the login load was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(src.gate)
	select {
	case m := <-got:
		snap, state := m.Snapshot()
		assert.Equal(t, StateReady, state)
		assert.Equal(t, []models.Order{ready}, AvailableOrders(snap.Orders))
	case <-time.After(time.Second):
		t.Fatal("Ensure did not return after the load finished")
	}
	assert.Equal(t, int32(5), src.calls.Load())
}

func TestEnsureGivesUpWithContext(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	s := NewSessions(src)
	user := uuid.New()
	m := s.Start(user)
	require.Eventually(t, func() bool { return m.State() == StateLoading }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Ensure(ctx, user)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(src.gate)
}

func TestSweepEndsIdleSessions(t *testing.T) {
	s := NewSessions(&fakeSource{})
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	idle, active := uuid.New(), uuid.New()

	ctx := context.Background()
	stale, err := s.Ensure(ctx, idle)
	require.NoError(t, err)
	clock = clock.Add(2 * time.Hour)
	fresh, err := s.Ensure(ctx, active)
	require.NoError(t, err)

	clock = clock.Add(30 * time.Minute)
	assert.Equal(t, 1, s.Sweep(time.Hour))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, StateEmpty, stale.State())
	assert.Equal(t, StateReady, fresh.State())

	_, err = s.Ensure(ctx, active)
	require.NoError(t, err)
	clock = clock.Add(45 * time.Minute)
	assert.Zero(t, s.Sweep(time.Hour))
	assert.Equal(t, 1, s.Len())
}

func TestAvailableOrders(t *testing.T) {
	dp := uuid.New()
	ready := order(models.StatusReady, nil)
	claimed := order(models.StatusReady, &dp)
	orders := []models.Order{
		order(models.StatusPending, nil),
		ready,
		claimed,
		order(models.StatusDelivering, &dp),
		order(models.StatusDelivered, &dp),
	}

	got := AvailableOrders(orders)
	require.Len(t, got, 1)
	assert.Equal(t, ready.ID, got[0].ID)
}

func TestDeliveryView(t *testing.T) {
	now := time.Now()
	dp := models.DeliveryPerson{ID: uuid.New(), Name: "Rider", IsOnline: true, TotalDeliveries: 7, Earnings: 30}
	mine := dp.ID

	delivered := order(models.StatusDelivered, &mine)
	delivered.TotalPrice = 40
	active := order(models.StatusDelivering, &mine)
	old := order(models.StatusDelivered, &mine)
	old.CreatedAt = now.AddDate(0, 0, -2)
	ready := order(models.StatusReady, nil)

	snap := Snapshot{DeliveryPersons: []models.DeliveryPerson{dp}, Orders: []models.Order{delivered, active, old, ready}}
	v := BuildDeliveryView(snap, StateReady, dp.ID, now)

	assert.False(t, v.Loading)
	assert.True(t, v.IsOnline)
	assert.Equal(t, 7, v.TotalDeliveries)
	assert.Equal(t, 6.0, v.TodayEarnings)
	assert.Equal(t, 2, v.TodayDeliveries)
	require.Len(t, v.Active, 1)
	assert.Equal(t, active.ID, v.Active[0].ID)
	assert.Equal(t, "Rider", v.Active[0].DeliveryPersonName)
	require.Len(t, v.Available, 1)
	assert.Equal(t, ready.ID, v.Available[0].ID)
}

func TestClientViewSkipsMissingBusiness(t *testing.T) {
	client := uuid.New()
	b := models.Business{ID: uuid.New(), Name: "Pizza", IsActive: true}
	own := order(models.StatusPending, nil)
	own.ClientID = client
	own.BusinessID = b.ID
	orphan := order(models.StatusDelivered, nil)
	orphan.ClientID = client

	v := BuildClientView(Snapshot{
		Businesses: []models.Business{b, {ID: uuid.New(), Name: "Closed for good"}},
		Orders:     []models.Order{own, orphan, order(models.StatusPending, nil)},
	}, StateReady, client)

	require.Len(t, v.Businesses, 1)
	require.Len(t, v.Orders, 2)
	assert.Equal(t, 1, v.ActiveOrders)
	names := map[uuid.UUID]string{}
	for _, o := range v.Orders {
		names[o.ID] = o.BusinessName
	}
	assert.Equal(t, "Pizza", names[own.ID])
	assert.Equal(t, "", names[orphan.ID])
}

func TestAdminViewAndFilter(t *testing.T) {
	now := time.Now()
	b := models.Business{ID: uuid.New(), Name: "Sushi Go", IsActive: true, IsOpen: true, Location: &models.Point{Lat: 19.4, Lng: -99.1}}
	c := models.Client{ID: uuid.New(), Name: "Ana"}
	o1 := order(models.StatusDelivered, nil)
	o1.BusinessID, o1.ClientID, o1.TotalPrice = b.ID, c.ID, 25.5
	o2 := order(models.StatusPreparing, nil)
	o2.BusinessID = b.ID

	v := BuildAdminView(Snapshot{
		Businesses:      []models.Business{b},
		Clients:         []models.Client{c},
		Orders:          []models.Order{o1, o2},
		DeliveryPersons: []models.DeliveryPerson{{ID: uuid.New(), IsOnline: true}, {ID: uuid.New()}},
	}, StateReady, now)

	assert.Equal(t, 2, v.Stats.TotalOrders)
	assert.Equal(t, 1, v.Stats.ActiveOrders)
	assert.Equal(t, 1, v.Stats.DeliveredOrders)
	assert.Equal(t, 25.5, v.Stats.Revenue)
	assert.Equal(t, 1, v.Stats.OpenBusinesses)
	assert.Equal(t, 1, v.Stats.OnlineDeliveryPersons)

	assert.Len(t, FilterOrders(v.Orders, models.StatusPreparing, ""), 1)
	assert.Len(t, FilterOrders(v.Orders, "", "ana"), 1)
	assert.Len(t, FilterOrders(v.Orders, "", "SUSHI"), 2)

	points := MapPoints(Snapshot{Businesses: []models.Business{b}, Orders: []models.Order{o1, o2, order(models.StatusPending, nil)}}, now)
	assert.Len(t, points, 2)
}
