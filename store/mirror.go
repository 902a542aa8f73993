package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ray-remotestate/delivery/models"
)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateStale
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	default:
		return "empty"
	}
}

// Source fetches every record of each collection. dbhelper.Gateway satisfies it.
type Source interface {
	ListBusinesses(ctx context.Context) ([]models.Business, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListDeliveryPersons(ctx context.Context) ([]models.DeliveryPerson, error)
	ListClients(ctx context.Context) ([]models.Client, error)
}

type Snapshot struct {
	Businesses      []models.Business
	Orders          []models.Order
	Products        []models.Product
	DeliveryPersons []models.DeliveryPerson
	Clients         []models.Client
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Businesses:      append([]models.Business(nil), s.Businesses...),
		Orders:          append([]models.Order(nil), s.Orders...),
		Products:        append([]models.Product(nil), s.Products...),
		DeliveryPersons: append([]models.DeliveryPerson(nil), s.DeliveryPersons...),
		Clients:         append([]models.Client(nil), s.Clients...),
	}
}

// Mirror is one session's in-memory copy of the five collections.
type Mirror struct {
	mu       sync.RWMutex
	state    State
	data     Snapshot
	gen      uint64
	dirty    bool
	loadedAt time.Time
	// loading is closed when the load in flight finishes.
	loading chan struct{}
}

func NewMirror() *Mirror {
	return &Mirror{}
}

// Load fetches all collections in parallel and swaps them in at once. On
// failure the previous contents and state are kept. A Reset while the load is
// in flight discards its result. Only one load runs at a time; a second
// caller waits for the first to finish.
func (m *Mirror) Load(ctx context.Context, src Source) error {
	m.mu.Lock()
	if inflight := m.loading; inflight != nil {
		m.mu.Unlock()
		select {
		case <-inflight:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	prev := m.state
	m.state = StateLoading
	m.dirty = false
	gen := m.gen
	done := make(chan struct{})
	m.loading = done
	m.mu.Unlock()

	var next Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		next.Businesses, err = src.ListBusinesses(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Orders, err = src.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Products, err = src.ListProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.DeliveryPersons, err = src.ListDeliveryPersons(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Clients, err = src.ListClients(gctx)
		return err
	})
	err := g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(done)
	if m.loading == done {
		m.loading = nil
	}
	if m.gen != gen {
		return nil
	}
	if err != nil {
		m.state = prev
		if m.dirty && prev == StateReady {
			m.state = StateStale
		}
		return err
	}
	m.data = next
	m.loadedAt = time.Now()
	m.state = StateReady
	if m.dirty {
		m.state = StateStale
	}
	return nil
}

// Reset empties every collection immediately.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.data = Snapshot{}
	m.state = StateEmpty
	m.dirty = false
	m.loading = nil
}

// Wait blocks until no load is in flight.
func (m *Mirror) Wait(ctx context.Context) error {
	for {
		m.mu.RLock()
		inflight := m.loading
		m.mu.RUnlock()
		if inflight == nil {
			return nil
		}
		select {
		case <-inflight:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Mirror) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Mirror) LoadedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadedAt
}

// Snapshot returns a copy of the collections along with the mirror state.
func (m *Mirror) Snapshot() (Snapshot, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.clone(), m.state
}

func (m *Mirror) MarkStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady:
		m.state = StateStale
	case StateLoading:
		m.dirty = true
	}
}

// Apply patches the record a change refers to and leaves the rest untouched.
func (m *Mirror) Apply(ch Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateEmpty:
		return
	case StateLoading:
		m.dirty = true
		return
	}
	ch.patch(&m.data)
}

type record interface {
	GetID() uuid.UUID
}

func upsert[T record](items []T, rec T) []T {
	for i := range items {
		if items[i].GetID() == rec.GetID() {
			out := append([]T(nil), items...)
			out[i] = rec
			return out
		}
	}
	return append(append([]T(nil), items...), rec)
}

func without[T record](items []T, id uuid.UUID) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.GetID() != id {
			out = append(out, it)
		}
	}
	return out
}
