package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/delivery/cart"
	"github.com/ray-remotestate/delivery/config"
	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/geo"
	"github.com/ray-remotestate/delivery/handlers"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

var errUnsupported = errors.New("not supported in this test")

// memory serves the mirror loads and order reads the routes below touch.
type memory struct {
	businesses []models.Business
	products   []models.Product
	orders     []models.Order
	logs       []models.StatusLog
}

func (m *memory) ListBusinesses(context.Context) ([]models.Business, error) { return m.businesses, nil }
func (m *memory) ListOrders(context.Context) ([]models.Order, error) { return m.orders, nil }
func (m *memory) ListProducts(context.Context) ([]models.Product, error) { return m.products, nil }
func (m *memory) ListClients(context.Context) ([]models.Client, error) { return nil, nil }
func (m *memory) ListDeliveryPersons(context.Context) ([]models.DeliveryPerson, error) {
	return nil, nil
}

func (m *memory) GetOrder(_ context.Context, id uuid.UUID) (models.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, fmt.Errorf("orders: %w", dbhelper.ErrNotFound)
}

func (m *memory) StatusHistory(_ context.Context, orderID uuid.UUID) ([]models.StatusLog, error) {
	var out []models.StatusLog
	for _, l := range m.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memory) GetBusiness(context.Context, uuid.UUID) (models.Business, error) {
	return models.Business{}, errUnsupported
}

func (m *memory) GetDeliveryPerson(context.Context, uuid.UUID) (models.DeliveryPerson, error) {
	return models.DeliveryPerson{}, errUnsupported
}

func (m *memory) ProductsByIDs(context.Context, []uuid.UUID) ([]models.Product, error) {
	return nil, errUnsupported
}

func (m *memory) InsertOrder(context.Context, models.Order) (models.Order, error) {
	return models.Order{}, errUnsupported
}

func (m *memory) EditOrder(context.Context, uuid.UUID, uuid.UUID, func(models.Order) (dbhelper.Fields, error)) (models.Order, models.OrderStatus, error) {
	return models.Order{}, "", errUnsupported
}

func (m *memory) ClaimOrder(context.Context, uuid.UUID, uuid.UUID) (models.Order, error) {
	return models.Order{}, errUnsupported
}

func (m *memory) TransitionOrder(context.Context, uuid.UUID, models.OrderStatus, uuid.UUID, func(models.Order) error) (models.Order, models.OrderStatus, error) {
	return models.Order{}, "", errUnsupported
}

func (m *memory) CompleteDelivery(context.Context, uuid.UUID, uuid.UUID, func(models.Order) error) (models.Order, models.DeliveryPerson, error) {
	return models.Order{}, models.DeliveryPerson{}, errUnsupported
}

type fixture struct {
	router   http.Handler
	mem      *memory
	client   uuid.UUID
	pizza    models.Business
	sushi    models.Business
	margarit models.Product
	nigiri   models.Product
	order    models.Order
}

func newFixture(t *testing.T, geocoderURL string) *fixture {
	t.Helper()
	config.SecretKey = []byte("test-secret")

	f := &fixture{client: uuid.New()}
	f.pizza = models.Business{ID: uuid.New(), Name: "Pizzeria", IsActive: true, IsOpen: true,
		Location: &models.Point{Lat: 19.4326, Lng: -99.1332}}
	f.sushi = models.Business{ID: uuid.New(), Name: "Sushi Go", IsActive: true, IsOpen: true}
	f.margarit = models.Product{ID: uuid.New(), BusinessID: f.pizza.ID, Name: "Margarita", Price: 8.5}
	f.nigiri = models.Product{ID: uuid.New(), BusinessID: f.sushi.ID, Name: "Nigiri", Price: 4}
	f.order = models.Order{ID: uuid.New(), ClientID: f.client, BusinessID: f.pizza.ID,
		Status: models.StatusAccepted, TotalPrice: 20, CreatedAt: time.Now()}
	f.mem = &memory{
		businesses: []models.Business{f.pizza, f.sushi},
		products:   []models.Product{f.margarit, f.nigiri},
		orders:     []models.Order{f.order},
		logs: []models.StatusLog{{ID: 1, OrderID: f.order.ID, FromStatus: models.StatusPending,
			ToStatus: models.StatusAccepted, ChangedBy: f.pizza.ID}},
	}

	sessions := store.NewSessions(f.mem)
	carts := cart.New(cart.NewMemoryStorage())
	h := handlers.New(handlers.Deps{
		Orders:   services.NewOrderService(f.mem, sessions, carts, events.Nop{}),
		Sessions: sessions,
		Carts:    carts,
		Geocoder: geo.NewGeocoder(geocoderURL),
		Hub:      events.NewHub(),
	})
	f.router = SetupRoutes(h).Router
	return f
}

func (f *fixture) do(t *testing.T, method, path string, id uuid.UUID, role models.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if id != uuid.Nil {
		access, _, err := utils.GenerateTokens(id, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+access)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:0")
	rr := f.do(t, http.MethodGet, "/health", uuid.Nil, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"alive": true}`, rr.Body.String())
}

func TestRoleRouting(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:0")

	rr := f.do(t, http.MethodGet, "/api/cliente/dashboard", uuid.Nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/admin/dashboard", f.client, models.RoleClient, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "/cliente", rr.Header().Get("X-Role-Home"))

	rr = f.do(t, http.MethodGet, "/api/cliente/dashboard", f.client, models.RoleClient, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view store.ClientView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Len(t, view.Businesses, 2)
	require.Len(t, view.Orders, 1)
	assert.Equal(t, "Pizzeria", view.Orders[0].BusinessName)
	assert.Equal(t, 1, view.ActiveOrders)
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:0")
	type cartBody struct {
		Items    []models.CartItem `json:"items"`
		Count    int               `json:"count"`
		Subtotal float64           `json:"subtotal"`
	}
	decode := func(rr *httptest.ResponseRecorder) cartBody {
		var c cartBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
		return c
	}

	rr := f.do(t, http.MethodPost, "/api/cliente/cart/items", f.client, models.RoleClient,
		fmt.Sprintf(`{"product_id":%q,"quantity":2}`, f.margarit.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	c := decode(rr)
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, 17.0, c.Subtotal)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Pizzeria", c.Items[0].BusinessName)

	rr = f.do(t, http.MethodPost, "/api/cliente/cart/items", f.client, models.RoleClient,
		fmt.Sprintf(`{"product_id":%q,"quantity":1}`, f.nigiri.ID))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/cliente/cart/items", f.client, models.RoleClient,
		fmt.Sprintf(`{"product_id":%q}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPatch, "/api/cliente/cart/items/"+f.margarit.ID.String(), f.client, models.RoleClient, `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode(rr).Count)

	rr = f.do(t, http.MethodPost, "/api/cliente/checkout", f.client, models.RoleClient, `{"address":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/cliente/cart", f.client, models.RoleClient, "")
	assert.Equal(t, 1, decode(rr).Count, "a rejected checkout leaves the cart alone")

	rr = f.do(t, http.MethodPatch, "/api/cliente/cart/items/"+f.margarit.ID.String(), f.client, models.RoleClient, `{"delta":-1}`)
	c = decode(rr)
	assert.Equal(t, 0, c.Count)
	assert.Empty(t, c.Items)
}

func TestBusinessDistance(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:0")

	rr := f.do(t, http.MethodGet, "/api/cliente/businesses/"+f.pizza.ID.String()+"/distance?lat=19.4326&lng=-99.1332", f.client, models.RoleClient, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"distance_km":0`)

	rr = f.do(t, http.MethodGet, "/api/cliente/businesses/"+f.sushi.ID.String()+"/distance?lat=1&lng=1", f.client, models.RoleClient, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/cliente/businesses/"+f.pizza.ID.String()+"/distance?lat=abc&lng=1", f.client, models.RoleClient, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTracking(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:0")
	path := "/api/seguimiento/" + f.order.ID.String()

	rr := f.do(t, http.MethodGet, path, f.client, models.RoleClient, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Order   models.Order       `json:"order"`
		History []models.StatusLog `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, models.StatusAccepted, body.Order.Status)
	require.Len(t, body.History, 1)
	assert.Equal(t, models.StatusPending, body.History[0].FromStatus)

	rr = f.do(t, http.MethodGet, path, uuid.New(), models.RoleClient, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, http.MethodGet, path, uuid.New(), models.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, path, f.pizza.ID, models.RoleBusiness, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "/negocio", rr.Header().Get("X-Role-Home"))

	rr = f.do(t, http.MethodGet, "/api/seguimiento/"+uuid.NewString(), f.client, models.RoleClient, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReverseGeocodeFallsBackToCoordinates(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer nominatim.Close()
	f := newFixture(t, nominatim.URL)

	rr := f.do(t, http.MethodGet, "/api/geocode/reverse?lat=19.4326&lng=-99.1332", f.client, models.RoleClient, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lat: 19.4326, Lng: -99.1332")

	rr = f.do(t, http.MethodGet, "/api/geocode/search?q=centro", f.client, models.RoleClient, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
