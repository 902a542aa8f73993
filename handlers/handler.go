package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/cart"
	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/geo"
	"github.com/ray-remotestate/delivery/middlewares"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

// Accounts is the slice of the gateway the auth handlers use.
type Accounts interface {
	IsUserExists(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, name, email, hashedPassword string, role models.Role, phone string) (uuid.UUID, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

type Handler struct {
	accounts Accounts
	orders   *services.OrderService
	delivery *services.DeliveryService
	catalog  *services.CatalogService
	sessions *store.Sessions
	carts    *cart.Store
	geocoder *geo.Geocoder
	hub      *events.Hub
	validate *validator.Validate
}

type Deps struct {
	Accounts Accounts
	Orders   *services.OrderService
	Delivery *services.DeliveryService
	Catalog  *services.CatalogService
	Sessions *store.Sessions
	Carts    *cart.Store
	Geocoder *geo.Geocoder
	Hub      *events.Hub
}

func New(d Deps) *Handler {
	return &Handler{
		accounts: d.Accounts,
		orders:   d.Orders,
		delivery: d.Delivery,
		catalog:  d.Catalog,
		sessions: d.Sessions,
		carts:    d.Carts,
		geocoder: d.Geocoder,
		hub:      d.Hub,
		validate: validator.New(),
	}
}

// decode reads a JSON body into v and runs its validate tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid field: "+verrs[0].Field())
			return false
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func actor(r *http.Request) (services.Actor, bool) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: claims.UserID, Role: claims.Role}, true
}

// WithActor resolves the session before calling fn.
func WithActor(fn func(w http.ResponseWriter, r *http.Request, a services.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		fn(w, r, a)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and domain errors onto status codes.
// Anything unrecognised is logged and reported as a generic failure.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrAddressRequired),
		errors.Is(err, services.ErrInvalidCart),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, cart.ErrInvalidItem):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, dbhelper.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrOffline),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrOrderChanged),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, cart.ErrMixedBusiness):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		logrus.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		utils.RespondError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

// mirror returns the caller's session data, loading it when needed.
func (h *Handler) mirror(r *http.Request, userID uuid.UUID) (store.Snapshot, store.State, error) {
	m, err := h.sessions.Ensure(r.Context(), userID)
	if err != nil {
		return store.Snapshot{}, store.StateEmpty, err
	}
	snap, state := m.Snapshot()
	return snap, state, nil
}
