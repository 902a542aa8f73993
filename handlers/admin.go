package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

// recentOrders is how many of the newest orders the dashboard carries.
const recentOrders = 10

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	v := store.BuildAdminView(snap, state, time.Now())
	if len(v.Orders) > recentOrders {
		v.Orders = v.Orders[:recentOrders]
	}
	utils.RespondJSON(w, http.StatusOK, v)
}

// AdminOrders lists every order, narrowed by ?status= and ?q=.
func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request, a services.Actor) {
	status, ok := queryStatus(w, r)
	if !ok {
		return
	}
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	orders := store.BuildAdminView(snap, state, time.Now()).Orders
	utils.RespondJSON(w, http.StatusOK, store.FilterOrders(orders, status, r.URL.Query().Get("q")))
}

type orderPatchRequest struct {
	Status           *string         `json:"status"`
	DeliveryPersonID *uuid.UUID      `json:"delivery_person_id"`
	Unassign         bool            `json:"unassign"`
	TotalPrice       *float64        `json:"total_price" validate:"omitempty,gte=0"`
	DeliveryAddress  *models.Address `json:"delivery_address"`
}

func (h *Handler) AdminUpdateOrder(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orderPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch := services.OrderPatch{
		DeliveryPersonID: req.DeliveryPersonID,
		Unassign:         req.Unassign,
		TotalPrice:       req.TotalPrice,
		DeliveryAddress:  req.DeliveryAddress,
	}
	if req.Status != nil {
		status, err := models.ParseOrderStatus(*req.Status)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Status = &status
	}
	o, err := h.orders.AdminUpdate(r.Context(), a.ID, orderID, patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, o)
}

func (h *Handler) AdminOrderMap(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, _, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.MapPoints(snap, time.Now()))
}

func (h *Handler) ReconcileDeliveryPerson(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dp, err := h.delivery.Reconcile(r.Context(), a.ID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, dp)
}

func (h *Handler) AdminUpdateBusiness(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req businessProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.catalog.UpdateBusiness(r.Context(), a, id, req.profile())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, b)
}

// ListUsers takes ?type= (clients, businesses, delivery_persons) and ?q=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, a services.Actor) {
	q := r.URL.Query()
	list, err := h.catalog.ListUsers(r.Context(), a.ID, q.Get("type"), q.Get("q"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

type newUserRequest struct {
	Type     string `json:"type" validate:"required,oneof=clients businesses delivery_persons"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Category string `json:"category"`
	Vehicle  string `json:"vehicle"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req newUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rec, err := h.catalog.CreateUser(r.Context(), a.ID, services.NewUser{
		Kind:     req.Type,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Category: req.Category,
		Vehicle:  req.Vehicle,
		IsActive: active,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, rec)
}

type userPatchRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Category *string `json:"category"`
	Vehicle  *string `json:"vehicle"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req userPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.catalog.UpdateUser(r.Context(), a.ID, mux.Vars(r)["type"], id, services.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Category: req.Category,
		Vehicle:  req.Vehicle,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) ToggleUserActive(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.catalog.ToggleActive(r.Context(), a.ID, mux.Vars(r)["type"], id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, a services.Actor) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteUser(r.Context(), a.ID, mux.Vars(r)["type"], id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
