package handlers

import (
	"net/http"

	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/utils"
)

func (h *Handler) DeliveryDashboard(w http.ResponseWriter, r *http.Request, a services.Actor) {
	v, err := h.delivery.Overview(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) AvailableOrders(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orders, err := h.delivery.AvailableOrders(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, orders)
}

func (h *Handler) ActiveDeliveries(w http.ResponseWriter, r *http.Request, a services.Actor) {
	v, err := h.delivery.Overview(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, v.Active)
}

func (h *Handler) ClaimOrder(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.orders.Claim(r.Context(), a.ID, orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, o)
}

func (h *Handler) CompleteDelivery(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, dp, err := h.orders.Complete(r.Context(), a.ID, orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"order":           o,
		"commission":      o.Commission(),
		"delivery_person": dp,
	})
}

func (h *Handler) ToggleOnline(w http.ResponseWriter, r *http.Request, a services.Actor) {
	dp, err := h.delivery.ToggleOnline(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, dp)
}

type deliveryProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Phone   *string `json:"phone"`
	Vehicle *string `json:"vehicle"`
}

func (h *Handler) UpdateDeliveryProfile(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req deliveryProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	dp, err := h.delivery.UpdateProfile(r.Context(), a.ID, services.DeliveryProfile{
		Name:    req.Name,
		Phone:   req.Phone,
		Vehicle: req.Vehicle,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, dp)
}
