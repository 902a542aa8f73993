package handlers

import (
	"net/http"
	"time"

	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

func (h *Handler) BusinessDashboard(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.BuildBusinessView(snap, state, a.ID, time.Now()))
}

func (h *Handler) BusinessOrders(w http.ResponseWriter, r *http.Request, a services.Actor) {
	status, ok := queryStatus(w, r)
	if !ok {
		return
	}
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	orders := store.BuildBusinessView(snap, state, a.ID, time.Now()).Orders
	utils.RespondJSON(w, http.StatusOK, store.FilterOrders(orders, status, r.URL.Query().Get("q")))
}

func queryStatus(w http.ResponseWriter, r *http.Request) (models.OrderStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	status, err := models.ParseOrderStatus(raw)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return status, true
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus serves both business and admin status changes; the
// service decides what the actor may do.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), a, orderID, to)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, o)
}

type businessProfileRequest struct {
	Name         *string            `json:"name" validate:"omitempty,min=1"`
	Category     *string            `json:"category"`
	Phone        *string            `json:"phone"`
	Address      *string            `json:"address"`
	Location     *models.Point      `json:"location"`
	DeliveryFee  *float64           `json:"delivery_fee" validate:"omitempty,gte=0"`
	DeliveryTime *string            `json:"delivery_time"`
	Image        *string            `json:"image"`
	IsOpen       *bool              `json:"is_open"`
	IsActive     *bool              `json:"is_active"`
	Promotions   *models.Promotions `json:"promotions" validate:"omitempty,max=3,dive"`
}

func (req businessProfileRequest) profile() services.BusinessProfile {
	return services.BusinessProfile{
		Name:         req.Name,
		Category:     req.Category,
		Phone:        req.Phone,
		Address:      req.Address,
		Location:     req.Location,
		DeliveryFee:  req.DeliveryFee,
		DeliveryTime: req.DeliveryTime,
		Image:        req.Image,
		IsOpen:       req.IsOpen,
		IsActive:     req.IsActive,
		Promotions:   req.Promotions,
	}
}

func (h *Handler) UpdateBusinessProfile(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req businessProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.catalog.UpdateBusiness(r.Context(), a, a.ID, req.profile())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, b)
}

type productRequest struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), a.ID, services.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, p)
}

type productPatchRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"`
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, a services.Actor) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req productPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), a, productID, services.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, a services.Actor) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), a, productID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
