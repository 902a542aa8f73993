package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/geo"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

func (h *Handler) ClientDashboard(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.BuildClientView(snap, state, a.ID))
}

func (h *Handler) ListBusinesses(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.BuildClientView(snap, state, a.ID).Businesses)
}

func (h *Handler) BusinessProducts(w http.ResponseWriter, r *http.Request, a services.Actor) {
	businessID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	snap, _, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	products := make([]models.Product, 0)
	for _, p := range snap.Products {
		if p.BusinessID == businessID {
			products = append(products, p)
		}
	}
	utils.RespondJSON(w, http.StatusOK, products)
}

// BusinessDistance measures from the business to ?lat=&lng=.
func (h *Handler) BusinessDistance(w http.ResponseWriter, r *http.Request, a services.Actor) {
	businessID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pt, ok := queryPoint(w, r)
	if !ok {
		return
	}
	snap, _, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	for _, b := range snap.Businesses {
		if b.ID != businessID {
			continue
		}
		if b.Location == nil {
			utils.RespondError(w, http.StatusConflict, "business has no location")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"business_id": b.ID,
			"distance_km": models.RoundCents(geo.DistanceKm(*b.Location, pt)),
		})
		return
	}
	utils.RespondError(w, http.StatusNotFound, "business not found")
}

func queryPoint(w http.ResponseWriter, r *http.Request) (models.Point, bool) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		utils.RespondError(w, http.StatusBadRequest, "invalid coordinates")
		return models.Point{}, false
	}
	return models.Point{Lat: lat, Lng: lng}, true
}

type cartResponse struct {
	Items    []models.CartItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal float64           `json:"subtotal"`
}

func respondCart(w http.ResponseWriter, status int, c models.Cart) {
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	utils.RespondJSON(w, status, cartResponse{Items: items, Count: c.Count(), Subtotal: models.RoundCents(c.Subtotal())})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, a services.Actor) {
	respondCart(w, http.StatusOK, h.carts.Get(a.ID))
}

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=99"`
}

// AddToCart copies the product's current name and price into the cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req addToCartRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, _, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var item *models.CartItem
	for _, p := range snap.Products {
		if p.ID == req.ProductID {
			item = &models.CartItem{
				ProductID:  p.ID,
				Quantity:   req.Quantity,
				Price:      p.Price,
				Name:       p.Name,
				Image:      p.Image,
				BusinessID: p.BusinessID,
			}
			break
		}
	}
	if item == nil {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}
	for _, b := range snap.Businesses {
		if b.ID == item.BusinessID {
			item.BusinessName = b.Name
		}
	}

	c, err := h.carts.Add(a.ID, *item)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondCart(w, http.StatusOK, c)
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

func (h *Handler) ChangeCartQuantity(w http.ResponseWriter, r *http.Request, a services.Actor) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	respondCart(w, http.StatusOK, h.carts.UpdateQuantity(a.ID, productID, req.Delta))
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request, a services.Actor) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	respondCart(w, http.StatusOK, h.carts.Remove(a.ID, productID))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request, a services.Actor) {
	h.carts.Clear(a.ID)
	respondCart(w, http.StatusOK, models.Cart{})
}

func (h *Handler) LastAddress(w http.ResponseWriter, r *http.Request, a services.Actor) {
	addr, ok := h.carts.LastAddress(a.ID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusOK, addr)
}

type checkoutRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng" validate:"omitempty,longitude"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.orders.Checkout(r.Context(), a.ID, models.Address{Address: req.Address, Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, o)
}

func (h *Handler) ClientOrders(w http.ResponseWriter, r *http.Request, a services.Actor) {
	snap, state, err := h.mirror(r, a.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, store.BuildClientView(snap, state, a.ID).Orders)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.orders.Cancel(r.Context(), a, orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, o)
}

type clientProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone"`
}

func (h *Handler) UpdateClientProfile(w http.ResponseWriter, r *http.Request, a services.Actor) {
	var req clientProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.catalog.UpdateClient(r.Context(), a, a.ID, services.ClientProfile{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, c)
}
