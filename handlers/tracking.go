package handlers

import (
	"net/http"

	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/utils"
)

type trackingResponse struct {
	Order   models.Order       `json:"order"`
	History []models.StatusLog `json:"history"`
}

func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "orderId")
	if !ok {
		return
	}
	o, history, err := h.orders.Track(r.Context(), a, orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.StatusLog{}
	}
	utils.RespondJSON(w, http.StatusOK, trackingResponse{Order: o, History: history})
}

// TrackOrderWS checks access like TrackOrder and then streams the order's
// events over a websocket.
func (h *Handler) TrackOrderWS(w http.ResponseWriter, r *http.Request, a services.Actor) {
	orderID, ok := pathID(w, r, "orderId")
	if !ok {
		return
	}
	if _, _, err := h.orders.Track(r.Context(), a, orderID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.hub.ServeWS(w, r, orderID)
}
