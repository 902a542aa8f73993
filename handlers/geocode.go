package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/geo"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/utils"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 10
)

func (h *Handler) GeocodeSearch(w http.ResponseWriter, r *http.Request, _ services.Actor) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxSearchLimit)
	}
	places, err := h.geocoder.Search(r.Context(), q, limit)
	if err != nil {
		logrus.WithError(err).Warn("geocode search failed")
		utils.RespondError(w, http.StatusBadGateway, "geocoding is unavailable")
		return
	}
	if places == nil {
		places = []geo.Place{}
	}
	utils.RespondJSON(w, http.StatusOK, places)
}

// GeocodeReverse never fails on a lookup error; it answers with the
// coordinates as the label instead.
func (h *Handler) GeocodeReverse(w http.ResponseWriter, r *http.Request, _ services.Actor) {
	pt, ok := queryPoint(w, r)
	if !ok {
		return
	}
	place, err := h.geocoder.Reverse(r.Context(), pt)
	if err != nil {
		logrus.WithError(err).Warn("reverse geocode failed")
		place = geo.Place{DisplayName: geo.CoordinateLabel(pt), Point: pt}
	}
	utils.RespondJSON(w, http.StatusOK, place)
}
