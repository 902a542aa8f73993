package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/delivery/models"
)

func TestDistanceKm(t *testing.T) {
	zocalo := models.Point{Lat: 19.4326, Lng: -99.1332}
	assert.Zero(t, DistanceKm(zocalo, zocalo))

	// One degree of latitude is about 111.2 km.
	d := DistanceKm(models.Point{Lat: 0, Lng: 0}, models.Point{Lat: 1, Lng: 0})
	assert.InDelta(t, 111.19, d, 0.01)

	guadalajara := models.Point{Lat: 20.6597, Lng: -103.3496}
	assert.InDelta(t, 460, DistanceKm(zocalo, guadalajara), 10)
	assert.InDelta(t, DistanceKm(zocalo, guadalajara), DistanceKm(guadalajara, zocalo), 1e-9)
}

func TestGeocoderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "reforma 222", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name":"Paseo de la Reforma 222","lat":"19.4284","lon":"-99.1617"},
			{"display_name":"broken","lat":"north","lon":"-99"}
		]`))
	}))
	defer srv.Close()

	places, err := NewGeocoder(srv.URL+"/").Search(context.Background(), "reforma 222", 3)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Paseo de la Reforma 222", places[0].DisplayName)
	assert.InDelta(t, 19.4284, places[0].Point.Lat, 1e-9)
}

func TestGeocoderReverse(t *testing.T) {
	body := `{"display_name":"Centro, CDMX"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "19.5", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL)
	pt := models.Point{Lat: 19.5, Lng: -99.25}
	place, err := g.Reverse(context.Background(), pt)
	require.NoError(t, err)
	assert.Equal(t, "Centro, CDMX", place.DisplayName)

	body = `{}`
	place, err = g.Reverse(context.Background(), pt)
	require.NoError(t, err)
	assert.Equal(t, "Lat: 19.5000, Lng: -99.2500", place.DisplayName)
}

func TestGeocoderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeocoder(srv.URL).Search(context.Background(), "x", 1)
	assert.Error(t, err)
}
