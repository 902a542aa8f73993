package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ray-remotestate/delivery/models"
)

const userAgent = "delivery-api/1.0"

type Place struct {
	DisplayName string       `json:"display_name"`
	Point       models.Point `json:"point"`
}

// Geocoder talks to a Nominatim compatible search service.
type Geocoder struct {
	baseURL string
	client  *http.Client
}

func NewGeocoder(baseURL string) *Geocoder {
	return &Geocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (p nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad latitude %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad longitude %q: %w", p.Lon, err)
	}
	return Place{DisplayName: p.DisplayName, Point: models.Point{Lat: lat, Lng: lng}}, nil
}

// Search resolves free text into at most limit places.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := g.get(ctx, "/search", q, &raw); err != nil {
		return nil, err
	}
	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

func (g *Geocoder) Reverse(ctx context.Context, pt models.Point) (Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(pt.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pt.Lng, 'f', -1, 64))

	var raw nominatimPlace
	if err := g.get(ctx, "/reverse", q, &raw); err != nil {
		return Place{}, err
	}
	if raw.DisplayName == "" {
		return Place{DisplayName: CoordinateLabel(pt), Point: pt}, nil
	}
	return Place{DisplayName: raw.DisplayName, Point: pt}, nil
}

// CoordinateLabel is the address shown when no name can be resolved.
func CoordinateLabel(pt models.Point) string {
	return fmt.Sprintf("Lat: %.4f, Lng: %.4f", pt.Lat, pt.Lng)
}

func (g *Geocoder) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
