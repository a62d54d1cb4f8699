// Package geo resolves a free-text place name to a postal code, a point and
// a static map image.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"agenda_scrooper/models"
)

var ErrNotFound = errors.New("place not found")

// Location holds whatever the geocoder knew. Any field may be empty.
type Location struct {
	PostalCode  string
	Coordinates *models.GeoPoint
	MapImageURL string
}

// Locator looks up a place within a region (an island name, for example).
type Locator interface {
	Locate(ctx context.Context, place, region string) (Location, error)
}

// NominatimClient talks to a Nominatim-compatible search API.
type NominatimClient struct {
	client  *resty.Client
	baseURL string
	// mapURL is a static map endpoint taking center/zoom/size/markers query
	// parameters. Empty disables map images.
	mapURL string
}

func NewNominatimClient(client *resty.Client, baseURL, mapURL string) *NominatimClient {
	return &NominatimClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		mapURL:  mapURL,
	}
}

type searchResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func (c *NominatimClient) Locate(ctx context.Context, place, region string) (Location, error) {
	q := strings.TrimSpace(place)
	if q == "" {
		return Location{}, ErrNotFound
	}
	if region != "" {
		q += ", " + region
	}

	var results []searchResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              q,
			"format":         "json",
			"addressdetails": "1",
			"limit":          "1",
		}).
		SetResult(&results).
		Get(c.baseURL + "/search")
	if err != nil {
		return Location{}, fmt.Errorf("geocode %q: %w", q, err)
	}
	if resp.StatusCode() != 200 {
		return Location{}, fmt.Errorf("geocode %q: status %d", q, resp.StatusCode())
	}
	if len(results) == 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrNotFound, q)
	}

	r := results[0]
	loc := Location{PostalCode: r.Address.Postcode}
	lat, latErr := strconv.ParseFloat(r.Lat, 64)
	lng, lngErr := strconv.ParseFloat(r.Lon, 64)
	if latErr == nil && lngErr == nil {
		loc.Coordinates = models.NewGeoPoint(lat, lng)
		loc.MapImageURL = c.mapImage(r.Lat, r.Lon)
	}
	return loc, nil
}

func (c *NominatimClient) mapImage(lat, lng string) string {
	if c.mapURL == "" {
		return ""
	}
	v := url.Values{}
	v.Set("center", lat+","+lng)
	v.Set("zoom", "15")
	v.Set("size", "600x300")
	v.Set("markers", lat+","+lng)
	sep := "?"
	if strings.Contains(c.mapURL, "?") {
		sep = "&"
	}
	return c.mapURL + sep + v.Encode()
}
