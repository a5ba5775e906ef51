// Package geo resolves free-text place queries to coordinates.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tidwall/gjson"
)

var (
	ErrNoResult = errors.New(config.ErrGeocodeNoResult)

	ErrEmptyQuery = errors.New(config.ErrGeocodeEmptyQuery)
)

// Place is one geocoding candidate.
type Place struct {
	Name string
	Lat  float64
	Lng  float64
}

// Location converts p for the prayer engine.
func (p Place) Location() engine.Location {
	return engine.Location{Lat: p.Lat, Lng: p.Lng, Name: p.Name}
}

// Geocoder queries a Nominatim compatible /search endpoint.
// APIKey is optional and sent as the "key" parameter (LocationIQ).
type Geocoder struct {
	BaseURL string
	APIKey  string
	Fetcher fetcher.Fetcher
}

// NewGeocoder creates a geocoder for baseURL.
func NewGeocoder(baseURL, apiKey string, f fetcher.Fetcher) *Geocoder {
	return &Geocoder{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Fetcher: f}
}

// Search returns up to limit places matching query, best match first.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = config.GeocodeLimit
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if g.APIKey != "" {
		q.Set("key", g.APIKey)
	}

	body, err := g.Fetcher.Fetch(ctx, g.BaseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", engine.ErrProviderResponse)
	}

	var places []Place
	gjson.ParseBytes(body).ForEach(func(_, r gjson.Result) bool {
		lat, lng := r.Get("lat"), r.Get("lon")
		if !lat.Exists() || !lng.Exists() {
			return true
		}
		p := Place{Name: r.Get("display_name").String(), Lat: lat.Float(), Lng: lng.Float()}
		if !p.Location().Valid() {
			return true
		}
		places = append(places, p)
		return len(places) < limit
	})

	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResult, query)
	}

	slog.Debug(config.MsgGeocoded,
		config.LogKeyComponent, config.CompGeo,
		config.LogKeyCount, len(places),
		config.LogKeyLocation, places[0].Name)
	return places, nil
}

// Resolve returns the best match for query.
func (g *Geocoder) Resolve(ctx context.Context, query string) (Place, error) {
	places, err := g.Search(ctx, query, 1)
	if err != nil {
		return Place{}, err
	}
	return places[0], nil
}
