// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geocode answers nearest-place queries against a place catalog.
package geocode

import (
	"context"
	"errors"

	"github.com/wneessen/geonear/internal/geo"
)

var (
	// ErrUnavailable is returned if a query is attempted while no catalog is loaded.
	ErrUnavailable = errors.New("geocoder service not ready (dataset missing)")

	// ErrNotFound is returned if no place could be selected for a query.
	ErrNotFound = errors.New("location not found")
)

// Result is the place nearest to a query coordinate.
type Result struct {
	State      string  `json:"state"`
	District   string  `json:"district"`
	Location   string  `json:"location"`
	DistanceKm float64 `json:"distance_km"`

	// Latitude and Longitude are the coordinates of the matched place
	Latitude  float64 `json:"-"`
	Longitude float64 `json:"-"`
	CacheHit  bool    `json:"-"`
}

// Place returns the coordinate of the matched place.
func (r Result) Place() geo.Coordinate {
	return geo.Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geo.Coordinate) (Result, error)
}
