// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/geonear/internal/catalog"
	"github.com/wneessen/geonear/internal/geo"
	"github.com/wneessen/geonear/internal/spatial"
)

// DefaultCandidates is the number of Euclidean candidates that are compared by great-circle
// distance if no other value is given.
const DefaultCandidates = 8

// Engine resolves query coordinates to the nearest catalog place. The KD-tree preselects the
// candidates closest in flat lat/lon space; the winner is the candidate with the smallest
// haversine distance, ties going to the lower catalog index.
//
// An Engine is immutable and safe for concurrent use. An Engine without catalog is valid and
// answers every query with ErrUnavailable.
type Engine struct {
	catalog    *catalog.Catalog
	tree       *spatial.KDTree
	candidates int
}

// NewEngine builds the spatial index over the given catalog. A nil or empty catalog yields an
// unavailable engine. Candidate counts below 1 are raised to 1.
func NewEngine(cat *catalog.Catalog, candidates int) *Engine {
	engine := &Engine{candidates: max(candidates, 1)}
	if cat == nil || cat.Len() == 0 {
		return engine
	}
	engine.catalog = cat
	engine.tree = spatial.Build(cat.Points())
	return engine
}

func (e *Engine) Name() string {
	return "catalog"
}

// Ready reports whether the engine has an index to answer queries from.
func (e *Engine) Ready() bool {
	return e != nil && e.tree != nil
}

// Len returns the number of indexed places.
func (e *Engine) Len() int {
	if !e.Ready() {
		return 0
	}
	return e.tree.Len()
}

// Reverse returns the catalog place nearest to coords.
func (e *Engine) Reverse(_ context.Context, coords geo.Coordinate) (Result, error) {
	if !e.Ready() {
		return Result{}, ErrUnavailable
	}

	best, bestDistance := -1, math.Inf(1)
	for _, candidate := range e.tree.KNearest(coords, e.candidates) {
		distance := coords.Distance(e.tree.Point(candidate.Index))
		if distance < bestDistance || (distance == bestDistance && candidate.Index < best) {
			best, bestDistance = candidate.Index, distance
		}
	}
	if best < 0 {
		return Result{}, ErrNotFound
	}

	record := e.catalog.Record(best)
	return Result{
		State:      TitleCase(record.State()),
		District:   TitleCase(record.District()),
		Location:   TitleCase(record.Name()),
		DistanceKm: bestDistance,
		Latitude:   record.Latitude,
		Longitude:  record.Longitude,
	}, nil
}

// TitleCase trims s and capitalizes the first letter of every word while lower-casing the rest.
func TitleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// A Caser keeps state and must not be shared between goroutines
	return cases.Title(language.Und).String(s)
}
