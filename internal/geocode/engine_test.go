// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/wneessen/geonear/internal/catalog"
	"github.com/wneessen/geonear/internal/geo"
)

var testHeader = []string{"place_name", "state", "district", "latitude", "longitude"}

func testCatalog(t *testing.T, rows ...[]string) *catalog.Catalog {
	t.Helper()
	if len(rows) == 0 {
		rows = [][]string{
			{"New Delhi", "Delhi", "New Delhi", "28.6139", "77.2090"},
			{"Mumbai", "Maharashtra", "Mumbai City", "19.0760", "72.8777"},
		}
	}
	cat, err := catalog.Normalize(&catalog.Table{Header: testHeader, Rows: rows})
	if err != nil {
		t.Fatalf("failed to build test catalog: %s", err)
	}
	return cat
}

func TestNewEngine(t *testing.T) {
	t.Run("an engine with catalog is ready", func(t *testing.T) {
		engine := NewEngine(testCatalog(t), DefaultCandidates)
		if !engine.Ready() {
			t.Fatal("expected engine to be ready")
		}
		if engine.Len() != 2 {
			t.Errorf("expected 2 places, got %d", engine.Len())
		}
		if engine.Name() != "catalog" {
			t.Errorf("expected engine name to be catalog, got %q", engine.Name())
		}
	})
	t.Run("an engine without catalog is not ready", func(t *testing.T) {
		engine := NewEngine(nil, DefaultCandidates)
		if engine.Ready() {
			t.Error("expected engine to be unavailable")
		}
		if engine.Len() != 0 {
			t.Errorf("expected 0 places, got %d", engine.Len())
		}
	})
	t.Run("a nil engine is not ready", func(t *testing.T) {
		var engine *Engine
		if engine.Ready() || engine.Len() != 0 {
			t.Error("expected nil engine to be unavailable")
		}
	})
}

func TestEngine_Reverse(t *testing.T) {
	engine := NewEngine(testCatalog(t), DefaultCandidates)
	t.Run("querying a catalog coordinate returns the place", func(t *testing.T) {
		result, err := engine.Reverse(t.Context(), geo.Coordinate{Lat: 28.6139, Lon: 77.2090})
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.State != "Delhi" || result.District != "New Delhi" || result.Location != "New Delhi" {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.DistanceKm > 1e-6 {
			t.Errorf("expected distance to be 0, got %f", result.DistanceKm)
		}
	})
	t.Run("querying close to a place returns its exact distance", func(t *testing.T) {
		query := geo.Coordinate{Lat: 19.08, Lon: 72.88}
		result, err := engine.Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "Mumbai" || result.District != "Mumbai City" || result.State != "Maharashtra" {
			t.Errorf("expected Mumbai, got %+v", result)
		}
		want := geo.Haversine(19.08, 72.88, 19.0760, 72.8777)
		if math.Abs(result.DistanceKm-want) > 1e-9 {
			t.Errorf("expected distance %f, got %f", want, result.DistanceKm)
		}
		if math.Abs(result.DistanceKm-0.5062) > 1e-3 {
			t.Errorf("expected distance of about 0.506 km, got %f", result.DistanceKm)
		}
		if result.Latitude != 19.0760 || result.Longitude != 72.8777 {
			t.Errorf("expected place coordinates 19.0760/72.8777, got %f/%f", result.Latitude, result.Longitude)
		}
	})
	t.Run("repeated queries return identical results", func(t *testing.T) {
		query := geo.Coordinate{Lat: 23.5, Lon: 75.1}
		first, err := engine.Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		for range 10 {
			result, err := engine.Reverse(t.Context(), query)
			if err != nil {
				t.Fatalf("failed to reverse geocode: %s", err)
			}
			if result != first {
				t.Fatalf("expected %+v, got %+v", first, result)
			}
		}
	})
	t.Run("an unavailable engine fails every query", func(t *testing.T) {
		_, err := catalog.Normalize(&catalog.Table{Header: []string{"name", "state"}, Rows: [][]string{{"a", "b"}}})
		if !errors.Is(err, catalog.ErrSchemaUnresolved) {
			t.Fatalf("expected ErrSchemaUnresolved, got %v", err)
		}
		unavailable := NewEngine(nil, DefaultCandidates)
		for _, query := range []geo.Coordinate{{Lat: 28.6139, Lon: 77.2090}, {}} {
			if _, err = unavailable.Reverse(t.Context(), query); !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
		}
	})
	t.Run("display fields are title cased", func(t *testing.T) {
		cased := NewEngine(testCatalog(t, []string{"  chandni CHOWK ", "DELHI", "central delhi", "28.65", "77.23"}), 1)
		result, err := cased.Reverse(t.Context(), geo.Coordinate{Lat: 28.65, Lon: 77.23})
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "Chandni Chowk" || result.State != "Delhi" || result.District != "Central Delhi" {
			t.Errorf("unexpected casing: %+v", result)
		}
	})
	t.Run("empty display fields stay empty", func(t *testing.T) {
		empty := NewEngine(testCatalog(t, []string{"", "", "", "10", "10"}), 1)
		result, err := empty.Reverse(t.Context(), geo.Coordinate{Lat: 10, Lon: 10})
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "" || result.State != "" || result.District != "" {
			t.Errorf("expected empty fields, got %+v", result)
		}
	})
	t.Run("duplicate places resolve to the first", func(t *testing.T) {
		dupes := NewEngine(testCatalog(t,
			[]string{"first", "", "", "10", "10"},
			[]string{"second", "", "", "10", "10"},
		), DefaultCandidates)
		result, err := dupes.Reverse(t.Context(), geo.Coordinate{Lat: 10.1, Lon: 10.1})
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "First" {
			t.Errorf("expected first place, got %q", result.Location)
		}
	})
}

func TestEngine_Reverse_candidates(t *testing.T) {
	// At 80°N one degree of longitude is much shorter than one degree of latitude, so the
	// Euclidean nearest place is not the nearest on the sphere.
	cat := testCatalog(t,
		[]string{"north", "", "", "82.5", "0"},
		[]string{"east", "", "", "80", "3"},
	)
	query := geo.Coordinate{Lat: 80, Lon: 0}
	t.Run("a single candidate returns the Euclidean nearest place", func(t *testing.T) {
		result, err := NewEngine(cat, 1).Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "North" {
			t.Errorf("expected North, got %q", result.Location)
		}
	})
	t.Run("multiple candidates return the great-circle nearest place", func(t *testing.T) {
		result, err := NewEngine(cat, 2).Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "East" {
			t.Errorf("expected East, got %q", result.Location)
		}
		if math.Abs(result.DistanceKm-query.Distance(geo.Coordinate{Lat: 80, Lon: 3})) > 1e-9 {
			t.Errorf("unexpected distance %f", result.DistanceKm)
		}
	})
	t.Run("candidate counts below one are raised", func(t *testing.T) {
		if _, err := NewEngine(cat, 0).Reverse(t.Context(), query); err != nil {
			t.Errorf("failed to reverse geocode: %s", err)
		}
	})
	t.Run("considering all places matches a full scan", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(7, 11))
		rows := make([][]string, 300)
		for i := range rows {
			lat := strconv.FormatFloat(8+rng.Float64()*29, 'f', 4, 64)
			lon := strconv.FormatFloat(68+rng.Float64()*29, 'f', 4, 64)
			rows[i] = []string{"place " + strconv.Itoa(i), "", "", lat, lon}
		}
		full := testCatalog(t, rows...)
		engine := NewEngine(full, full.Len())
		for range 200 {
			query := geo.Coordinate{Lat: 8 + rng.Float64()*29, Lon: 68 + rng.Float64()*29}
			want, wantDistance := -1, math.Inf(1)
			for i := range full.Len() {
				if d := query.Distance(full.Record(i).Coordinate()); d < wantDistance {
					want, wantDistance = i, d
				}
			}
			result, err := engine.Reverse(t.Context(), query)
			if err != nil {
				t.Fatalf("failed to reverse geocode: %s", err)
			}
			if result.DistanceKm != wantDistance {
				t.Fatalf("expected place %d at %f km, got %q at %f km", want, wantDistance, result.Location,
					result.DistanceKm)
			}
		}
	})
}

func TestEngine_Reverse_outOfRange(t *testing.T) {
	// (100, 190) lies beyond the pole and describes the same point as (80, 10)
	query := geo.Coordinate{Lat: 100, Lon: 190}
	t.Run("the place at the equivalent coordinate wins", func(t *testing.T) {
		engine := NewEngine(testCatalog(t,
			[]string{"same", "", "", "80", "10"},
			[]string{"far", "", "", "0", "0"},
		), DefaultCandidates)
		result, err := engine.Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "Same" {
			t.Errorf("expected Same, got %q at %f km", result.Location, result.DistanceKm)
		}
		if !(result.DistanceKm >= 0) || result.DistanceKm > 1e-6 {
			t.Errorf("expected a distance of 0 km, got %f", result.DistanceKm)
		}
	})
	t.Run("a single place is always found", func(t *testing.T) {
		engine := NewEngine(testCatalog(t, []string{"same", "", "", "80", "10"}), 1)
		result, err := engine.Reverse(t.Context(), query)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if result.Location != "Same" {
			t.Errorf("expected Same, got %q", result.Location)
		}
	})
}

func TestEngine_Reverse_concurrent(t *testing.T) {
	engine := NewEngine(testCatalog(t), DefaultCandidates)
	want, err := engine.Reverse(t.Context(), geo.Coordinate{Lat: 20, Lon: 73})
	if err != nil {
		t.Fatalf("failed to reverse geocode: %s", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Go(func() {
			result, err := engine.Reverse(t.Context(), geo.Coordinate{Lat: 20, Lon: 73})
			if err != nil {
				errs <- err
				return
			}
			if result != want {
				errs <- errors.New("concurrent query returned a different result")
			}
		})
	}
	wg.Wait()
	close(errs)
	for err = range errs {
		t.Error(err)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"new delhi", "New Delhi"},
		{"  MUMBAI city ", "Mumbai City"},
		{"tamil nadu", "Tamil Nadu"},
		{"o'brien nagar", "O'brien Nagar"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := TitleCase(tc.in); got != tc.want {
			t.Errorf("expected %q to become %q, got %q", tc.in, tc.want, got)
		}
	}
}
