// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"math"
)

// EarthRadius is the mean earth radius in kilometers.
const EarthRadius = 6371.0

// Coordinate represents a geographic coordinate in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance in kilometers between c and other. We are using
// the Haversine formula to calculate the distance between two points on a sphere (in our
// case: Earth).
func (c Coordinate) Distance(other Coordinate) float64 {
	return Haversine(c.Lat, c.Lon, other.Lat, other.Lon)
}

// Haversine returns the great-circle distance in kilometers between the two points given
// in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a marginally out of [0, 1] for identical or antipodal points
	a = math.Max(0, math.Min(a, 1))
	return 2 * EarthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Finite reports whether both components are neither NaN nor infinite.
func (c Coordinate) Finite() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) && !math.IsInf(c.Lat, 0) && !math.IsInf(c.Lon, 0)
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
