// Package maps holds the geographic helpers used by shop discovery and
// delivery tracking.
package maps

import (
	"math"
	"sort"
)

const earthRadiusKM = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid rejects coordinates outside the WGS84 range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKM returns the great-circle distance between a and b.
func DistanceKM(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RoundKM rounds a distance to two decimals for display.
func RoundKM(km float64) float64 {
	return math.Round(km*100) / 100
}

// BoundingBox returns the lat/lng window that contains every point within
// radiusKM of center. It over-approximates the circle so callers can prefilter
// in SQL and then apply DistanceKM.
func BoundingBox(center Point, radiusKM float64) (lo, hi Point) {
	dLat := radiusKM / earthRadiusKM * 180 / math.Pi
	dLng := dLat
	if c := math.Cos(radians(center.Lat)); c > 1e-9 {
		dLng = dLat / c
	}
	return Point{Lat: center.Lat - dLat, Lng: center.Lng - dLng},
		Point{Lat: center.Lat + dLat, Lng: center.Lng + dLng}
}

// Ranked pairs an item index with its distance from the search origin.
type Ranked struct {
	Index      int
	DistanceKM float64
}

// WithinRadius keeps the points within radiusKM of origin, nearest first.
func WithinRadius(origin Point, points []Point, radiusKM float64) []Ranked {
	out := make([]Ranked, 0, len(points))
	for i, p := range points {
		d := DistanceKM(origin, p)
		if d <= radiusKM {
			out = append(out, Ranked{Index: i, DistanceKM: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
