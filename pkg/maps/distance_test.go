package maps

import (
	"math"
	"testing"
)

func TestDistanceKM(t *testing.T) {
	pune := Point{Lat: 18.5204, Lng: 73.8567}
	mumbai := Point{Lat: 19.0760, Lng: 72.8777}

	got := DistanceKM(pune, mumbai)
	if math.Abs(got-120) > 5 {
		t.Fatalf("expected ~120km between Pune and Mumbai, got %.2f", got)
	}
	if DistanceKM(pune, pune) != 0 {
		t.Fatalf("expected zero distance to self")
	}
	if RoundKM(1.23456) != 1.23 {
		t.Fatalf("unexpected rounding %v", RoundKM(1.23456))
	}
}

func TestWithinRadiusSortsNearestFirst(t *testing.T) {
	origin := Point{Lat: 18.52, Lng: 73.85}
	points := []Point{
		{Lat: 18.60, Lng: 73.85}, // ~8.9km
		{Lat: 19.07, Lng: 72.87}, // far
		{Lat: 18.53, Lng: 73.85}, // ~1.1km
	}

	ranked := WithinRadius(origin, points, 10)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 points in radius, got %d", len(ranked))
	}
	if ranked[0].Index != 2 || ranked[1].Index != 0 {
		t.Fatalf("unexpected order %+v", ranked)
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	center := Point{Lat: 18.52, Lng: 73.85}
	lo, hi := BoundingBox(center, 10)
	edge := Point{Lat: 18.52, Lng: 73.85 + 0.09}
	if DistanceKM(center, edge) > 10 {
		t.Fatalf("test point should be inside radius")
	}
	if edge.Lng < lo.Lng || edge.Lng > hi.Lng || edge.Lat < lo.Lat || edge.Lat > hi.Lat {
		t.Fatalf("bounding box %v-%v excludes %v", lo, hi, edge)
	}
	if !center.Valid() || (Point{Lat: 91}).Valid() {
		t.Fatalf("unexpected validity")
	}
}
