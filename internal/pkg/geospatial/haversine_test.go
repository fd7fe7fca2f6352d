package geospatial

import (
	"math"
	"testing"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

func TestHaversine(t *testing.T) {
	// Empire State Building to Times Square, roughly 1.07 km.
	d := Haversine(40.7484, -73.9857, 40.7580, -73.9855)
	if math.Abs(d-1068) > 20 {
		t.Errorf("expected ~1068m, got %.1f", d)
	}
	if Haversine(40.7, -74, 40.7, -74) != 0 {
		t.Error("expected zero distance for identical points")
	}
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := domain.GeoPoint{Lat: 40.7484, Lon: -73.9857}
	box := BoundingBox(center, 1000)

	north := domain.GeoPoint{Lat: center.Lat + 0.0089, Lon: center.Lon}
	if Distance(center, north) > 1000 {
		t.Fatalf("test point should be within 1000m, got %.1f", Distance(center, north))
	}
	if !box.Contains(north) {
		t.Errorf("box %+v should contain %+v", box, north)
	}
	if box.Contains(domain.GeoPoint{Lat: center.Lat + 0.02, Lon: center.Lon}) {
		t.Error("box should not contain a point 2km north")
	}
}
