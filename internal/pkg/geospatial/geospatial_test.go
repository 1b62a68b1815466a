package geospatial_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/pkg/geospatial"
)

var london = domain.Coordinate{Latitude: 51.5, Longitude: -0.1}

func covered(bounds []domain.GeohashBound, hash string) bool {
	for _, b := range bounds {
		if b.Contains(hash) {
			return true
		}
	}
	return false
}

func TestDistance_ZeroAndSymmetric(t *testing.T) {
	if d := geospatial.Distance(london, london); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}

	paris := domain.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	ab := geospatial.Distance(london, paris)
	ba := geospatial.Distance(paris, london)
	if ab != ba {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
	// London to Paris is roughly 340 km.
	if ab < 330_000 || ab > 350_000 {
		t.Errorf("expected ~340km, got %fm", ab)
	}
}

func TestDestination_RoundTripsDistance(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		p := geospatial.Destination(london, bearing, 8000)
		d := geospatial.Distance(london, p)
		if math.Abs(d-8000) > 0.01 {
			t.Errorf("bearing %.0f: expected 8000m, got %f", bearing, d)
		}
	}
}

func TestGeohash_Precision(t *testing.T) {
	h := geospatial.Geohash(london)
	if len(h) != geospatial.Precision {
		t.Fatalf("expected %d chars, got %q", geospatial.Precision, h)
	}
	if h[:4] != "gcpv" {
		t.Errorf("expected London hash to start with gcpv, got %q", h)
	}
}

func TestQueryBounds_FiveMilesAroundLondon(t *testing.T) {
	radius := domain.MilesToMeters(5)
	bounds := geospatial.QueryBounds(london, radius)

	if len(bounds) == 0 || len(bounds) > 9 {
		t.Fatalf("expected 1..9 bounds, got %d", len(bounds))
	}

	inside := geospatial.Destination(london, 30, 8000)
	if !covered(bounds, geospatial.Geohash(inside)) {
		t.Errorf("point 8000m away not covered by %v", bounds)
	}
	if geospatial.Distance(london, inside) > radius {
		t.Error("8000m point should be inside the 5 mile radius")
	}

	outside := geospatial.Destination(london, 30, 8100)
	if geospatial.Distance(london, outside) <= radius {
		t.Error("8100m point should be outside the 5 mile radius")
	}
}

func TestQueryBounds_NoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		center := domain.Coordinate{
			Latitude:  rng.Float64()*140 - 70,
			Longitude: rng.Float64()*360 - 180,
		}
		radius := 50 + rng.Float64()*60_000
		bounds := geospatial.QueryBounds(center, radius)
		if len(bounds) > 9 {
			t.Fatalf("center %v radius %.0f: %d bounds", center, radius, len(bounds))
		}

		for j := 0; j < 20; j++ {
			p := geospatial.Destination(center, rng.Float64()*360, rng.Float64()*radius)
			if geospatial.Distance(center, p) > radius {
				continue
			}
			if !covered(bounds, geospatial.Geohash(p)) {
				t.Fatalf("center %v radius %.0f: point %v (%s) missed by %v",
					center, radius, p, geospatial.Geohash(p), bounds)
			}
		}
	}
}

// Radii finer than a stored cell must still match stored hashes.
func TestQueryBounds_SubMeterRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for _, radius := range []float64{0, 0.01, 0.1, 0.3, 0.5, 0.75, 1} {
		bounds := geospatial.QueryBounds(london, radius)
		if !covered(bounds, geospatial.Geohash(london)) {
			t.Fatalf("radius %.2f: center %s missed by %v", radius, geospatial.Geohash(london), bounds)
		}
		for _, b := range bounds {
			if len(b.Start) > geospatial.Precision {
				t.Errorf("radius %.2f: bound %v finer than stored precision", radius, b)
			}
		}

		for j := 0; j < 200; j++ {
			p := geospatial.Destination(london, rng.Float64()*360, rng.Float64()*radius)
			if !covered(bounds, geospatial.Geohash(p)) {
				t.Fatalf("radius %.2f: point %v (%s) missed by %v", radius, p, geospatial.Geohash(p), bounds)
			}
		}
	}
}

func TestQueryBounds_AntimeridianAndPole(t *testing.T) {
	fiji := domain.Coordinate{Latitude: -17.7, Longitude: 179.95}
	bounds := geospatial.QueryBounds(fiji, 20_000)
	east := geospatial.Destination(fiji, 90, 19_000)
	if east.Longitude > 0 {
		t.Fatalf("expected destination to wrap across the antimeridian, got %v", east)
	}
	if !covered(bounds, geospatial.Geohash(east)) {
		t.Errorf("wrapped point %v not covered by %v", east, bounds)
	}

	pole := domain.Coordinate{Latitude: 89.99, Longitude: 0}
	bounds = geospatial.QueryBounds(pole, 5_000)
	if len(bounds) != 1 || bounds[0].Start != "" {
		t.Errorf("expected a single global bound near the pole, got %v", bounds)
	}
}
