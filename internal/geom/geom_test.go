package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestHaversineOneDegreeLatitude(t *testing.T) {
	d := Haversine(orb.Point{0, 0}, orb.Point{0, 1})
	if d < 111000 || d > 111400 {
		t.Fatalf("expected ~111.2km, got %f", d)
	}
}

func TestCoordKeyRoundsToSevenDecimals(t *testing.T) {
	a := orb.Point{-9.20512341, 38.66012344}
	b := orb.Point{-9.20512339, 38.66012341}
	if !SamePoint(a, b) {
		t.Fatalf("expected %s and %s to share a key", CoordKey(a), CoordKey(b))
	}
	c := orb.Point{-9.2051235, 38.6601234}
	if SamePoint(a, c) {
		t.Fatalf("expected %s and %s to differ", CoordKey(a), CoordKey(c))
	}
}

func TestInteriorPointOfConcavePolygon(t *testing.T) {
	// U-shaped room whose area centroid falls in the notch.
	u := orb.Polygon{orb.Ring{
		{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 0},
	}}
	c := Centroid(u)
	if Contains(u, c) {
		t.Fatalf("expected centroid %v to fall outside the U shape", c)
	}
	p := InteriorPoint(u)
	if !Contains(u, p) {
		t.Fatalf("expected interior point %v to be inside", p)
	}
}

func TestInteriorPointOfConvexPolygonIsCentroid(t *testing.T) {
	sq := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}
	p := InteriorPoint(sq)
	if math.Abs(p[0]-1) > 1e-9 || math.Abs(p[1]-1) > 1e-9 {
		t.Fatalf("expected (1,1), got %v", p)
	}
}

func TestContainsRespectsHoles(t *testing.T) {
	poly := orb.Polygon{
		orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		orb.Ring{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	}
	if Contains(poly, orb.Point{2, 2}) {
		t.Fatalf("expected point in hole to be outside")
	}
	if !Contains(poly, orb.Point{0.5, 0.5}) {
		t.Fatalf("expected point in shell to be inside")
	}
}

func TestDegenerateRingIsInvalid(t *testing.T) {
	if ValidPolygon(orb.Polygon{orb.Ring{{0, 0}, {1, 1}, {0, 0}}}) {
		t.Fatalf("expected 3-point ring to be invalid")
	}
	if got := RingCenter(orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}}); got != (orb.Point{1, 1}) {
		t.Fatalf("expected (1,1), got %v", got)
	}
}
