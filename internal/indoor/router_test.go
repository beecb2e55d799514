package indoor

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph/graphtest"
	"campus-nav/internal/route"
)

func TestRoomToRoomAcrossElevator(t *testing.T) {
	r := New(graphtest.Fixture())
	segs, err := r.RouteRoomToRoom("R-A", "R-D")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segs))
	}
	first, ok := segs[0].(route.Indoor)
	if !ok || first.Level != "0" {
		t.Fatalf("expected first indoor segment on level 0, got %#v", segs[0])
	}
	last, ok := segs[len(segs)-1].(route.Indoor)
	if !ok || last.Level != "1" {
		t.Fatalf("expected last indoor segment on level 1, got %#v", segs[len(segs)-1])
	}
	if !route.Continuous(segs) {
		t.Fatalf("expected continuous segments, break at %d", route.Discontinuity(segs))
	}
}

func TestShortestPathToSelf(t *testing.T) {
	r := New(graphtest.Fixture())
	p := r.ShortestPath("0:b", "0:b")
	if !reflect.DeepEqual(p, []string{"0:b"}) {
		t.Fatalf("expected [0:b], got %v", p)
	}
	if segs := r.PathToSegments(p); len(segs) != 0 {
		t.Fatalf("expected zero segments, got %d", len(segs))
	}
}

func TestShortestPathOrderAndEndpoints(t *testing.T) {
	r := New(graphtest.Fixture())
	want := []string{"0:a", "0:b", "0:c", "1:c", "1:d"}
	if got := r.ShortestPath("0:a", "1:d"); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestShortestPathIsSymmetric(t *testing.T) {
	r := New(graphtest.Fixture())
	ids := []string{"0:a", "0:b", "0:c", "1:c", "1:d"}
	for _, a := range ids {
		for _, b := range ids {
			ab, ok1 := r.Distance(a, b)
			ba, ok2 := r.Distance(b, a)
			if !ok1 || !ok2 {
				t.Fatalf("expected %s<->%s reachable", a, b)
			}
			if math.Abs(ab-ba) > 1e-9 {
				t.Fatalf("asymmetric distance %s->%s=%f, back=%f", a, b, ab, ba)
			}
		}
	}
}

func TestDisconnectedYieldsEmptyPath(t *testing.T) {
	r := New(graphtest.Fixture())
	if p := r.ShortestPath("0:a", "0:z"); len(p) != 0 {
		t.Fatalf("expected empty path, got %v", p)
	}
	if p := r.ShortestPath("0:a", "missing"); len(p) != 0 {
		t.Fatalf("expected empty path for unknown node, got %v", p)
	}
	if p := r.ShortestPath("missing", "0:a"); len(p) != 0 {
		t.Fatalf("expected empty path for unknown origin, got %v", p)
	}
}

func TestRouteBetweenDisconnectedRoomsIsNoPath(t *testing.T) {
	r := New(graphtest.Fixture())
	_, err := r.RouteRoomToRoom("R-A", "R-Z")
	var np *failure.NoPathError
	if !errors.As(err, &np) {
		t.Fatalf("expected NoPathError, got %v", err)
	}
	if np.From != "0:b" || np.To != "0:z" {
		t.Fatalf("unexpected endpoints %+v", np)
	}
}

func TestUnknownRoomIsUnresolved(t *testing.T) {
	r := New(graphtest.Fixture())
	_, err := r.RouteRoomToRoom("R-A", "NOPE")
	if !errors.Is(err, failure.ErrUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
	var ue *failure.UnresolvedError
	if !errors.As(err, &ue) || ue.ID != "NOPE" || ue.Kind != failure.KindRoom {
		t.Fatalf("expected room NOPE in error, got %v", err)
	}
}

func TestUnsnappedRoomIsRejectedAtQueryTime(t *testing.T) {
	r := New(graphtest.Fixture())
	_, err := r.RouteEntranceToRoom("0:a", "R-U")
	if !errors.Is(err, failure.ErrUnresolved) {
		t.Fatalf("expected unresolved for unsnapped room, got %v", err)
	}
}

func TestEntranceToRoom(t *testing.T) {
	r := New(graphtest.Fixture())
	segs, err := r.RouteEntranceToRoom("0:a", "R-D")
	if err != nil {
		t.Fatal(err)
	}
	last := segs[len(segs)-1].(route.Indoor)
	if last.Level != "1" {
		t.Fatalf("expected to end on level 1, got %s", last.Level)
	}
	if _, err := r.RouteEntranceToRoom("9:x", "R-D"); !errors.Is(err, failure.ErrUnresolved) {
		t.Fatalf("expected unresolved entrance, got %v", err)
	}
}

func TestPathToSegmentsSeedsLevelChangeWithPreviousNode(t *testing.T) {
	r := New(graphtest.Fixture())
	segs := r.PathToSegments([]string{"0:b", "0:c", "1:c", "1:d"})
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	upper := segs[1].(route.Indoor)
	g := graphtest.Fixture()
	if upper.Points[0] != g.Nodes["0:c"].Point() {
		t.Fatalf("expected level-1 segment to start at previous node, got %v", upper.Points[0])
	}
}
