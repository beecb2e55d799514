package route

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestSegmentJSONCarriesDiscriminator(t *testing.T) {
	segs := []Segment{
		Outdoor{Points: orb.LineString{{0, 0}, {1, 1}}},
		Indoor{Level: "1", Points: orb.LineString{{1, 1}, {2, 2}}},
	}
	b, err := json.Marshal(segs)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"type":"outdoor"`) || !strings.Contains(s, `"type":"indoor","level":"1"`) {
		t.Fatalf("unexpected encoding %s", s)
	}
	back, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	in, ok := back[1].(Indoor)
	if !ok || in.Level != "1" || len(in.Points) != 2 {
		t.Fatalf("unexpected decode %#v", back)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`[{"type":"teleport","points":[]}]`)); err == nil {
		t.Fatalf("expected error for unknown segment type")
	}
}

func TestDiscontinuity(t *testing.T) {
	segs := []Segment{
		Outdoor{Points: orb.LineString{{0, 0}, {1, 1}}},
		Indoor{Level: "0", Points: orb.LineString{{1, 1}, {2, 2}}},
		Indoor{Level: "1", Points: orb.LineString{{2.5, 2}, {3, 3}}},
	}
	if got := Discontinuity(segs); got != 1 {
		t.Fatalf("expected break after segment 1, got %d", got)
	}
	if !Continuous(segs[:2]) {
		t.Fatalf("expected first two segments to be continuous")
	}
	if !Continuous(nil) {
		t.Fatalf("empty route is trivially continuous")
	}
}
