package survey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"campus-nav/internal/failure"
)

const corridorsJSON = `{
  "version": 0.6,
  "elements": [
    {"type":"way","id":10,"tags":{"indoor":"corridor","level":"0;1"},
     "geometry":[{"lat":38.6600,"lon":-9.2050},{"lat":38.6601,"lon":-9.2050}]},
    {"type":"way","id":11,"tags":{"highway":"footway"},
     "geometry":[{"lat":38.6600,"lon":-9.2050},{"lat":38.6602,"lon":-9.2050}]}
  ]
}`

var campus = orb.Bound{Min: orb.Point{-9.207, 38.659}, Max: orb.Point{-9.203, 38.662}}

func TestDecodeJSON(t *testing.T) {
	els, err := Decode([]byte(corridorsJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 || els[0].Type != osm.TypeWay || els[0].ID != 10 {
		t.Fatalf("unexpected elements %+v", els)
	}
	if els[0].Tags.Find("level") != "0;1" {
		t.Fatalf("expected tags to decode, got %v", els[0].Tags)
	}
	line := els[0].Line()
	if line[0] != (orb.Point{-9.2050, 38.6600}) {
		t.Fatalf("expected [lng,lat] order, got %v", line[0])
	}
}

func TestDecodeRejectsResponseWithoutElements(t *testing.T) {
	_, err := Decode([]byte(`{"remark":"runtime error: Query timed out"}`))
	if !errors.Is(err, failure.ErrMalformed) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected malformed error carrying remark, got %v", err)
	}
	if _, err := Decode([]byte("  ")); !errors.Is(err, failure.ErrMalformed) {
		t.Fatalf("expected malformed for empty body, got %v", err)
	}
}

func TestDecodeOverpassXMLWithInlineGeometry(t *testing.T) {
	doc := `<?xml version="1.0"?>
<osm version="0.6">
  <node id="1" lat="38.66" lon="-9.205"><tag k="entrance" v="main"/></node>
  <way id="2">
    <nd ref="5" lat="38.66" lon="-9.205"/>
    <nd ref="6" lat="38.661" lon="-9.205"/>
    <tag k="indoor" v="corridor"/>
  </way>
</osm>`
	els, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(els))
	}
	if els[0].Tags.Find("entrance") != "main" || els[0].Lon != -9.205 {
		t.Fatalf("unexpected node %+v", els[0])
	}
	if len(els[1].Geometry) != 2 || els[1].Geometry[1].Lat != 38.661 {
		t.Fatalf("unexpected way geometry %+v", els[1].Geometry)
	}
}

func TestDecodeOSMFileResolvesNodeRefs(t *testing.T) {
	doc := `<osm>
  <node id="1" lat="0" lon="0"/>
  <node id="2" lat="0" lon="1"/>
  <node id="3" lat="1" lon="1"/>
  <way id="9"><nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="1"/><tag k="building" v="yes"/></way>
</osm>`
	els, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	polys := Polygons(Filter(Buildings, els))
	if len(polys) != 1 {
		t.Fatalf("expected 1 building polygon, got %d", len(polys))
	}
	if polys[0].Poly[0][1] != (orb.Point{1, 0}) {
		t.Fatalf("expected resolved node coordinate, got %v", polys[0].Poly[0][1])
	}
}

func TestDecodeXMLRequiresOSMRoot(t *testing.T) {
	if _, err := Decode([]byte(`<html><body>502</body></html>`)); !errors.Is(err, failure.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestPolygonsStitchMultipolygonRelation(t *testing.T) {
	ll := func(lon, lat float64) LatLon { return LatLon{Lat: lat, Lon: lon} }
	rel := Element{
		Type: osm.TypeRelation, ID: 7,
		Tags: osm.Tags{{Key: "building", Value: "university"}, {Key: "type", Value: "multipolygon"}},
		Members: []Member{
			{Type: osm.TypeWay, Ref: 1, Role: "outer", Geometry: []LatLon{ll(0, 0), ll(4, 0), ll(4, 4)}},
			{Type: osm.TypeWay, Ref: 2, Role: "outer", Geometry: []LatLon{ll(0, 0), ll(0, 4), ll(4, 4)}},
			{Type: osm.TypeWay, Ref: 3, Role: "inner", Geometry: []LatLon{ll(1, 1), ll(2, 1), ll(2, 2), ll(1, 1)}},
		},
	}
	polys := Polygons([]Element{rel})
	if len(polys) != 1 {
		t.Fatalf("expected one polygon, got %d", len(polys))
	}
	p := polys[0].Poly
	if len(p) != 2 {
		t.Fatalf("expected outer + inner ring, got %d rings", len(p))
	}
	if len(p[0]) != 5 || p[0][0] != p[0][len(p[0])-1] {
		t.Fatalf("expected closed 5-point outer ring, got %v", p[0])
	}
}

func TestPolygonsSkipOpenWays(t *testing.T) {
	open := Element{Type: osm.TypeWay, ID: 1, Geometry: []LatLon{{0, 0}, {0, 1}, {1, 1}, {1, 0}}}
	if got := Polygons([]Element{open}); len(got) != 0 {
		t.Fatalf("expected open way to be skipped, got %v", got)
	}
}

func TestQueryText(t *testing.T) {
	q := Query(Portals, campus, "json")
	if !strings.HasPrefix(q, "[out:json][timeout:60];") {
		t.Fatalf("unexpected header: %s", q)
	}
	for _, want := range []string{
		`node["entrance"](38.659,-9.207,38.662,-9.203);`,
		`node["amenity"="elevator"](38.659,-9.207,38.662,-9.203);`,
		"out geom tags;",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("expected %q in query:\n%s", want, q)
		}
	}
	if !strings.HasPrefix(Query(Rooms, campus, "xml"), "[out:xml][timeout:25];") {
		t.Fatalf("expected xml output directive")
	}
}

func TestClientFailsOverToNextEndpoint(t *testing.T) {
	var hits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusTooManyRequests)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.Contains(r.URL.Query().Get("data"), `way["indoor"="corridor"]`) {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(corridorsJSON))
	}))
	defer up.Close()

	c := NewClient(campus, down.URL, up.URL)
	els, err := c.Fetch(context.Background(), Corridors)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 || els[0].ID != 10 {
		t.Fatalf("expected only the corridor way after filtering, got %+v", els)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected each endpoint hit once, got %d", hits.Load())
	}
}

func TestClientAllEndpointsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer bad.Close()
	c := NewClient(campus, bad.URL, bad.URL)
	c.Parallel = true
	_, err := c.Fetch(context.Background(), Rooms)
	var fe *failure.FetchError
	if !errors.As(err, &fe) || fe.Dataset != "rooms" {
		t.Fatalf("expected FetchError for rooms, got %v", err)
	}
	if !errors.Is(err, failure.ErrDataFetch) {
		t.Fatalf("expected data fetch sentinel")
	}
}

func TestClientReadsFileCandidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "corridors.json"), []byte(corridorsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewClient(campus, "file://"+filepath.Join(dir, "missing.json"), "file://"+filepath.Join(dir, "{dataset}.json"))
	els, err := c.Fetch(context.Background(), Corridors)
	if err != nil {
		t.Fatal(err)
	}
	if len(Lines(els)) != 1 {
		t.Fatalf("expected one corridor line, got %d", len(Lines(els)))
	}
}
