package graph_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/osm"

	"campus-nav/internal/graph"
	"campus-nav/internal/graph/graphtest"
)

func TestFixtureIsValid(t *testing.T) {
	if err := graphtest.Fixture().Validate(); err != nil {
		t.Fatalf("fixture should validate: %v", err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	g := graphtest.Fixture()
	g.Edges = append(g.Edges, graph.Edge{From: "0:a", To: "9:x", W: -1})
	r := g.Rooms["R-A"]
	r.Level = "1"
	g.Rooms["R-A"] = r
	g.Entrances = append(g.Entrances, graph.Entrance{Node: "nope", Level: "0"})
	err := g.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"dangling to \"9:x\"", "negative weight", "room \"R-A\"", "entrance \"nope\""} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %s", want, msg)
		}
	}
}

func TestGraphJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(graphtest.Fixture()); err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"levels", "nodes", "edges", "rooms", "entrances"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("missing %q in asset", k)
		}
	}
	if !strings.Contains(string(raw["edges"]), `"w":6`) {
		t.Fatalf("expected edge weight field w, got %s", raw["edges"])
	}
	if strings.Contains(string(raw["rooms"]), `"node":""`) {
		t.Fatalf("unsnapped room should omit node: %s", raw["rooms"])
	}
}

func TestLoadRoundTripsAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indoor-graph.json")
	want := graphtest.Fixture()
	if err := graph.WriteJSON(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := graph.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Rooms, want.Rooms) || len(got.Edges) != len(want.Edges) {
		t.Fatalf("asset changed across save/load")
	}
	if !got.Nodes["0:c"].Tags.IsElevator() {
		t.Fatalf("expected elevator tag to survive")
	}
}

func TestSortLevels(t *testing.T) {
	levels := []string{"B", "1", "-1", "10", "2", "A"}
	graph.SortLevels(levels)
	want := []string{"-1", "1", "2", "10", "A", "B"}
	if !reflect.DeepEqual(levels, want) {
		t.Fatalf("got %v want %v", levels, want)
	}
}

func TestTagsAccessors(t *testing.T) {
	tags := graph.TagsFromOSM(osm.Tags{
		{Key: "highway", Value: "steps"},
		{Key: "level:ref", Value: "1;2"},
	})
	if !tags.IsStairs() || tags.IsElevator() || !tags.IsVertical() {
		t.Fatalf("unexpected classification %+v", tags)
	}
	if tags.Level != "1;2" {
		t.Fatalf("expected level:ref fallback, got %q", tags.Level)
	}
	if graph.TagsFromOSM(osm.Tags{{Key: "source", Value: "survey"}}) != nil {
		t.Fatalf("expected nil for irrelevant tags")
	}
	if (&graph.Tags{Door: "no"}).IsEntrance() {
		t.Fatalf("door=no is not an entrance")
	}
	for _, door := range []string{"hinged", "sliding", "revolving"} {
		if (&graph.Tags{Door: door}).IsEntrance() {
			t.Fatalf("door=%s is an interior door, not an entrance", door)
		}
	}
	merged := (&graph.Tags{Highway: "corridor"}).Merge(&graph.Tags{Highway: "steps", Door: "yes"})
	if merged.Highway != "corridor" || !merged.IsEntrance() {
		t.Fatalf("merge should keep existing values and fill gaps: %+v", merged)
	}
	var none *graph.Tags
	if got := none.Merge(&graph.Tags{Elevator: "yes"}); !got.IsElevator() {
		t.Fatalf("merge into nil should copy other")
	}
}

func TestStatsCountsUnsnappedRooms(t *testing.T) {
	s := graphtest.Fixture().Stats()
	if s.Rooms != 4 || s.Unsnapped != 1 || s.Levels != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
