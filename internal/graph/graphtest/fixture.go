// 包 graphtest：测试用的两层小图
package graphtest

import (
	"github.com/paulmach/orb"

	"campus-nav/internal/graph"
)

// Building：夹具中房间所属楼宇
const Building = "Building II"

// Fixture 返回两层图：
//
//	level 0: 0:a(入口) - 0:b - 0:c(电梯)
//	level 1:                   1:c(电梯) - 1:d
//
// R-A 吸附在 0:b，R-D 吸附在 1:d（仅经电梯可达），R-Z 吸附在孤立节点 0:z，R-U 未吸附
func Fixture() *graph.Graph {
	elev := &graph.Tags{Elevator: "yes"}
	g := graph.New()
	g.Levels = []string{"0", "1"}
	g.Nodes["0:a"] = graph.Node{Lng: 0.0001, Lat: 0.0001, Level: "0", Tags: &graph.Tags{Entrance: "yes"}}
	g.Nodes["0:b"] = graph.Node{Lng: 0.0002, Lat: 0.0001, Level: "0"}
	g.Nodes["0:c"] = graph.Node{Lng: 0.0003, Lat: 0.0001, Level: "0", Tags: elev}
	g.Nodes["1:c"] = graph.Node{Lng: 0.0003, Lat: 0.0001, Level: "1", Tags: elev}
	g.Nodes["1:d"] = graph.Node{Lng: 0.0004, Lat: 0.0001, Level: "1"}
	g.Nodes["0:z"] = graph.Node{Lng: 0.0010, Lat: 0.0010, Level: "0"}

	link := func(a, b, typ string, w float64) {
		g.Edges = append(g.Edges,
			graph.Edge{From: a, To: b, W: w, Type: typ},
			graph.Edge{From: b, To: a, W: w, Type: typ},
		)
	}
	link("0:a", "0:b", graph.EdgeCorridor, 11.1)
	link("0:b", "0:c", graph.EdgeCorridor, 11.1)
	link("1:c", "1:d", graph.EdgeCorridor, 11.1)
	link("0:c", "1:c", graph.EdgeElevator, 6)

	g.Rooms["R-A"] = graph.Room{Node: "0:b", Level: "0", Center: orb.Point{0.0002, 0.00012}, Building: Building, Ref: "R-A"}
	g.Rooms["R-D"] = graph.Room{Node: "1:d", Level: "1", Center: orb.Point{0.0004, 0.00012}, Building: Building, Ref: "R-D"}
	g.Rooms["R-Z"] = graph.Room{Node: "0:z", Level: "0", Center: orb.Point{0.0010, 0.0010}, Building: Building, Ref: "R-Z"}
	g.Rooms["R-U"] = graph.Room{Level: "2", Center: orb.Point{0.0005, 0.0001}, Building: Building, Ref: "R-U"}

	g.Entrances = []graph.Entrance{{Node: "0:a", Level: "0"}}
	return g
}

// Buildings 返回与夹具配套的楼宇索引
func Buildings() []graph.Building {
	return []graph.Building{
		{Name: Building, Ref: "II", Center: orb.Point{0.0002, 0.0001}},
		{Name: "Building VII", Ref: "VII", Center: orb.Point{0.002, 0.002}},
	}
}
