package survey

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"campus-nav/internal/failure"
	"campus-nav/internal/geom"
	"campus-nav/internal/logger"
)

// Line：线状要素（走廊）
type Line struct {
	Ref    string
	Tags   osm.Tags
	Coords orb.LineString
}

// Point：点状要素（门、入口、楼梯、电梯）
type Point struct {
	Ref   string
	Tags  osm.Tags
	Coord orb.Point
}

// Polygon：面状要素（房间、楼宇）；闭合 way 或 multipolygon 关系
type Polygon struct {
	Ref  string
	Tags osm.Tags
	Poly orb.Polygon
}

// Lines：提取至少两个坐标的 way
func Lines(els []Element) []Line {
	var out []Line
	for _, e := range els {
		if e.Type != osm.TypeWay {
			continue
		}
		ls := e.Line()
		if len(ls) < 2 {
			logger.Component("survey").Warn("survey_entity_skipped", "ref", e.Ref(),
				"err", &failure.MalformedError{Entity: e.Ref(), Reason: "line with fewer than 2 coordinates"})
			continue
		}
		out = append(out, Line{Ref: e.Ref(), Tags: e.Tags, Coords: ls})
	}
	return out
}

// Points：提取 node 元素
func Points(els []Element) []Point {
	var out []Point
	for _, e := range els {
		if e.Type != osm.TypeNode {
			continue
		}
		out = append(out, Point{Ref: e.Ref(), Tags: e.Tags, Coord: orb.Point{e.Lon, e.Lat}})
	}
	return out
}

// Polygons：提取闭合 way 与 multipolygon 关系；外环不足 4 个坐标的面被跳过
func Polygons(els []Element) []Polygon {
	log := logger.Component("survey")
	var out []Polygon
	for _, e := range els {
		switch e.Type {
		case osm.TypeWay:
			ring := orb.Ring(e.Line())
			if !geom.ValidRing(ring) || !geom.SamePoint(ring[0], ring[len(ring)-1]) {
				log.Warn("survey_entity_skipped", "ref", e.Ref(),
					"err", &failure.MalformedError{Entity: e.Ref(), Reason: "open or degenerate ring"})
				continue
			}
			out = append(out, Polygon{Ref: e.Ref(), Tags: e.Tags, Poly: orb.Polygon{ring}})
		case osm.TypeRelation:
			polys, err := relationPolygons(e)
			if err != nil {
				log.Warn("survey_entity_skipped", "ref", e.Ref(), "err", err)
				continue
			}
			for _, p := range polys {
				out = append(out, Polygon{Ref: e.Ref(), Tags: e.Tags, Poly: p})
			}
		}
	}
	return out
}

// relationPolygons：拼接成员 way 为闭合环，内环归入首个包含它的外环
func relationPolygons(e Element) ([]orb.Polygon, error) {
	var outerParts, innerParts []orb.LineString
	for _, m := range e.Members {
		if m.Type != osm.TypeWay || len(m.Geometry) < 2 {
			continue
		}
		ls := make(orb.LineString, 0, len(m.Geometry))
		for _, p := range m.Geometry {
			ls = append(ls, p.Point())
		}
		if m.Role == "inner" {
			innerParts = append(innerParts, ls)
		} else {
			outerParts = append(outerParts, ls)
		}
	}
	outers := stitchRings(outerParts)
	if len(outers) == 0 {
		return nil, &failure.MalformedError{Entity: e.Ref(), Reason: "no closed outer ring"}
	}
	polys := make([]orb.Polygon, 0, len(outers))
	for _, r := range outers {
		polys = append(polys, orb.Polygon{r})
	}
	for _, inner := range stitchRings(innerParts) {
		for i := range polys {
			if geom.Contains(orb.Polygon{polys[i][0]}, inner[0]) {
				polys[i] = append(polys[i], inner)
				break
			}
		}
	}
	return polys, nil
}

// stitchRings：首尾相接地合并线段，直到闭合；无法闭合的部分丢弃
func stitchRings(parts []orb.LineString) []orb.Ring {
	used := make([]bool, len(parts))
	var rings []orb.Ring
	for i := range parts {
		if used[i] {
			continue
		}
		used[i] = true
		cur := append(orb.LineString(nil), parts[i]...)
		for !geom.SamePoint(cur[0], cur[len(cur)-1]) {
			extended := false
			for j := range parts {
				if used[j] {
					continue
				}
				p := parts[j]
				end := cur[len(cur)-1]
				switch {
				case geom.SamePoint(end, p[0]):
					cur = append(cur, p[1:]...)
				case geom.SamePoint(end, p[len(p)-1]):
					rev := append(orb.LineString(nil), p...)
					rev.Reverse()
					cur = append(cur, rev[1:]...)
				default:
					continue
				}
				used[j] = true
				extended = true
				break
			}
			if !extended {
				break
			}
		}
		ring := orb.Ring(cur)
		if geom.ValidRing(ring) && geom.SamePoint(ring[0], ring[len(ring)-1]) {
			rings = append(rings, ring)
		}
	}
	return rings
}
