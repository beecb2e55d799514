package builder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"

	"campus-nav/internal/geom"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/survey"
)

// RoomShape：房间多边形及其标签（来自勘测数据或 rooms_polygons.json）
type RoomShape struct {
	Ref   string
	Name  string
	Level string
	Poly  orb.Polygon
}

// Key：按 ref 优先、name 其次匹配索引条目
func (s RoomShape) Key() string {
	if r := trim(s.Ref); r != "" {
		return r
	}
	return trim(s.Name)
}

// Levels：多边形的楼层列表，至少含一个
func (s RoomShape) Levels() []string {
	return LevelsOf("room "+s.Key(), osm.Tags{{Key: "level", Value: s.Level}})
}

func trim(s string) string { return strings.TrimSpace(s) }

func firstTag(tags osm.Tags, keys ...string) string {
	for _, k := range keys {
		if v := trim(tags.Find(k)); v != "" {
			return v
		}
	}
	return ""
}

// ShapesFromSurvey：房间面要素转换为 RoomShape
func ShapesFromSurvey(polys []survey.Polygon) []RoomShape {
	out := make([]RoomShape, 0, len(polys))
	for _, p := range polys {
		out = append(out, RoomShape{
			Ref:   trim(p.Tags.Find("ref")),
			Name:  trim(p.Tags.Find("name")),
			Level: firstTag(p.Tags, "level", "level:ref"),
			Poly:  p.Poly,
		})
	}
	return out
}

// BuildingName：name:en → name → building:name → ref → "Unknown"
func BuildingName(tags osm.Tags) string {
	if v := firstTag(tags, "name:en", "name", "building:name", "ref"); v != "" {
		return v
	}
	return "Unknown"
}

// IndexBuildings：每个楼宇元素取一个多边形，生成 名称/编号/质心 索引
func IndexBuildings(polys []survey.Polygon) []graph.Building {
	seen := make(map[string]bool)
	var out []graph.Building
	for _, p := range polys {
		if seen[p.Ref] || !geom.ValidPolygon(p.Poly) {
			continue
		}
		seen[p.Ref] = true
		out = append(out, graph.Building{
			Name:   BuildingName(p.Tags),
			Ref:    trim(p.Tags.Find("ref")),
			Center: geom.Centroid(p.Poly),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// IndexRooms：房间中心（外环顶点平均）归入第一个包含它的楼宇，无归属时记为 "Unknown"
// 约束：ref 与 name 均为空的房间被跳过；每栋楼内按自然序排列
func IndexRooms(shapes []RoomShape, buildings []survey.Polygon) graph.RoomIndex {
	type host struct {
		name string
		poly orb.Polygon
	}
	var hosts []host
	for _, b := range buildings {
		if geom.ValidPolygon(b.Poly) {
			hosts = append(hosts, host{name: BuildingName(b.Tags), poly: b.Poly})
		}
	}
	idx := graph.RoomIndex{}
	skipped := 0
	for _, s := range shapes {
		ref, name := trim(s.Ref), trim(s.Name)
		if ref == "" {
			ref = name
		}
		if name == "" {
			name = ref
		}
		if ref == "" || !geom.ValidPolygon(s.Poly) {
			skipped++
			continue
		}
		center := geom.RingCenter(s.Poly[0])
		owner := "Unknown"
		for _, h := range hosts {
			if geom.Contains(h.poly, center) {
				owner = h.name
				break
			}
		}
		idx[owner] = append(idx[owner], graph.IndexedRoom{Ref: ref, Name: name, Center: center})
	}
	for b := range idx {
		rooms := idx[b]
		sort.SliceStable(rooms, func(i, j int) bool { return NaturalLess(rooms[i].Ref, rooms[j].Ref) })
	}
	if skipped > 0 {
		logger.Component("builder").Warn("rooms_unlabelled_skipped", "count", skipped)
	}
	return idx
}

// NaturalLess：数字段按数值比较的字符串排序（"2.10" 排在 "2.9" 之后）
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = ra, rb
			continue
		}
		la, lb := unicode.ToLower(ca), unicode.ToLower(cb)
		if la != lb {
			return la < lb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// PolygonsGeoJSON：rooms_polygons.json
func PolygonsGeoJSON(shapes []RoomShape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		f := geojson.NewFeature(s.Poly)
		f.Properties["ref"] = s.Ref
		f.Properties["name"] = s.Name
		if s.Level != "" {
			f.Properties["level"] = s.Level
		}
		f.Properties["indoor"] = "room"
		fc.Append(f)
	}
	return fc
}

// CentersGeoJSON：rooms_centers.json，中心为外环顶点平均
func CentersGeoJSON(shapes []RoomShape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		if !geom.ValidPolygon(s.Poly) {
			continue
		}
		f := geojson.NewFeature(geom.RingCenter(s.Poly[0]))
		ref, name := s.Ref, s.Name
		if ref == "" {
			ref = name
		}
		if name == "" {
			name = ref
		}
		f.Properties["ref"] = ref
		f.Properties["name"] = name
		fc.Append(f)
	}
	return fc
}

// ShapesFromGeoJSON：读取既有 rooms_polygons.json；非面几何被跳过，MultiPolygon 取第一个面
func ShapesFromGeoJSON(b []byte) ([]RoomShape, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("decode room polygons: %w", err)
	}
	var out []RoomShape
	for _, f := range fc.Features {
		var poly orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			poly = g
		case orb.MultiPolygon:
			if len(g) > 0 {
				poly = g[0]
			}
		}
		if !geom.ValidPolygon(poly) {
			continue
		}
		level := prop(f.Properties, "level")
		if level == "" {
			level = prop(f.Properties, "level:ref")
		}
		out = append(out, RoomShape{
			Ref:   prop(f.Properties, "ref"),
			Name:  prop(f.Properties, "name"),
			Level: level,
			Poly:  poly,
		})
	}
	return out, nil
}

// prop：属性转字符串；数值型楼层与编号按原样格式化
func prop(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return trim(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return trim(fmt.Sprint(v))
	}
}
