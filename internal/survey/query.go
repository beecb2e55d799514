package survey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Dataset：构建流程需要的四类勘测数据，均为必需
type Dataset string

const (
	Corridors Dataset = "corridors"
	Portals   Dataset = "portals"
	Rooms     Dataset = "rooms"
	Buildings Dataset = "buildings"
)

// Datasets：按抓取顺序排列
var Datasets = []Dataset{Corridors, Portals, Rooms, Buildings}

type filter struct {
	typ   osm.Type
	key   string
	value string
}

func (f filter) clause(bbox string) string {
	if f.value == "" {
		return fmt.Sprintf("  %s[%q]%s;", f.typ, f.key, bbox)
	}
	return fmt.Sprintf("  %s[%q=%q]%s;", f.typ, f.key, f.value, bbox)
}

func (f filter) match(e Element) bool {
	if e.Type != f.typ {
		return false
	}
	v := e.Tags.Find(f.key)
	if f.value == "" {
		return v != ""
	}
	return v == f.value
}

var filters = map[Dataset][]filter{
	Corridors: {
		{osm.TypeWay, "indoor", "corridor"},
		{osm.TypeWay, "highway", "corridor"},
	},
	Portals: {
		{osm.TypeNode, "entrance", ""},
		{osm.TypeNode, "door", ""},
		{osm.TypeNode, "highway", "steps"},
		{osm.TypeNode, "elevator", "yes"},
		{osm.TypeNode, "amenity", "elevator"},
	},
	Rooms: {
		{osm.TypeWay, "indoor", "room"},
	},
	Buildings: {
		{osm.TypeWay, "building", ""},
		{osm.TypeRelation, "building", ""},
	},
}

var timeouts = map[Dataset]int{Corridors: 60, Portals: 60, Rooms: 25, Buildings: 30}

func coord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// BBoxClause：Overpass 包围盒 (south,west,north,east)
func BBoxClause(b orb.Bound) string {
	return "(" + coord(b.Min[1]) + "," + coord(b.Min[0]) + "," + coord(b.Max[1]) + "," + coord(b.Max[0]) + ")"
}

// Query：生成数据集的 Overpass QL；format 为 json 或 xml
func Query(ds Dataset, b orb.Bound, format string) string {
	if format != "xml" {
		format = "json"
	}
	bbox := BBoxClause(b)
	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:%s][timeout:%d];\n(\n", format, timeouts[ds])
	for _, f := range filters[ds] {
		sb.WriteString(f.clause(bbox))
		sb.WriteByte('\n')
	}
	sb.WriteString(");\nout geom tags;")
	return sb.String()
}

// Match：元素是否满足数据集过滤条件；用于本地文件等未经服务端过滤的来源
func Match(ds Dataset, e Element) bool {
	for _, f := range filters[ds] {
		if f.match(e) {
			return true
		}
	}
	return false
}

// Filter：保留满足数据集条件的元素
func Filter(ds Dataset, els []Element) []Element {
	out := els[:0:0]
	for _, e := range els {
		if Match(ds, e) {
			out = append(out, e)
		}
	}
	return out
}
