package survey

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/paulmach/osm"

	"campus-nav/internal/failure"
)

func attrFloat(el *etree.Element, key string) (float64, bool) {
	a := el.SelectAttr(key)
	if a == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func attrInt(el *etree.Element, key string) int64 {
	v, _ := strconv.ParseInt(el.SelectAttrValue(key, "0"), 10, 64)
	return v
}

func xmlTags(el *etree.Element) osm.Tags {
	var tags osm.Tags
	for _, t := range el.SelectElements("tag") {
		tags = append(tags, osm.Tag{Key: t.SelectAttrValue("k", ""), Value: t.SelectAttrValue("v", "")})
	}
	return tags
}

// xmlGeometry：nd 上带 lat/lon（Overpass out geom）时直接使用，否则按 ref 查找文档内节点（原始 .osm 文件）
func xmlGeometry(el *etree.Element, nodes map[int64]LatLon) []LatLon {
	var out []LatLon
	for _, nd := range el.SelectElements("nd") {
		lat, ok1 := attrFloat(nd, "lat")
		lon, ok2 := attrFloat(nd, "lon")
		if ok1 && ok2 {
			out = append(out, LatLon{Lat: lat, Lon: lon})
			continue
		}
		if p, ok := nodes[attrInt(nd, "ref")]; ok {
			out = append(out, p)
		}
	}
	return out
}

// DecodeXML：解析 Overpass `[out:xml]` 输出或 OSM XML 文件
// 约束：根元素必须为 osm
func DecodeXML(b []byte) ([]Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, &failure.MalformedError{Entity: "osm xml", Reason: err.Error()}
	}
	root := doc.SelectElement("osm")
	if root == nil {
		return nil, &failure.MalformedError{Entity: "osm xml", Reason: "missing osm root"}
	}

	nodes := make(map[int64]LatLon)
	var out []Element
	for _, el := range root.SelectElements("node") {
		lat, ok1 := attrFloat(el, "lat")
		lon, ok2 := attrFloat(el, "lon")
		if !ok1 || !ok2 {
			continue
		}
		id := attrInt(el, "id")
		nodes[id] = LatLon{Lat: lat, Lon: lon}
		out = append(out, Element{Type: osm.TypeNode, ID: id, Lat: lat, Lon: lon, Tags: xmlTags(el)})
	}
	ways := make(map[int64][]LatLon)
	for _, el := range root.SelectElements("way") {
		id := attrInt(el, "id")
		geom := xmlGeometry(el, nodes)
		ways[id] = geom
		out = append(out, Element{Type: osm.TypeWay, ID: id, Tags: xmlTags(el), Geometry: geom})
	}
	for _, el := range root.SelectElements("relation") {
		rel := Element{Type: osm.TypeRelation, ID: attrInt(el, "id"), Tags: xmlTags(el)}
		for _, m := range el.SelectElements("member") {
			mem := Member{
				Type: osm.Type(m.SelectAttrValue("type", "")),
				Ref:  attrInt(m, "ref"),
				Role: m.SelectAttrValue("role", ""),
			}
			if mem.Type == osm.TypeWay {
				mem.Geometry = xmlGeometry(m, nodes)
				if len(mem.Geometry) == 0 {
					mem.Geometry = ways[mem.Ref]
				}
			}
			rel.Members = append(rel.Members, mem)
		}
		out = append(out, rel)
	}
	return out, nil
}
