// 包 survey：原始勘测数据（Overpass / OSM）的查询、抓取与解码
package survey

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"campus-nav/internal/failure"
)

// LatLon：Overpass `out geom` 的坐标对象
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p LatLon) Point() orb.Point { return orb.Point{p.Lon, p.Lat} }

// Member：关系成员（仅 way 成员携带几何）
type Member struct {
	Type     osm.Type `json:"type"`
	Ref      int64    `json:"ref"`
	Role     string   `json:"role"`
	Geometry []LatLon `json:"geometry,omitempty"`
}

// Element：Overpass 元素（node / way / relation）
type Element struct {
	Type     osm.Type `json:"type"`
	ID       int64    `json:"id"`
	Lat      float64  `json:"lat,omitempty"`
	Lon      float64  `json:"lon,omitempty"`
	Tags     osm.Tags `json:"tags,omitempty"`
	Geometry []LatLon `json:"geometry,omitempty"`
	Members  []Member `json:"members,omitempty"`
}

// Ref：日志与错误中使用的元素标识，如 way/123
func (e Element) Ref() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// Line：元素几何转折线 [lng, lat]
func (e Element) Line() orb.LineString {
	ls := make(orb.LineString, 0, len(e.Geometry))
	for _, p := range e.Geometry {
		ls = append(ls, p.Point())
	}
	return ls
}

type document struct {
	Elements *[]Element `json:"elements"`
	Remark   string     `json:"remark,omitempty"`
}

// DecodeJSON：解析 Overpass JSON
// 约束：缺少 elements 字段视为非良构响应（例如网关错误页或超时 remark）
func DecodeJSON(b []byte) ([]Element, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, &failure.MalformedError{Entity: "overpass json", Reason: err.Error()}
	}
	if doc.Elements == nil {
		reason := "missing elements"
		if doc.Remark != "" {
			reason += ": " + doc.Remark
		}
		return nil, &failure.MalformedError{Entity: "overpass json", Reason: reason}
	}
	return *doc.Elements, nil
}

// Decode：按内容首字符选择 JSON 或 XML 解码
func Decode(b []byte) ([]Element, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, &failure.MalformedError{Entity: "survey response", Reason: "empty body"}
	}
	if trimmed[0] == '<' {
		return DecodeXML(trimmed)
	}
	return DecodeJSON(trimmed)
}
