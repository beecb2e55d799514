// 包 route：路线分段（室外 / 室内）的标签变体与连续性检查
package route

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"campus-nav/internal/geom"
)

const (
	KindOutdoor = "outdoor"
	KindIndoor  = "indoor"
)

// Segment：路线分段；仅 Outdoor 与 Indoor 实现，消费方以类型 switch 穷举
type Segment interface {
	Kind() string
	Line() orb.LineString
	segment()
}

// Outdoor：室外步行折线
type Outdoor struct {
	Points orb.LineString
}

func (Outdoor) Kind() string           { return KindOutdoor }
func (o Outdoor) Line() orb.LineString { return o.Points }
func (Outdoor) segment()               {}

func (o Outdoor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string         `json:"type"`
		Points orb.LineString `json:"points"`
	}{KindOutdoor, o.Points})
}

// Indoor：单一楼层上的折线
type Indoor struct {
	Level  string
	Points orb.LineString
}

func (Indoor) Kind() string           { return KindIndoor }
func (i Indoor) Line() orb.LineString { return i.Points }
func (Indoor) segment()               {}

func (i Indoor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string         `json:"type"`
		Level  string         `json:"level"`
		Points orb.LineString `json:"points"`
	}{KindIndoor, i.Level, i.Points})
}

// Decode：按 type 判别字段还原分段列表
func Decode(b []byte) ([]Segment, error) {
	var raw []struct {
		Type   string         `json:"type"`
		Level  string         `json:"level"`
		Points orb.LineString `json:"points"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make([]Segment, 0, len(raw))
	for i, r := range raw {
		switch r.Type {
		case KindOutdoor:
			out = append(out, Outdoor{Points: r.Points})
		case KindIndoor:
			out = append(out, Indoor{Level: r.Level, Points: r.Points})
		default:
			return nil, fmt.Errorf("segment %d: unknown type %q", i, r.Type)
		}
	}
	return out, nil
}

// Discontinuity：返回首个不连续的相邻分段下标 i（segs[i] 末点 != segs[i+1] 首点）；连续时返回 -1
func Discontinuity(segs []Segment) int {
	for i := 0; i+1 < len(segs); i++ {
		a, b := segs[i].Line(), segs[i+1].Line()
		if len(a) == 0 || len(b) == 0 {
			return i
		}
		if !geom.SamePoint(a[len(a)-1], b[0]) {
			return i
		}
	}
	return -1
}

// Continuous：相邻分段首尾相接
func Continuous(segs []Segment) bool {
	return Discontinuity(segs) < 0
}
