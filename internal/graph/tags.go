package graph

import (
	"strings"

	"github.com/paulmach/osm"
)

// Tags：节点上保留的勘测属性；以具名字段代替开放字典，竖向连接判定通过方法完成
type Tags struct {
	Entrance string `json:"entrance,omitempty"`
	Door     string `json:"door,omitempty"`
	Highway  string `json:"highway,omitempty"`
	Elevator string `json:"elevator,omitempty"`
	Amenity  string `json:"amenity,omitempty"`
	Indoor   string `json:"indoor,omitempty"`
	Level    string `json:"level,omitempty"`
	Name     string `json:"name,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

// TagsFromOSM：从原始标签集合中提取关心的字段；无有效字段时返回 nil
func TagsFromOSM(src osm.Tags) *Tags {
	t := &Tags{
		Entrance: src.Find("entrance"),
		Door:     src.Find("door"),
		Highway:  src.Find("highway"),
		Elevator: src.Find("elevator"),
		Amenity:  src.Find("amenity"),
		Indoor:   src.Find("indoor"),
		Level:    src.Find("level"),
		Name:     src.Find("name"),
		Ref:      src.Find("ref"),
	}
	if t.Level == "" {
		t.Level = src.Find("level:ref")
	}
	if t.Empty() {
		return nil
	}
	return t
}

func (t *Tags) Empty() bool {
	return t == nil || *t == Tags{}
}

// IsElevator：elevator=yes 或 amenity=elevator（highway=elevator 同样视为电梯）
func (t *Tags) IsElevator() bool {
	if t == nil {
		return false
	}
	return strings.EqualFold(t.Elevator, "yes") || t.Amenity == "elevator" || t.Highway == "elevator"
}

// IsStairs：highway=steps
func (t *Tags) IsStairs() bool {
	return t != nil && t.Highway == "steps"
}

// IsVertical：电梯或楼梯
func (t *Tags) IsVertical() bool {
	return t.IsElevator() || t.IsStairs()
}

// IsEntrance：entrance 标签（值为 no 时除外）或 door=yes；室内门（hinged、sliding 等）不算入口
func (t *Tags) IsEntrance() bool {
	if t == nil {
		return false
	}
	return (t.Entrance != "" && t.Entrance != "no") || t.Door == "yes"
}

// Merge：以 other 的非空字段补全当前标签，已有值保持不变
func (t *Tags) Merge(other *Tags) *Tags {
	if other.Empty() {
		return t
	}
	if t == nil {
		c := *other
		return &c
	}
	m := *t
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&m.Entrance, other.Entrance)
	fill(&m.Door, other.Door)
	fill(&m.Highway, other.Highway)
	fill(&m.Elevator, other.Elevator)
	fill(&m.Amenity, other.Amenity)
	fill(&m.Indoor, other.Indoor)
	fill(&m.Level, other.Level)
	fill(&m.Name, other.Name)
	fill(&m.Ref, other.Ref)
	return &m
}
