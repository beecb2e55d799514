// 包 graph：室内导航图的数据模型（节点、边、房间、入口、楼层）与楼宇索引
// 约束：构建完成后只读，查询期可被并发读取而无需加锁
package graph

import (
	"sort"
	"strconv"

	"github.com/paulmach/orb"
)

// 边类型
const (
	EdgeCorridor = "corridor"
	EdgeElevator = "elevator"
	EdgeSteps    = "highway-steps"
)

// DefaultLevel：缺省或无法解析的楼层
const DefaultLevel = "0"

// Node：图节点；ID 为 Graph.Nodes 的键
type Node struct {
	Lng   float64 `json:"lng"`
	Lat   float64 `json:"lat"`
	Level string  `json:"level"`
	Tags  *Tags   `json:"tags,omitempty"`
}

// Point：节点坐标 [lng, lat]
func (n Node) Point() orb.Point { return orb.Point{n.Lng, n.Lat} }

// Edge：有向带权边；走廊段总是成对插入
type Edge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	W    float64 `json:"w"`
	Type string  `json:"type,omitempty"`
}

// Room：吸附后的房间；Node 为空表示该楼层无可吸附节点，查询期拒绝
type Room struct {
	Node     string    `json:"node,omitempty"`
	Level    string    `json:"level"`
	Center   orb.Point `json:"center"`
	Building string    `json:"building,omitempty"`
	Ref      string    `json:"ref,omitempty"`
}

// Snapped：房间是否已关联图节点
func (r Room) Snapped() bool { return r.Node != "" }

// Entrance：室内外转换点
type Entrance struct {
	Node  string `json:"node"`
	Level string `json:"level"`
}

// Graph：持久化的图资产
type Graph struct {
	Levels    []string        `json:"levels"`
	Nodes     map[string]Node `json:"nodes"`
	Edges     []Edge          `json:"edges"`
	Rooms     map[string]Room `json:"rooms"`
	Entrances []Entrance      `json:"entrances"`
}

// New：空图
func New() *Graph {
	return &Graph{
		Nodes: make(map[string]Node),
		Rooms: make(map[string]Room),
	}
}

// Building：楼宇索引条目
type Building struct {
	Name   string    `json:"name"`
	Ref    string    `json:"ref,omitempty"`
	Center orb.Point `json:"center"`
}

// IndexedRoom：房间源索引条目（楼宇名 → 房间列表）
type IndexedRoom struct {
	Ref    string    `json:"ref"`
	Name   string    `json:"name,omitempty"`
	Center orb.Point `json:"center"`
}

// RoomIndex：楼宇显示名到房间列表
type RoomIndex map[string][]IndexedRoom

// RoomKey：房间稳定键，楼宇与编号组合保证唯一
func RoomKey(building, ref string) string {
	return building + "|" + ref
}

// SortLevels：数值楼层按数值升序在前，其余按字典序在后
func SortLevels(levels []string) {
	sort.SliceStable(levels, func(i, j int) bool {
		a, errA := strconv.ParseFloat(levels[i], 64)
		b, errB := strconv.ParseFloat(levels[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return levels[i] < levels[j]
	})
}

// Stats：图规模摘要
type Stats struct {
	Levels    int `json:"levels"`
	Nodes     int `json:"nodes"`
	Edges     int `json:"edges"`
	Rooms     int `json:"rooms"`
	Unsnapped int `json:"unsnapped_rooms"`
	Entrances int `json:"entrances"`
}

func (g *Graph) Stats() Stats {
	s := Stats{
		Levels:    len(g.Levels),
		Nodes:     len(g.Nodes),
		Edges:     len(g.Edges),
		Rooms:     len(g.Rooms),
		Entrances: len(g.Entrances),
	}
	for _, r := range g.Rooms {
		if !r.Snapped() {
			s.Unsnapped++
		}
	}
	return s
}
