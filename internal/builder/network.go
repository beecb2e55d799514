package builder

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/paulmach/orb"

	"campus-nav/internal/failure"
	"campus-nav/internal/geom"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/survey"
)

// Network：构建期的可变图；各阶段依次写入，最终由 Graph 固化为只读资产
type Network struct {
	cfg       Config
	nodes     map[string]graph.Node
	index     map[string]string
	seq       int
	levels    map[string]bool
	edges     []graph.Edge
	entrances []graph.Entrance
	entrySeen map[string]bool
}

func NewNetwork(cfg Config) *Network {
	return &Network{
		cfg:       cfg.withDefaults(),
		nodes:     make(map[string]graph.Node),
		index:     make(map[string]string),
		levels:    make(map[string]bool),
		entrySeen: make(map[string]bool),
	}
}

// ensure：按 楼层+坐标键 去重；命中已有节点时合并标签
func (n *Network) ensure(level string, p orb.Point, tags *graph.Tags) string {
	key := level + "|" + geom.CoordKey(p)
	n.levels[level] = true
	if id, ok := n.index[key]; ok {
		if !tags.Empty() {
			node := n.nodes[id]
			node.Tags = node.Tags.Merge(tags)
			n.nodes[id] = node
		}
		return id
	}
	n.seq++
	id := fmt.Sprintf("%s:n%d", level, n.seq)
	n.nodes[id] = graph.Node{Lng: p[0], Lat: p[1], Level: level, Tags: tags}
	n.index[key] = id
	return id
}

func (n *Network) link(a, b string, w float64, typ string) {
	n.edges = append(n.edges,
		graph.Edge{From: a, To: b, W: w, Type: typ},
		graph.Edge{From: b, To: a, W: w, Type: typ},
	)
}

// BuildCorridors：每条走廊在其每个楼层实例化；相邻坐标对插入双向边，权重为大圆距离
func (n *Network) BuildCorridors(lines []survey.Line) {
	for _, l := range lines {
		for _, lvl := range LevelsOf(l.Ref, l.Tags) {
			for i := 0; i+1 < len(l.Coords); i++ {
				a := n.ensure(lvl, l.Coords[i], nil)
				b := n.ensure(lvl, l.Coords[i+1], nil)
				if a == b {
					continue
				}
				n.link(a, b, geom.Haversine(l.Coords[i], l.Coords[i+1]), graph.EdgeCorridor)
			}
		}
	}
}

// ExtractEntrances：门、入口、楼梯、电梯点位写入为节点（每个标注楼层各一份）；入口与外门同时登记到入口列表
func (n *Network) ExtractEntrances(points []survey.Point) {
	for _, p := range points {
		tags := graph.TagsFromOSM(p.Tags)
		for _, lvl := range LevelsOf(p.Ref, p.Tags) {
			id := n.ensure(lvl, p.Coord, tags)
			if tags.IsEntrance() && !n.entrySeen[id] {
				n.entrySeen[id] = true
				n.entrances = append(n.entrances, graph.Entrance{Node: id, Level: lvl})
			}
		}
	}
}

type member struct {
	id    string
	level float64
}

// ConnectVertical：电梯、楼梯按 类型+坐标键 分组（忽略楼层），组内按数值楼层排序后相邻层相连
// 约束：权重为 max(MinVerticalPenalty, |Δ|*PerLevelPenalty)；非数值楼层的成员被跳过
func (n *Network) ConnectVertical() {
	log := logger.Component("builder")
	groups := make(map[string][]member)
	kinds := make(map[string]string)
	for _, id := range n.sortedIDs() {
		node := n.nodes[id]
		if !node.Tags.IsVertical() {
			continue
		}
		kind := graph.EdgeSteps
		if node.Tags.IsElevator() {
			kind = graph.EdgeElevator
		}
		lv, err := strconv.ParseFloat(node.Level, 64)
		if err != nil {
			log.Warn("vertical_member_skipped", "node", id,
				"err", &failure.MalformedError{Entity: "connector " + id, Reason: "non-numeric level " + strconv.Quote(node.Level)})
			continue
		}
		key := kind + "|" + geom.CoordKey(node.Point())
		groups[key] = append(groups[key], member{id: id, level: lv})
		kinds[key] = kind
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		list := groups[k]
		if len(list) < 2 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].level < list[j].level })
		for i := 0; i+1 < len(list); i++ {
			a, b := list[i], list[i+1]
			n.link(a.id, b.id, n.cfg.verticalPenalty(a.level, b.level), kinds[k])
		}
	}
}

func (c Config) verticalPenalty(a, b float64) float64 {
	return math.Max(c.MinVerticalPenalty, math.Abs(a-b)*c.PerLevelPenalty)
}

func (n *Network) sortedIDs() []string {
	ids := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// nearest：同楼层最近节点（大圆距离，暴力搜索）；楼层无节点时返回空
func (n *Network) nearest(level string, p orb.Point, byLevel map[string][]string) string {
	best, bestD := "", math.Inf(1)
	for _, id := range byLevel[level] {
		if d := geom.Haversine(p, n.nodes[id].Point()); d < bestD {
			best, bestD = id, d
		}
	}
	return best
}

// SnapRooms：按房间源索引吸附房间
// 约束：有多边形时以其内部点为代表点、以其楼层标签为楼层；同楼层无节点的房间保留但不吸附
func (n *Network) SnapRooms(idx graph.RoomIndex, shapes []RoomShape) map[string]graph.Room {
	log := logger.Component("builder")
	byLevel := make(map[string][]string)
	for _, id := range n.sortedIDs() {
		lvl := n.nodes[id].Level
		byLevel[lvl] = append(byLevel[lvl], id)
	}
	byRef := make(map[string][]RoomShape)
	for _, s := range shapes {
		if k := s.Key(); k != "" && geom.ValidPolygon(s.Poly) {
			byRef[k] = append(byRef[k], s)
		}
	}

	rooms := make(map[string]graph.Room)
	buildings := make([]string, 0, len(idx))
	for b := range idx {
		buildings = append(buildings, b)
	}
	sort.Strings(buildings)
	for _, b := range buildings {
		for _, entry := range idx[b] {
			ref := trim(entry.Ref)
			if ref == "" {
				log.Warn("room_skipped", "building", b, "reason", "empty ref")
				continue
			}
			key := graph.RoomKey(b, ref)
			if _, dup := rooms[key]; dup {
				log.Warn("room_skipped", "room", key, "reason", "duplicate key")
				continue
			}
			center := entry.Center
			level := graph.DefaultLevel
			if s, ok := closestShape(byRef[ref], entry.Center); ok {
				center = geom.InteriorPoint(s.Poly)
				level = s.Levels()[0]
			}
			n.levels[level] = true
			room := graph.Room{
				Node:     n.nearest(level, center, byLevel),
				Level:    level,
				Center:   center,
				Building: b,
				Ref:      ref,
			}
			if !room.Snapped() {
				log.Warn("room_unsnapped", "room", key, "level", level)
			}
			rooms[key] = room
		}
	}
	return rooms
}

// closestShape：同名多边形可能分布在多栋楼中，取代表点离索引中心最近者
func closestShape(cands []RoomShape, center orb.Point) (RoomShape, bool) {
	if len(cands) == 0 {
		return RoomShape{}, false
	}
	best := 0
	if len(cands) > 1 {
		bestD := math.Inf(1)
		for i, s := range cands {
			if d := geom.Haversine(center, geom.RingCenter(s.Poly[0])); d < bestD {
				best, bestD = i, d
			}
		}
	}
	return cands[best], true
}

// Graph：固化当前网络与房间为图资产
func (n *Network) Graph(rooms map[string]graph.Room) *graph.Graph {
	g := graph.New()
	for id, node := range n.nodes {
		g.Nodes[id] = node
	}
	g.Edges = append(g.Edges, n.edges...)
	g.Entrances = append(g.Entrances, n.entrances...)
	for k, r := range rooms {
		g.Rooms[k] = r
		n.levels[r.Level] = true
	}
	for l := range n.levels {
		g.Levels = append(g.Levels, l)
	}
	graph.SortLevels(g.Levels)
	return g
}
