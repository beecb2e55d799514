// 包 coordinator：面向调用方的路由入口，串联室外段与室内段并拼接为一条有序分段列表
// 约束：单次查询无跨请求状态；不在策略之间自动回退，各阶段错误原样向上返回
package coordinator

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"campus-nav/internal/failure"
	"campus-nav/internal/geom"
	"campus-nav/internal/graph"
	"campus-nav/internal/indoor"
	"campus-nav/internal/logger"
	"campus-nav/internal/metrics"
	"campus-nav/internal/outdoor"
	"campus-nav/internal/route"
)

// OutdoorRouter：室外路由能力；outdoor.Router 为默认实现
type OutdoorRouter interface {
	WalkingRoute(ctx context.Context, from, to orb.Point) (route.Outdoor, error)
	RouteOutdoorToOutdoor(ctx context.Context, from, to outdoor.Place) ([]route.Segment, error)
	ResolveBuilding(name string) (graph.Building, error)
}

// Coordinator：持有只读图句柄、室内路由器与 楼宇→编号→房间键 索引
type Coordinator struct {
	g      *graph.Graph
	indoor *indoor.Router
	out    OutdoorRouter
	rooms  map[string]map[string]string
}

func New(g *graph.Graph, out OutdoorRouter) *Coordinator {
	rooms := make(map[string]map[string]string)
	keys := make([]string, 0, len(g.Rooms))
	for k := range g.Rooms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := g.Rooms[k]
		if r.Building == "" || r.Ref == "" {
			continue
		}
		byRef := rooms[r.Building]
		if byRef == nil {
			byRef = make(map[string]string)
			rooms[r.Building] = byRef
		}
		if _, dup := byRef[r.Ref]; !dup {
			byRef[r.Ref] = k
		}
	}
	return &Coordinator{g: g, indoor: indoor.New(g), out: out, rooms: rooms}
}

// Indoor：底层室内路由器
func (c *Coordinator) Indoor() *indoor.Router { return c.indoor }

var roman = regexp.MustCompile(`(?i)^[IVXLCDM]+$`)

// BuildingLabel：纯罗马数字（如 "II"）展开为 "Building II"
func BuildingLabel(s string) string {
	s = strings.TrimSpace(s)
	if roman.MatchString(s) {
		return "Building " + strings.ToUpper(s)
	}
	return s
}

// RoomKeyFor：楼宇显示名 + 房间编号 → 房间键
func (c *Coordinator) RoomKeyFor(building, ref string) (string, error) {
	byRef, ok := c.rooms[building]
	if !ok {
		return "", &failure.UnresolvedError{Kind: failure.KindBuilding, ID: building, Reason: "no rooms indexed for building"}
	}
	key, ok := byRef[strings.TrimSpace(ref)]
	if !ok {
		return "", &failure.UnresolvedError{Kind: failure.KindRoom, ID: ref, Reason: "not found in building " + building}
	}
	return key, nil
}

// nearestEntrance：平方平面距离最近的入口（校园尺度下与大圆距离排序一致）
func (c *Coordinator) nearestEntrance(p orb.Point) (string, orb.Point, error) {
	best, bestD := "", math.Inf(1)
	var bestPt orb.Point
	for _, e := range c.g.Entrances {
		n, ok := c.g.Nodes[e.Node]
		if !ok {
			continue
		}
		if d := geom.SquaredPlanar(p, n.Point()); d < bestD {
			best, bestD, bestPt = e.Node, d, n.Point()
		}
	}
	if best == "" {
		return "", orb.Point{}, &failure.UnresolvedError{Kind: failure.KindEntrance, ID: "nearest", Reason: "graph has no entrances"}
	}
	return best, bestPt, nil
}

// stitch：室外段在前、室内段在后；室外折线末点与入口不重合时补上入口坐标
func stitch(outdoorSegs []route.Segment, entrance orb.Point, indoorSegs []route.Segment) []route.Segment {
	out := make([]route.Segment, 0, len(outdoorSegs)+len(indoorSegs))
	for i, s := range outdoorSegs {
		if o, ok := s.(route.Outdoor); ok && i == len(outdoorSegs)-1 {
			pts := o.Points
			if len(pts) == 0 || !geom.SamePoint(pts[len(pts)-1], entrance) {
				pts = append(append(orb.LineString(nil), pts...), entrance)
			}
			s = route.Outdoor{Points: pts}
		}
		out = append(out, s)
	}
	return append(out, indoorSegs...)
}

func lastPoint(segs []route.Segment) (orb.Point, error) {
	if len(segs) > 0 {
		if ls := segs[len(segs)-1].Line(); len(ls) > 0 {
			return ls[len(ls)-1], nil
		}
	}
	return orb.Point{}, &failure.ProviderError{Msg: "outdoor route has no coordinates"}
}

func (c *Coordinator) observe(op string, t0 time.Time, err error) {
	metrics.RouteRequestsTotal.WithLabelValues(op).Inc()
	metrics.RouteDurationMs.WithLabelValues(op).Observe(float64(time.Since(t0).Milliseconds()))
	log := logger.Component("coordinator")
	if err != nil {
		kind := failure.KindOf(err)
		metrics.RouteFailTotal.WithLabelValues(op, kind).Inc()
		log.Info("route_fail", "op", op, "kind", kind, "err", err)
		return
	}
	log.Debug("route_ok", "op", op, "duration_ms", time.Since(t0).Milliseconds())
}

// RouteGpsToRoom：当前位置 → 最近入口（室外）→ 房间（室内）
func (c *Coordinator) RouteGpsToRoom(ctx context.Context, gps orb.Point, roomKey string) (segs []route.Segment, err error) {
	defer func(t0 time.Time) { c.observe("gps_to_room", t0, err) }(time.Now())
	if _, err := c.indoor.Room(roomKey); err != nil {
		return nil, err
	}
	entID, entPt, err := c.nearestEntrance(gps)
	if err != nil {
		return nil, err
	}
	walk, err := c.out.WalkingRoute(ctx, gps, entPt)
	if err != nil {
		return nil, err
	}
	in, err := c.indoor.RouteEntranceToRoom(entID, roomKey)
	if err != nil {
		return nil, err
	}
	return stitch([]route.Segment{walk}, entPt, in), nil
}

// resolveBuilding：先按展开后的标签解析，失败时再尝试原始输入
func (c *Coordinator) resolveBuilding(name string) (graph.Building, error) {
	label := BuildingLabel(name)
	b, err := c.out.ResolveBuilding(label)
	if err != nil && label != strings.TrimSpace(name) {
		if b2, err2 := c.out.ResolveBuilding(name); err2 == nil {
			return b2, nil
		}
	}
	return b, err
}

// RouteGpsToBuildingRoom：当前位置 → 目标楼宇（室外）→ 距室外终点最近的入口 → 房间
func (c *Coordinator) RouteGpsToBuildingRoom(ctx context.Context, gps orb.Point, building, roomRef string) (segs []route.Segment, err error) {
	defer func(t0 time.Time) { c.observe("gps_to_building_room", t0, err) }(time.Now())
	b, err := c.resolveBuilding(building)
	if err != nil {
		return nil, err
	}
	key, err := c.RoomKeyFor(b.Name, roomRef)
	if err != nil {
		return nil, err
	}
	if _, err := c.indoor.Room(key); err != nil {
		return nil, err
	}
	walk, err := c.out.RouteOutdoorToOutdoor(ctx, outdoor.At(gps), outdoor.Named(b.Name))
	if err != nil {
		return nil, err
	}
	return c.enter(walk, key)
}

// enter：以室外终点选择入口并计算室内段
func (c *Coordinator) enter(walk []route.Segment, roomKey string) ([]route.Segment, error) {
	end, err := lastPoint(walk)
	if err != nil {
		return nil, err
	}
	entID, entPt, err := c.nearestEntrance(end)
	if err != nil {
		return nil, err
	}
	in, err := c.indoor.RouteEntranceToRoom(entID, roomKey)
	if err != nil {
		return nil, err
	}
	return stitch(walk, entPt, in), nil
}

// RouteRoomToRoom：纯室内
func (c *Coordinator) RouteRoomToRoom(_ context.Context, fromKey, toKey string) (segs []route.Segment, err error) {
	defer func(t0 time.Time) { c.observe("room_to_room", t0, err) }(time.Now())
	return c.indoor.RouteRoomToRoom(fromKey, toKey)
}

// RouteBuildingToRoom：楼宇 → 楼宇（室外）→ 房间；同一楼宇时跳过室外段，从距楼宇中心最近的入口进入
func (c *Coordinator) RouteBuildingToRoom(ctx context.Context, fromBuilding, toBuilding, roomRef string) (segs []route.Segment, err error) {
	defer func(t0 time.Time) { c.observe("building_to_room", t0, err) }(time.Now())
	from, err := c.resolveBuilding(fromBuilding)
	if err != nil {
		return nil, err
	}
	to, err := c.resolveBuilding(toBuilding)
	if err != nil {
		return nil, err
	}
	key, err := c.RoomKeyFor(to.Name, roomRef)
	if err != nil {
		return nil, err
	}
	if _, err := c.indoor.Room(key); err != nil {
		return nil, err
	}
	if from.Name == to.Name {
		entID, _, err := c.nearestEntrance(to.Center)
		if err != nil {
			return nil, err
		}
		return c.indoor.RouteEntranceToRoom(entID, key)
	}
	walk, err := c.out.RouteOutdoorToOutdoor(ctx, outdoor.Named(from.Name), outdoor.Named(to.Name))
	if err != nil {
		return nil, err
	}
	return c.enter(walk, key)
}

// RouteOutdoorToOutdoor：纯室外；楼宇名按罗马数字规则展开
func (c *Coordinator) RouteOutdoorToOutdoor(ctx context.Context, from, to outdoor.Place) (segs []route.Segment, err error) {
	defer func(t0 time.Time) { c.observe("outdoor_to_outdoor", t0, err) }(time.Now())
	expand := func(p outdoor.Place) (outdoor.Place, error) {
		if !p.IsNamed() {
			return p, nil
		}
		b, err := c.resolveBuilding(p.Name())
		if err != nil {
			return p, err
		}
		return outdoor.Named(b.Name), nil
	}
	if from, err = expand(from); err != nil {
		return nil, err
	}
	if to, err = expand(to); err != nil {
		return nil, err
	}
	return c.out.RouteOutdoorToOutdoor(ctx, from, to)
}
