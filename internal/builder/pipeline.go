package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/survey"
)

// 默认竖向惩罚（米）
const (
	DefaultMinVerticalPenalty = 4
	DefaultPerLevelPenalty    = 6
)

// 输出文件名
const (
	GraphFile         = "indoor-graph.json"
	BuildingsFile     = "buildings_index.json"
	RoomsIndexFile    = "rooms_index.json"
	RoomsPolygonsFile = "rooms_polygons.json"
	RoomsCentersFile  = "rooms_centers.json"
)

// Config：构建参数
// RoomIndex / RoomShapes 非空时直接使用，不再由 rooms 数据集推导
type Config struct {
	MinVerticalPenalty float64
	PerLevelPenalty    float64
	RoomIndex          graph.RoomIndex
	RoomShapes         []RoomShape
}

func (c Config) withDefaults() Config {
	if c.MinVerticalPenalty <= 0 {
		c.MinVerticalPenalty = DefaultMinVerticalPenalty
	}
	if c.PerLevelPenalty <= 0 {
		c.PerLevelPenalty = DefaultPerLevelPenalty
	}
	return c
}

// Source：勘测数据来源；survey.Client 为默认实现
type Source interface {
	Fetch(ctx context.Context, ds survey.Dataset) ([]survey.Element, error)
}

// Result：一次构建的全部产物
type Result struct {
	Graph      *graph.Graph
	Buildings  []graph.Building
	RoomIndex  graph.RoomIndex
	RoomShapes []RoomShape
}

// 文档注释：执行完整构建流程
// 约束：任一必需数据集抓取失败即中止且不产生部分结果；单个实体的问题仅记录告警并跳过
func Run(ctx context.Context, cfg Config, src Source) (*Result, error) {
	log := logger.Component("builder")
	t0 := time.Now()
	cfg = cfg.withDefaults()

	corridors, err := src.Fetch(ctx, survey.Corridors)
	if err != nil {
		return nil, fmt.Errorf("fetch corridors: %w", err)
	}
	portals, err := src.Fetch(ctx, survey.Portals)
	if err != nil {
		return nil, fmt.Errorf("fetch portals: %w", err)
	}
	shapes := cfg.RoomShapes
	if len(shapes) == 0 {
		rooms, err := src.Fetch(ctx, survey.Rooms)
		if err != nil {
			return nil, fmt.Errorf("fetch rooms: %w", err)
		}
		shapes = ShapesFromSurvey(survey.Polygons(rooms))
	}
	buildingEls, err := src.Fetch(ctx, survey.Buildings)
	if err != nil {
		return nil, fmt.Errorf("fetch buildings: %w", err)
	}
	buildingPolys := survey.Polygons(buildingEls)

	lines := survey.Lines(corridors)
	points := survey.Points(portals)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Ref < lines[j].Ref })
	sort.SliceStable(points, func(i, j int) bool { return points[i].Ref < points[j].Ref })
	sort.SliceStable(shapes, func(i, j int) bool { return NaturalLess(shapes[i].Key(), shapes[j].Key()) })
	sort.SliceStable(buildingPolys, func(i, j int) bool { return buildingPolys[i].Ref < buildingPolys[j].Ref })

	idx := cfg.RoomIndex
	if idx == nil {
		idx = IndexRooms(shapes, buildingPolys)
	}

	net := NewNetwork(cfg)
	net.BuildCorridors(lines)
	net.ExtractEntrances(points)
	net.ConnectVertical()
	rooms := net.SnapRooms(idx, shapes)
	g := net.Graph(rooms)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("built graph is inconsistent: %w", err)
	}

	res := &Result{
		Graph:      g,
		Buildings:  IndexBuildings(buildingPolys),
		RoomIndex:  idx,
		RoomShapes: shapes,
	}
	st := g.Stats()
	log.Info("graph_build_ok",
		"levels", st.Levels,
		"nodes", st.Nodes,
		"edges", st.Edges,
		"rooms", st.Rooms,
		"unsnapped_rooms", st.Unsnapped,
		"entrances", st.Entrances,
		"buildings", len(res.Buildings),
		"duration_ms", time.Since(t0).Milliseconds(),
	)
	return res, nil
}

// Write：写出图资产与各索引文件
func (r *Result) Write(dir string) error {
	files := []struct {
		name string
		v    any
	}{
		{GraphFile, r.Graph},
		{BuildingsFile, r.Buildings},
		{RoomsIndexFile, r.RoomIndex},
		{RoomsPolygonsFile, PolygonsGeoJSON(r.RoomShapes)},
		{RoomsCentersFile, CentersGeoJSON(r.RoomShapes)},
	}
	for _, f := range files {
		if err := graph.WriteJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	logger.Component("builder").Info("graph_assets_written", "dir", dir, "files", len(files))
	return nil
}
