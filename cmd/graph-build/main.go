// graph-build：离线构建室内路由图；抓取勘测数据，写出 JSON 资产，可选发布到 PostgreSQL
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"campus-nav/internal/builder"
	"campus-nav/internal/geom"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/migrate"
	"campus-nav/internal/store"
	"campus-nav/internal/survey"
	"campus-nav/internal/utils"
)

// defaultBBox：west,south,east,north
const defaultBBox = "-9.207,38.659,-9.203,38.662"

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph-build",
		Short: "Build the indoor navigation graph from survey data",
		Long: `graph-build fetches corridors, portals, rooms and building outlines
from Overpass endpoints (or local .osm/.json files), derives the multi-level
indoor graph and writes indoor-graph.json plus the room and building indices.`,
		SilenceUsage: true,
		RunE:         runBuild,
	}
	f := cmd.Flags()
	f.String("out-dir", "data", "Directory receiving the generated assets")
	f.String("bbox", envOr("CAMPUS_BBOX", defaultBBox), "Survey bounding box: west,south,east,north")
	f.Float64("pad", 0.0003, "Bounding box padding in degrees")
	f.StringSlice("endpoint", splitEnv("OVERPASS_ENDPOINTS"), "Overpass endpoint or file:// path, repeatable (default: public mirrors)")
	f.Bool("parallel", false, "Query all endpoints concurrently, first success wins")
	f.String("format", "json", "Overpass output format: json|xml")
	f.String("rooms-index", "", "Use an existing rooms_index.json instead of deriving one")
	f.String("rooms-polygons", "", "Use an existing rooms_polygons.json (GeoJSON) instead of fetching rooms")
	f.String("survey-file", "", "Read every dataset from one local .osm or Overpass .json file")
	f.Bool("publish", false, "Publish the result as the active PostgreSQL snapshot")
	f.String("tag", "", "Snapshot source tag (default: build-<timestamp>)")
	f.Duration("timeout", 5*time.Minute, "Overall build timeout")
	return cmd
}

func splitEnv(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBBox：解析 "west,south,east,north"
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	if v[0] >= v[2] || v[1] >= v[3] {
		return orb.Bound{}, fmt.Errorf("bbox %q: empty extent", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func runBuild(cmd *cobra.Command, _ []string) error {
	l := logger.Setup()
	f := cmd.Flags()
	outDir, _ := f.GetString("out-dir")
	rawBBox, _ := f.GetString("bbox")
	pad, _ := f.GetFloat64("pad")
	endpoints, _ := f.GetStringSlice("endpoint")
	parallel, _ := f.GetBool("parallel")
	format, _ := f.GetString("format")
	roomsIndex, _ := f.GetString("rooms-index")
	roomsPolygons, _ := f.GetString("rooms-polygons")
	surveyFile, _ := f.GetString("survey-file")
	publish, _ := f.GetBool("publish")
	tag, _ := f.GetString("tag")
	timeout, _ := f.GetDuration("timeout")

	bbox, err := parseBBox(rawBBox)
	if err != nil {
		return err
	}
	bbox = geom.PadBound(bbox, pad)
	if surveyFile != "" {
		endpoints = []string{"file://" + surveyFile}
	}
	if format != "json" && format != "xml" {
		return fmt.Errorf("format %q: want json or xml", format)
	}

	client := survey.NewClient(bbox, endpoints...)
	client.Parallel = parallel
	client.Format = format

	var cfg builder.Config
	if roomsIndex != "" {
		idx, err := graph.LoadRoomIndex(roomsIndex)
		if err != nil {
			return err
		}
		cfg.RoomIndex = idx
	}
	if roomsPolygons != "" {
		b, err := os.ReadFile(roomsPolygons)
		if err != nil {
			return err
		}
		shapes, err := builder.ShapesFromGeoJSON(b)
		if err != nil {
			return err
		}
		cfg.RoomShapes = shapes
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	l.Info("graph_build_begin", "bbox", rawBBox, "pad", pad, "endpoints", len(client.Endpoints), "parallel", parallel)
	res, err := builder.Run(ctx, cfg, client)
	if err != nil {
		l.Error("graph_build_error", "err", err)
		return err
	}
	if err := res.Write(outDir); err != nil {
		l.Error("graph_write_error", "dir", outDir, "err", err)
		return err
	}
	st := res.Graph.Stats()
	l.Info("graph_write_ok", "dir", outDir, "nodes", st.Nodes, "edges", st.Edges, "rooms", st.Rooms, "unsnapped", st.Unsnapped)

	if !publish {
		return nil
	}
	if tag == "" {
		tag = "build-" + time.Now().UTC().Format("20060102T150405Z")
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		return err
	}
	id, err := store.AttachDB(db).Publish(ctx, tag, res.Graph, res.Buildings)
	if err != nil {
		l.Error("graph_publish_error", "err", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published snapshot %d (%s)\n", id, tag)
	return nil
}
