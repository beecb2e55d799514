// 包 api：集中注册 HTTP API 路由以解耦主入口；路由计算委托给 coordinator
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"

	"campus-nav/internal/coordinator"
	"campus-nav/internal/failure"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/outdoor"
	"campus-nav/internal/route"
)

// Snapshot：一次加载得到的只读路由状态；重载时整体替换
type Snapshot struct {
	Coord     *coordinator.Coordinator
	Graph     *graph.Graph
	Buildings []graph.Building
	Source    string
	LoadedAt  time.Time
}

// Loader：按配置的数据源重新构建 Snapshot
type Loader func(ctx context.Context) (*Snapshot, error)

type Handler struct {
	cur    atomic.Pointer[Snapshot]
	reload Loader
}

func NewHandler(s *Snapshot, reload Loader) *Handler {
	h := &Handler{reload: reload}
	h.cur.Store(s)
	return h
}

// Current：当前生效的快照
func (h *Handler) Current() *Snapshot { return h.cur.Load() }

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/route/gps-to-room", h.GpsToRoom).Methods(http.MethodPost)
	r.HandleFunc("/route/gps-to-building-room", h.GpsToBuildingRoom).Methods(http.MethodPost)
	r.HandleFunc("/route/room-to-room", h.RoomToRoom).Methods(http.MethodPost)
	r.HandleFunc("/route/building-to-room", h.BuildingToRoom).Methods(http.MethodPost)
	r.HandleFunc("/route/outdoor", h.Outdoor).Methods(http.MethodPost)
	r.HandleFunc("/graph/info", h.GraphInfo).Methods(http.MethodGet)
	r.HandleFunc("/buildings", h.ListBuildings).Methods(http.MethodGet)
	r.HandleFunc("/admin/graph/reload", h.Reload).Methods(http.MethodPost)
}

// 请求体
type gpsToRoomRequest struct {
	GPS  *orb.Point `json:"gps"`
	Room string     `json:"room"`
}

type gpsToBuildingRoomRequest struct {
	GPS      *orb.Point `json:"gps"`
	Building string     `json:"building"`
	Room     string     `json:"room"`
}

type roomToRoomRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type buildingToRoomRequest struct {
	FromBuilding string `json:"from_building"`
	ToBuilding   string `json:"to_building"`
	Room         string `json:"room"`
}

// placeJSON：{"point":[lng,lat]} 或 {"building":"II"}，二选一
type placeJSON struct {
	Point    *orb.Point `json:"point,omitempty"`
	Building string     `json:"building,omitempty"`
}

type outdoorRequest struct {
	From placeJSON `json:"from"`
	To   placeJSON `json:"to"`
}

type routeResponse struct {
	Segments []route.Segment `json:"segments"`
	Count    int             `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string        { return e.msg }
func (e *badRequestError) Is(target error) bool { return target == errBadRequest }

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func checkPoint(name string, p *orb.Point) error {
	if p == nil {
		return badRequest(name + " is required")
	}
	lng, lat := p[0], p[1]
	if math.IsNaN(lng) || math.IsNaN(lat) || lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return badRequest(name + " out of range")
	}
	return nil
}

func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return badRequest(pairs[i] + " is required")
		}
	}
	return nil
}

func (p placeJSON) place(name string) (outdoor.Place, error) {
	switch {
	case p.Point != nil && p.Building != "":
		return outdoor.Place{}, badRequest(name + ": point and building are exclusive")
	case p.Point != nil:
		if err := checkPoint(name+".point", p.Point); err != nil {
			return outdoor.Place{}, err
		}
		return outdoor.At(*p.Point), nil
	case strings.TrimSpace(p.Building) != "":
		return outdoor.Named(p.Building), nil
	default:
		return outdoor.Place{}, badRequest(name + " needs point or building")
	}
}

// StatusOf：错误分类 → HTTP 状态码
func StatusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, failure.ErrUnresolved):
		return http.StatusNotFound
	case errors.Is(err, failure.ErrNoPath):
		return http.StatusUnprocessableEntity
	case errors.Is(err, failure.ErrOutdoorRoute), errors.Is(err, failure.ErrDataFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	kind := failure.KindOf(err)
	if errors.Is(err, errBadRequest) {
		kind = "bad_request"
	}
	if status >= 500 {
		logger.Component("api").Warn("api_error", "status", status, "kind", kind, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// writeRoute 返回接收 coordinator 结果的写出函数
func writeRoute(w http.ResponseWriter) func([]route.Segment, error) {
	return func(segs []route.Segment, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		if segs == nil {
			segs = []route.Segment{}
		}
		writeJSON(w, http.StatusOK, routeResponse{Segments: segs, Count: len(segs)})
	}
}

func (h *Handler) GpsToRoom(w http.ResponseWriter, r *http.Request) {
	var req gpsToRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := checkPoint("gps", req.GPS); err != nil {
		writeError(w, err)
		return
	}
	if err := required("room", req.Room); err != nil {
		writeError(w, err)
		return
	}
	writeRoute(w)(h.Current().Coord.RouteGpsToRoom(r.Context(), *req.GPS, req.Room))
}

func (h *Handler) GpsToBuildingRoom(w http.ResponseWriter, r *http.Request) {
	var req gpsToBuildingRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := checkPoint("gps", req.GPS); err != nil {
		writeError(w, err)
		return
	}
	if err := required("building", req.Building, "room", req.Room); err != nil {
		writeError(w, err)
		return
	}
	writeRoute(w)(h.Current().Coord.RouteGpsToBuildingRoom(r.Context(), *req.GPS, req.Building, req.Room))
}

func (h *Handler) RoomToRoom(w http.ResponseWriter, r *http.Request) {
	var req roomToRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := required("from", req.From, "to", req.To); err != nil {
		writeError(w, err)
		return
	}
	writeRoute(w)(h.Current().Coord.RouteRoomToRoom(r.Context(), req.From, req.To))
}

func (h *Handler) BuildingToRoom(w http.ResponseWriter, r *http.Request) {
	var req buildingToRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := required("from_building", req.FromBuilding, "to_building", req.ToBuilding, "room", req.Room); err != nil {
		writeError(w, err)
		return
	}
	writeRoute(w)(h.Current().Coord.RouteBuildingToRoom(r.Context(), req.FromBuilding, req.ToBuilding, req.Room))
}

func (h *Handler) Outdoor(w http.ResponseWriter, r *http.Request) {
	var req outdoorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	from, err := req.From.place("from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := req.To.place("to")
	if err != nil {
		writeError(w, err)
		return
	}
	writeRoute(w)(h.Current().Coord.RouteOutdoorToOutdoor(r.Context(), from, to))
}

func (h *Handler) GraphInfo(w http.ResponseWriter, _ *http.Request) {
	s := h.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":    s.Source,
		"loaded_at": s.LoadedAt.UTC().Format(time.RFC3339),
		"levels":    s.Graph.Levels,
		"stats":     s.Graph.Stats(),
	})
}

func (h *Handler) ListBuildings(w http.ResponseWriter, _ *http.Request) {
	bs := h.Current().Buildings
	if bs == nil {
		bs = []graph.Building{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"buildings": bs,
		"count":     len(bs),
	})
}

// Health：存活探针
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// 文档注释：管理员重载路由图
// 约束：x-admin-token 必须与 ADMIN_TOKEN 一致且非空；重载失败时保留旧快照
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	t := r.Header.Get("x-admin-token")
	if t == "" || t != os.Getenv("ADMIN_TOKEN") {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if h.reload == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	l := logger.Component("api")
	s, err := h.reload(r.Context())
	if err != nil {
		l.Error("graph_reload_error", "err", err)
		writeError(w, err)
		return
	}
	h.cur.Store(s)
	l.Info("graph_reload_ok", "source", s.Source, "nodes", len(s.Graph.Nodes))
	w.WriteHeader(http.StatusNoContent)
}
