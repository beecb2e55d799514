// 包 outdoor：外部步行路线服务（OSRM foot 配置）的适配器与楼宇名称解析
package outdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/metrics"
	"campus-nav/internal/route"
)

const (
	DefaultBaseURL = "https://router.project-osrm.org"
	DefaultTimeout = 8 * time.Second
)

// Router：只读楼宇索引 + HTTP 客户端；可被并发请求共享
type Router struct {
	base      string
	client    *http.Client
	timeout   time.Duration
	cache     Cache
	buildings []graph.Building
}

type Option func(*Router)

func WithBaseURL(u string) Option {
	return func(r *Router) { r.base = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.client = c }
}

// WithTimeout：单次外部调用超时；超时视为该次调用失败
func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

func WithCache(c Cache) Option {
	return func(r *Router) { r.cache = c }
}

func New(buildings []graph.Building, opts ...Option) *Router {
	r := &Router{
		base:      DefaultBaseURL,
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		buildings: buildings,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Buildings：楼宇索引
func (r *Router) Buildings() []graph.Building { return r.buildings }

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// WalkingRoute：一次外部请求得到步行折线
// 约束：非 2xx、坐标为空或超时均返回 ProviderError，不做静默降级
func (r *Router) WalkingRoute(ctx context.Context, from, to orb.Point) (route.Outdoor, error) {
	key := cacheKey(from, to)
	if r.cache != nil {
		if ls, ok := r.cache.Get(ctx, key); ok {
			metrics.RouteCacheHitsTotal.Inc()
			return route.Outdoor{Points: ls}, nil
		}
		metrics.RouteCacheMissesTotal.Inc()
	}
	ls, err := r.fetch(ctx, from, to)
	if err != nil {
		metrics.OSRMFailTotal.Inc()
		return route.Outdoor{}, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, ls)
	}
	return route.Outdoor{Points: ls}, nil
}

// coord：坐标按最短无损十进制写入请求路径
func coord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (r *Router) fetch(ctx context.Context, from, to orb.Point) (orb.LineString, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	u := fmt.Sprintf("%s/route/v1/foot/%s,%s;%s,%s?overview=full&geometries=geojson",
		r.base, coord(from[0]), coord(from[1]), coord(to[0]), coord(to[1]))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &failure.ProviderError{Msg: "build request", Err: err}
	}
	t0 := time.Now()
	metrics.OSRMRequestsTotal.Inc()
	defer func() { metrics.OSRMDurationMs.Observe(float64(time.Since(t0).Milliseconds())) }()
	log := logger.Component("outdoor")
	log.Debug("osrm_req", "from", from, "to", to)
	resp, err := r.client.Do(req)
	if err != nil {
		log.Warn("osrm_http_error", "err", err)
		return nil, &failure.ProviderError{Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("osrm_bad_status", "status", resp.StatusCode)
		return nil, &failure.ProviderError{Status: resp.StatusCode, Msg: "non-success response"}
	}
	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn("osrm_decode_error", "err", err)
		return nil, &failure.ProviderError{Status: resp.StatusCode, Msg: "decode response", Err: err}
	}
	if body.Code != "" && !strings.EqualFold(body.Code, "Ok") {
		return nil, &failure.ProviderError{Status: resp.StatusCode, Msg: body.Code + ": " + body.Message}
	}
	if len(body.Routes) == 0 || body.Routes[0].Geometry == nil {
		return nil, &failure.ProviderError{Status: resp.StatusCode, Msg: "no route in response"}
	}
	ls, ok := body.Routes[0].Geometry.Coordinates.(orb.LineString)
	if !ok || len(ls) == 0 {
		return nil, &failure.ProviderError{Status: resp.StatusCode, Msg: "empty geometry"}
	}
	log.Debug("osrm_resp", "points", len(ls), "duration_ms", time.Since(t0).Milliseconds())
	return ls, nil
}

// ResolveBuilding：名称大小写不敏感精确匹配优先，其次匹配简码
func (r *Router) ResolveBuilding(name string) (graph.Building, error) {
	q := strings.TrimSpace(name)
	if q != "" {
		for _, b := range r.buildings {
			if strings.EqualFold(b.Name, q) {
				return b, nil
			}
		}
		for _, b := range r.buildings {
			if b.Ref != "" && strings.EqualFold(b.Ref, q) {
				return b, nil
			}
		}
	}
	return graph.Building{}, failure.Unresolved(failure.KindBuilding, name)
}

// Place：坐标或楼宇名称
type Place struct {
	point orb.Point
	name  string
	named bool
}

func At(p orb.Point) Place        { return Place{point: p} }
func Named(name string) Place     { return Place{name: name, named: true} }
func (p Place) IsNamed() bool     { return p.named }
func (p Place) Name() string      { return p.name }
func (p Place) Point() orb.Point  { return p.point }

func (p Place) String() string {
	if p.named {
		return p.name
	}
	return fmt.Sprintf("[%f,%f]", p.point[0], p.point[1])
}

func (r *Router) resolve(p Place) (orb.Point, error) {
	if !p.named {
		return p.point, nil
	}
	b, err := r.ResolveBuilding(p.name)
	if err != nil {
		return orb.Point{}, err
	}
	return b.Center, nil
}

// RouteOutdoorToOutdoor：两端均解析成功后才发起外部请求
func (r *Router) RouteOutdoorToOutdoor(ctx context.Context, from, to Place) ([]route.Segment, error) {
	a, err := r.resolve(from)
	if err != nil {
		return nil, err
	}
	b, err := r.resolve(to)
	if err != nil {
		return nil, err
	}
	seg, err := r.WalkingRoute(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return []route.Segment{seg}, nil
}
