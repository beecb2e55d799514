package outdoor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	dto "github.com/prometheus/client_model/go"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph/graphtest"
	"campus-nav/internal/metrics"
	"campus-nav/internal/route"
)

const okBody = `{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[[0,0],[0.00005,0.00005],[0.0001,0.0001]]}}]}`

func osrm(t *testing.T, status int, body string, hits *atomic.Int32, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if path != nil {
			*path = r.URL.Path + "?" + r.URL.RawQuery
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWalkingRouteParsesGeometry(t *testing.T) {
	var path string
	srv := osrm(t, http.StatusOK, okBody, nil, &path)
	r := New(graphtest.Buildings(), WithBaseURL(srv.URL))
	seg, err := r.WalkingRoute(context.Background(), orb.Point{0, 0}, orb.Point{0.0001, 0.0001})
	if err != nil {
		t.Fatal(err)
	}
	if len(seg.Points) != 3 || seg.Points[2] != (orb.Point{0.0001, 0.0001}) {
		t.Fatalf("unexpected line %v", seg.Points)
	}
	if !strings.HasPrefix(path, "/route/v1/foot/0,0;0.0001,0.0001?") {
		t.Fatalf("unexpected request path %s", path)
	}
	if !strings.Contains(path, "geometries=geojson") || !strings.Contains(path, "overview=full") {
		t.Fatalf("expected geojson full overview, got %s", path)
	}
}

func TestWalkingRouteFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx", http.StatusBadGateway, `upstream down`},
		{"no route", http.StatusOK, `{"code":"NoRoute","message":"Impossible route","routes":[]}`},
		{"empty coordinates", http.StatusOK, `{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[]}}]}`},
		{"missing routes", http.StatusOK, `{"code":"Ok"}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := osrm(t, c.status, c.body, nil, nil)
			r := New(nil, WithBaseURL(srv.URL))
			_, err := r.WalkingRoute(context.Background(), orb.Point{0, 0}, orb.Point{1, 1})
			if !errors.Is(err, failure.ErrOutdoorRoute) {
				t.Fatalf("expected outdoor failure, got %v", err)
			}
		})
	}
}

func TestWalkingRouteTimeoutIsFailure(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)
	r := New(nil, WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := r.WalkingRoute(context.Background(), orb.Point{0, 0}, orb.Point{1, 1})
	if !errors.Is(err, failure.ErrOutdoorRoute) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected outdoor failure caused by deadline, got %v", err)
	}
}

func TestWalkingRouteKeepsFullPrecision(t *testing.T) {
	var path string
	srv := osrm(t, http.StatusOK, okBody, nil, &path)
	r := New(nil, WithBaseURL(srv.URL))
	from := orb.Point{-9.20512345678, 38.66012345678}
	to := orb.Point{-9.2049, 38.6603}
	if _, err := r.WalkingRoute(context.Background(), from, to); err != nil {
		t.Fatal(err)
	}
	want := "/route/v1/foot/-9.20512345678,38.66012345678;-9.2049,38.6603?"
	if !strings.HasPrefix(path, want) {
		t.Fatalf("expected %s, got %s", want, path)
	}
}

func osrmSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.OSRMDurationMs.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestWalkingRouteDurationRecordedOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()
	before := osrmSamples(t)
	r := New(nil, WithBaseURL(base))
	if _, err := r.WalkingRoute(context.Background(), orb.Point{0, 0}, orb.Point{1, 1}); !errors.Is(err, failure.ErrOutdoorRoute) {
		t.Fatalf("expected outdoor failure, got %v", err)
	}
	if got := osrmSamples(t); got != before+1 {
		t.Fatalf("expected one duration sample for the failed call, got %d -> %d", before, got)
	}
}

func TestResolveBuilding(t *testing.T) {
	r := New(graphtest.Buildings())
	for _, q := range []string{"Building II", "building ii", "  II ", "ii"} {
		b, err := r.ResolveBuilding(q)
		if err != nil || b.Name != "Building II" {
			t.Fatalf("resolve %q: got %+v err=%v", q, b, err)
		}
	}
	_, err := r.ResolveBuilding("Building XL")
	var ue *failure.UnresolvedError
	if !errors.As(err, &ue) || ue.Kind != failure.KindBuilding || ue.ID != "Building XL" {
		t.Fatalf("expected unresolved building naming the input, got %v", err)
	}
}

func TestRouteOutdoorToOutdoorResolvesBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	srv := osrm(t, http.StatusOK, okBody, &hits, nil)
	r := New(graphtest.Buildings(), WithBaseURL(srv.URL))
	_, err := r.RouteOutdoorToOutdoor(context.Background(), At(orb.Point{0, 0}), Named("Nowhere Hall"))
	if !errors.Is(err, failure.ErrUnresolved) || !strings.Contains(err.Error(), "Nowhere Hall") {
		t.Fatalf("expected unresolved error naming building, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no provider call, got %d", hits.Load())
	}
	segs, err := r.RouteOutdoorToOutdoor(context.Background(), Named("VII"), Named("Building II"))
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 || segs[0].Kind() != route.KindOutdoor {
		t.Fatalf("expected a single outdoor segment, got %v", segs)
	}
}

type memCache struct {
	mu sync.Mutex
	m  map[string]orb.LineString
}

func (c *memCache) Get(_ context.Context, k string) (orb.LineString, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ls, ok := c.m[k]
	return ls, ok
}

func (c *memCache) Set(_ context.Context, k string, ls orb.LineString) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = ls
}

func TestWalkingRouteUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := osrm(t, http.StatusOK, okBody, &hits, nil)
	r := New(nil, WithBaseURL(srv.URL), WithCache(&memCache{m: map[string]orb.LineString{}}))
	for i := 0; i < 3; i++ {
		if _, err := r.WalkingRoute(context.Background(), orb.Point{0, 0}, orb.Point{0.0001, 0.0001}); err != nil {
			t.Fatal(err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one provider call, got %d", hits.Load())
	}
}

func TestCacheKeyRoundsToSixDecimals(t *testing.T) {
	a := cacheKey(orb.Point{-9.2051231, 38.6601234}, orb.Point{1, 2})
	b := cacheKey(orb.Point{-9.2051229, 38.6601232}, orb.Point{1, 2})
	if a != b {
		t.Fatalf("expected %s == %s", a, b)
	}
}
