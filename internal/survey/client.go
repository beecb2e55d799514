package survey

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"campus-nav/internal/failover"
	"campus-nav/internal/failure"
	"campus-nav/internal/logger"
	"campus-nav/internal/metrics"
)

// DefaultEndpoints：公共 Overpass 镜像，按优先级排列
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.osm.ch/api/interpreter",
}

// 文档注释：勘测数据客户端
// 背景：按数据集向候选端点依次（或并发）请求，首个良构响应胜出
// 约束：端点可为 http(s) URL 或 file:// 路径；路径中的 {dataset} 被替换为数据集名
type Client struct {
	Endpoints []string
	BBox      orb.Bound
	Format    string
	Parallel  bool
	HTTP      *http.Client
}

// NewClient：未指定端点时使用 DefaultEndpoints
func NewClient(bbox orb.Bound, endpoints ...string) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Client{
		Endpoints: endpoints,
		BBox:      bbox,
		Format:    "json",
		HTTP:      &http.Client{Timeout: 90 * time.Second},
	}
}

// Fetch：抓取并解码数据集，结果按数据集条件过滤
// 约束：同一端点不重试；全部端点失败返回 FetchError
func (c *Client) Fetch(ctx context.Context, ds Dataset) ([]Element, error) {
	run := failover.First[string, []Element]
	if c.Parallel {
		run = failover.FirstParallel[string, []Element]
	}
	els, ep, err := run(ctx, c.Endpoints, func(ctx context.Context, ep string) ([]Element, error) {
		return c.fetchOne(ctx, ds, ep)
	})
	if err != nil {
		logger.Component("survey").Error("survey_fetch_exhausted", "dataset", ds, "endpoints", len(c.Endpoints))
		return nil, &failure.FetchError{Dataset: string(ds), Err: err}
	}
	els = Filter(ds, els)
	logger.Component("survey").Info("survey_fetch_ok", "dataset", ds, "endpoint", ep, "elements", len(els))
	return els, nil
}

func (c *Client) fetchOne(ctx context.Context, ds Dataset, ep string) ([]Element, error) {
	t0 := time.Now()
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(ep, "file://") {
		body, err = os.ReadFile(strings.ReplaceAll(strings.TrimPrefix(ep, "file://"), "{dataset}", string(ds)))
	} else {
		body, err = c.get(ctx, ds, ep)
	}
	if err == nil {
		var els []Element
		els, err = Decode(body)
		if err == nil {
			metrics.SurveyFetchTotal.WithLabelValues(string(ds), "ok").Inc()
			logger.Component("survey").Debug("survey_endpoint_ok", "dataset", ds, "endpoint", ep, "bytes", len(body), "duration_ms", time.Since(t0).Milliseconds())
			return els, nil
		}
	}
	metrics.SurveyFetchTotal.WithLabelValues(string(ds), "fail").Inc()
	logger.Component("survey").Warn("survey_endpoint_fail", "dataset", ds, "endpoint", ep, "err", err)
	return nil, err
}

func (c *Client) get(ctx context.Context, ds Dataset, ep string) ([]byte, error) {
	u := ep + "?data=" + url.QueryEscape(Query(ds, c.BBox, c.Format))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
