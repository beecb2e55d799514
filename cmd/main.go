// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"campus-nav/internal/api"
	"campus-nav/internal/coordinator"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
	"campus-nav/internal/metrics"
	"campus-nav/internal/middleware"
	"campus-nav/internal/migrate"
	"campus-nav/internal/outdoor"
	"campus-nav/internal/store"
	"campus-nav/internal/utils"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

// graphSource：图资产来源（file 或 postgres）
type graphSource struct {
	kind          string
	graphPath     string
	buildingsPath string
	st            *store.Store
	outOpts       []outdoor.Option
}

// load：读取图与楼宇索引，校验后构建 Snapshot
func (s graphSource) load(ctx context.Context) (*api.Snapshot, error) {
	var (
		g         *graph.Graph
		buildings []graph.Building
		err       error
		tag       = s.kind
	)
	switch s.kind {
	case "postgres":
		var meta store.Snapshot
		g, buildings, meta, err = s.st.LoadActive(ctx)
		if err != nil {
			return nil, err
		}
		tag = "postgres:" + meta.SourceTag
	default:
		if g, err = graph.Load(s.graphPath); err != nil {
			return nil, err
		}
		if buildings, err = graph.LoadBuildings(s.buildingsPath); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			logger.L().Warn("buildings_index_missing", "path", s.buildingsPath)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := outdoor.New(buildings, s.outOpts...)
	st := g.Stats()
	logger.L().Info("graph_load_ok", "source", tag, "levels", st.Levels, "nodes", st.Nodes, "edges", st.Edges, "rooms", st.Rooms, "unsnapped_rooms", st.Unsnapped, "buildings", len(buildings))
	return &api.Snapshot{
		Coord:     coordinator.New(g, out),
		Graph:     g,
		Buildings: buildings,
		Source:    tag,
		LoadedAt:  time.Now(),
	}, nil
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := env("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)

	src := graphSource{
		kind:          env("GRAPH_SOURCE", "file"),
		graphPath:     env("GRAPH_PATH", filepath.Join("data", "indoor-graph.json")),
		buildingsPath: env("BUILDINGS_PATH", filepath.Join("data", "buildings_index.json")),
		outOpts: []outdoor.Option{
			outdoor.WithBaseURL(env("OSRM_BASE", outdoor.DefaultBaseURL)),
			outdoor.WithTimeout(envMillis("OSRM_TIMEOUT_MS", outdoor.DefaultTimeout)),
		},
	}

	if src.kind == "postgres" {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		src.st = store.AttachDB(db)
	}

	if rc := utils.OpenRedisFromEnv(); rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		ttl := time.Duration(3600) * time.Second
		if s := os.Getenv("ROUTE_CACHE_TTL_S"); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				ttl = time.Duration(n) * time.Second
			}
		}
		src.outOpts = append(src.outOpts, outdoor.WithCache(outdoor.NewRedisCache(rc, ttl)))
	}

	snap, err := src.load(context.Background())
	if err != nil {
		l.Error("graph_load_error", "source", src.kind, "err", err)
		os.Exit(1)
	}

	h := api.NewHandler(snap, src.load)
	r := mux.NewRouter()
	r.Use(logger.AccessMiddleware(l))
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle(apiBase+"/metrics", metrics.Handler())
	h.RegisterRoutes(r.PathPrefix(apiBase).Subrouter())

	addr := env("ADDR", ":8080")
	handler := middleware.Wrap(r, apiBase+"/admin", apiBase+"/metrics")
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if certPath, keyPath, ok := utils.TLSConfigFromEnv(); ok {
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "campus-nav.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
