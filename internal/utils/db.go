// 包 utils：基于环境变量的 Postgres / Redis / TLS 辅助函数
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// BuildPostgresDSNFromEnv：PG_HOST / PG_PORT / PG_USER / PG_PASSWORD / PG_DB / PG_SSLMODE
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     env("PG_HOST", "localhost") + ":" + env("PG_PORT", "5432"),
		Path:     "/" + env("PG_DB", "campusnav"),
		RawQuery: "sslmode=" + url.QueryEscape(env("PG_SSLMODE", "disable")),
	}
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(env("PG_USER", "postgres"), pass)
	} else {
		u.User = url.User(env("PG_USER", "postgres"))
	}
	return u.String()
}

// OpenPostgres：打开连接池；快照表读写量小，默认连接数较低
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}

// OpenPostgresFromEnv：PG_DSN 优先，否则由分项变量拼接
func OpenPostgresFromEnv() (*sql.DB, error) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		dsn = BuildPostgresDSNFromEnv()
	}
	return OpenPostgres(dsn)
}
