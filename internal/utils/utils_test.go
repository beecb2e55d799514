package utils

import (
	"crypto/tls"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_USER", "nav")
	t.Setenv("PG_PASSWORD", "p@ss")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	dsn := BuildPostgresDSNFromEnv()
	if !strings.HasPrefix(dsn, "postgres://nav:p%40ss@db:6543/campusnav?") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	if !strings.HasSuffix(dsn, "sslmode=disable") {
		t.Fatalf("expected default sslmode, got %s", dsn)
	}
}

func TestOpenRedisFromEnvDisabledByDefault(t *testing.T) {
	t.Setenv("REDIS_ENABLE", "")
	if OpenRedisFromEnv() != nil {
		t.Fatalf("expected nil client when redis disabled")
	}
}

func TestEnsureSelfSignedCertIsLoadable(t *testing.T) {
	dir := t.TempDir()
	cert, key := filepath.Join(dir, "certs", "server.crt"), filepath.Join(dir, "certs", "server.key")
	if err := EnsureSelfSignedCert(cert, key, "campus-nav.local"); err != nil {
		t.Fatal(err)
	}
	if _, err := tls.LoadX509KeyPair(cert, key); err != nil {
		t.Fatalf("generated pair not loadable: %v", err)
	}
	if err := EnsureSelfSignedCert(cert, key, "campus-nav.local"); err != nil {
		t.Fatalf("second call should be a no-op: %v", err)
	}
}
