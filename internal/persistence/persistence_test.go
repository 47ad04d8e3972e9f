package persistence

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/config"
)

func TestDisabledBackends(t *testing.T) {
	logger := zap.NewNop()
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, "club-api", logger)
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if pg.Enabled() || pg.PoolHandle() != nil {
		t.Fatal("postgres should be disabled without DSN")
	}
	if err := pg.Ping(context.Background()); err == nil {
		t.Fatal("ping on disabled postgres should fail")
	}
	pg.Close()

	rd := NewRedis(config.RedisConfig{}, logger)
	if rd.Enabled() {
		t.Fatal("redis should be disabled without address")
	}
	if err := rd.Ping(context.Background()); err == nil {
		t.Fatal("ping on disabled redis should fail")
	}
	rd.Close()

	reg := prometheus.NewRegistry()
	if err := pg.RegisterMetrics(reg); err != nil {
		t.Fatalf("postgres metrics: %v", err)
	}
	if err := rd.RegisterMetrics(reg); err != nil {
		t.Fatalf("redis metrics: %v", err)
	}
	families, err := reg.Gather()
	if err != nil || len(families) != 0 {
		t.Fatalf("disabled backends registered %d families (%v)", len(families), err)
	}
}

func TestMigrationFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt", "010_c.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	got, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{"001_a.sql", "002_b.sql", "010_c.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}

	if _, err := migrationFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, "does-not-matter", zap.NewNop()); err != nil {
		t.Fatalf("nil pool should skip: %v", err)
	}
}
