package sqlite

import (
	"path/filepath"
	"testing"
)

func TestLoadStoreEnvDefault(t *testing.T) {
	t.Setenv("UMALOG_DB_PATH", "")

	cfg := loadStoreEnv()
	if cfg.DBPath != filepath.Join("data", "league.db") {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
}

func TestLoadStoreEnvOverride(t *testing.T) {
	t.Setenv("UMALOG_DB_PATH", "/tmp/custom.db")

	cfg := loadStoreEnv()
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("db path = %q, want override", cfg.DBPath)
	}
}
