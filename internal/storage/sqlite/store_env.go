package sqlite

import (
	"path/filepath"
	"strings"

	"github.com/umalog/umalog/internal/platform/config"
)

type storeEnv struct {
	DBPath string `env:"UMALOG_DB_PATH"`
}

func loadStoreEnv() storeEnv {
	var cfg storeEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "league.db")
	}
	return cfg
}

// OpenFromEnv opens the league store at the path named by UMALOG_DB_PATH,
// falling back to data/league.db.
func OpenFromEnv() (*Store, error) {
	return Open(loadStoreEnv().DBPath)
}
