package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"realmcore/internal/persistence/indexdb"
)

// openRuntimeIndex opens the optional read-model index. REALM_INDEX_BACKEND
// selects sqlite (default) or none.
func openRuntimeIndex(worldDir string, disableDB bool, logger *zap.Logger) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("REALM_INDEX_BACKEND")))
	switch backend {
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"), logger)
	case "none", "off", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported REALM_INDEX_BACKEND: %s", backend)
	}
}
