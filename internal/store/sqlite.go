package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sqlitePragmas = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// sqliteDSN turns a file path into a go-sqlite3 DSN with WAL, a busy timeout
// and foreign keys enabled, creating the parent directory when needed. DSNs
// that already carry options are used as given.
func sqliteDSN(path string) (string, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		return "", fmt.Errorf("store: empty sqlite path")
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("store: sqlite dir: %w", err)
		}
	}
	return path + "?" + sqlitePragmas, nil
}
