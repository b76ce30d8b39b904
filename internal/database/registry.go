package database

import (
	"path/filepath"
	"sync"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// registry is the process-wide open-database map, guarded by exclusive
// access during open/close only: Database.Put/Get/Sync never touch it.
var registry = struct {
	mu   sync.Mutex
	open map[string]*Database
}{open: map[string]*Database{}}

func canonicalPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "database.canonicalPath", err)
	}
	return filepath.Clean(abs), nil
}

func registerOpen(path string, db *Database) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.open[path]; exists {
		return kinds.New(kinds.DatabaseAlreadyOpen, "database.Open", nil)
	}
	registry.open[path] = db
	return nil
}

func unregisterOpen(path string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.open, path)
}
