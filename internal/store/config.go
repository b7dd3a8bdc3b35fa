package store

import "path/filepath"

type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFS     Backend = "fs"
	BackendMemory Backend = "memory"
)

// Config selects and locates the persistence backend.
type Config struct {
	Backend Backend `json:"backend" yaml:"backend"`

	// Root is the data directory. The sqlite backend keeps eddy.db in it,
	// the fs backend keeps one directory per record kind.
	Root string `json:"root" yaml:"root"`
}

func (c Config) sqlitePath() string {
	if c.Root == "" {
		return ":memory:"
	}
	return filepath.Join(c.Root, "eddy.db")
}
