// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/newthinker/tradelab/internal/core"
)

// ErrNotFound is returned by Read when nothing is stored at the path. It
// matches fs.ErrNotExist under errors.Is.
var ErrNotFound = fmt.Errorf("archive: %w", fs.ErrNotExist)

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type   string // localfs, s3 or sqlite
	Path   string // localfs base directory
	S3     S3Config
	SQLite string // sqlite database file
}

// New builds the backend named by cfg.Type
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	case "sqlite":
		return NewSQLite(cfg.SQLite)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}
