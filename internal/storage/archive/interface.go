// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
)

// Storage defines the interface for result archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path, returning core.ErrNotFound
	// when nothing is stored there
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error
}

// Config selects and configures an archive backend
type Config struct {
	Type string // "localfs" or "s3"
	Path string // For localfs
	S3   S3Config
}

// New opens the backend named by cfg.Type
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "localfs", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("localfs archive requires a path")
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 archive requires a bucket")
		}
		return NewS3(cfg.S3)
	}
	return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
}
