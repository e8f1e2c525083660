package backendadapter

import (
	"context"
	"os"
)

// FetchLocal reads a state file from the local filesystem. Used primarily
// in development and by POST /state/import with a local backend config.
func FetchLocal(_ context.Context, cfg *Config) (*Result, error) {
	if cfg.Path == "" {
		return nil, newError(ErrConfiguration, "local backend requires a path")
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(ErrNotFound, "state file %q not found", cfg.Path)
		}
		return nil, newError(ErrTransport, "stat %q: %w", cfg.Path, err)
	}
	if info.IsDir() {
		return nil, newError(ErrNotFound, "state path %q is a directory", cfg.Path)
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, newError(ErrTransport, "read %q: %w", cfg.Path, err)
	}
	return &Result{BackendTag: string(KindLocal), SizeBytes: int64(len(data)), RawBytes: data}, nil
}
