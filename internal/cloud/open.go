package cloud

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// DefaultSQLiteFile is the database file name used when remote.path is empty.
const DefaultSQLiteFile = "remote.db"

// Open returns the Backend cfg selects. cfg must be valid.
func Open(ctx context.Context, cfg types.Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case types.BackendMemory:
		return NewMemory(), nil
	case types.BackendSQLite:
		p := cfg.Remote.Path
		if p == "" {
			p = filepath.Join(cfg.DataDir, DefaultSQLiteFile)
		}
		return OpenSQLite(ctx, p)
	case types.BackendPostgres:
		return OpenPostgres(ctx, cfg.Remote.DSN)
	case types.BackendS3:
		return OpenS3(ctx, S3Config{
			Bucket:    cfg.Remote.Bucket,
			Prefix:    cfg.Remote.Path,
			Region:    cfg.Remote.Region,
			Endpoint:  cfg.Remote.Endpoint,
			PathStyle: cfg.Remote.PathStyle,
		})
	}
	return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
}
