package cloud

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, types.Config{Backend: types.BackendMemory})
		require.NoError(t, err)
		assert.Equal(t, types.BackendMemory, b.Name())
	})

	t.Run("sqlite defaults into data dir", func(t *testing.T) {
		dir := t.TempDir()
		b, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: dir})
		require.NoError(t, err)
		defer b.Close()
		require.IsType(t, &SQLite{}, b)
		assert.Equal(t, filepath.Join(dir, DefaultSQLiteFile), b.(*SQLite).Path())
	})

	t.Run("postgres", func(t *testing.T) {
		useStubPostgres(t)
		b, err := Open(ctx, types.Config{Backend: types.BackendPostgres, Remote: types.RemoteConfig{DSN: "postgres://stub"}})
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, types.BackendPostgres, b.Name())
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Open(ctx, types.Config{Backend: "floppy"})
		assert.ErrorIs(t, err, types.ErrBackendUnknown)
	})
}
