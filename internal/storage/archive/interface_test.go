// internal/storage/archive/interface_test.go
package archive

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"testing"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStorage runs the behaviour every backend must share
func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("read missing", func(t *testing.T) {
		_, err := s.Read(ctx, "missing/file.json")
		assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
	})

	t.Run("write read overwrite", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "cache/a.json", []byte("one")))
		require.NoError(t, s.Write(ctx, "cache/a.json", []byte("two")))

		got, err := s.Read(ctx, "cache/a.json")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("exists and delete", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "tmp/x", []byte("x")))

		ok, err := s.Exists(ctx, "tmp/x")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.Delete(ctx, "tmp/x"))
		ok, err = s.Exists(ctx, "tmp/x")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "list/2024/01/a", []byte("a")))
		require.NoError(t, s.Write(ctx, "list/2024/01/b", []byte("b")))
		require.NoError(t, s.Write(ctx, "list/2024/02/c", []byte("c")))

		paths, err := s.List(ctx, "list/2024/01")
		require.NoError(t, err)
		sort.Strings(paths)
		assert.Equal(t, []string{"list/2024/01/a", "list/2024/01/b"}, paths)
	})
}

func TestNew_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := New(Config{Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Type: "sqlite", SQLite: filepath.Join(dir, "cache.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.(*SQLite).Close()

	s, err = New(Config{Type: "s3", S3: S3Config{Bucket: "b", Region: "us-east-1"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(Config{Type: "tape"})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
