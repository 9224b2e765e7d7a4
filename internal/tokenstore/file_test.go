package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringclient/internal/config"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "refresh-token")
	s := NewFileStore(path)

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "first"))
	token, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	require.NoError(t, s.Save(ctx, "second"))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close())
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh-token")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	s, err := New(ctx, config.TokenStoreConfig{Backend: config.TokenStoreFile, Path: path})
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())

	_, err = New(ctx, config.TokenStoreConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = New(ctx, config.TokenStoreConfig{
		Backend: config.TokenStoreRedis,
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
	})
	assert.Error(t, err, "unreachable redis fails fast")
}
