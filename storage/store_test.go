package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"TuneBox/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Save Open Remove", func(t *testing.T) {
		store, err := NewLocalStore(filepath.Join(t.TempDir(), "audio", "mp3"))
		require.NoError(t, err)

		data := []byte("ID3 fake mp3 bytes")
		require.NoError(t, store.Save(ctx, "a.mp3", bytes.NewReader(data), int64(len(data))))

		rc, err := store.Open(ctx, "a.mp3")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, data, got)

		require.NoError(t, store.Remove(ctx, "a.mp3"))
		_, err = store.Open(ctx, "a.mp3")
		assert.ErrorIs(t, err, ErrObjectNotFound)

		// 删除不存在的文件不是错误
		assert.NoError(t, store.Remove(ctx, "a.mp3"))
	})

	t.Run("Unknown Size", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "b.mp3", strings.NewReader("abc"), -1))
	})

	t.Run("Short Write Leaves Nothing Behind", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		err = store.Save(ctx, "c.mp3", strings.NewReader("abc"), 10)
		require.Error(t, err)

		entries, err := os.ReadDir(store.Root())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Rejects Path Traversal", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		for _, key := range []string{"", ".", "..", "../etc/passwd", "a/b.mp3", `a\b.mp3`} {
			_, err := store.Open(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey, key)
			assert.ErrorIs(t, store.Save(ctx, key, strings.NewReader("x"), 1), ErrInvalidKey, key)
		}
	})

	t.Run("List And Stats", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "b.mp3", strings.NewReader("12345"), 5))
		require.NoError(t, store.Save(ctx, "a.mp3", strings.NewReader("123"), 3))

		objects, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, objects, 2)
		assert.Equal(t, "a.mp3", objects[0].Key)
		assert.Equal(t, int64(3), objects[0].Size)

		stats, err := Stats(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, "local", stats.Kind)
		assert.Equal(t, int64(2), stats.TotalObjects)
		assert.Equal(t, int64(8), stats.TotalSize)
		assert.False(t, stats.LastModified.IsZero())
	})
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), &config.Config{
		StorageBackend: config.StorageLocal,
		AudioDir:       t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "local", store.Kind())

	_, err = New(context.Background(), &config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}

func TestMinioObjectName(t *testing.T) {
	assert.Equal(t, "audio/mp3/abc.mp3", objectName("abc.mp3"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "1.5 MB", FormatSize(3*1024*1024/2))
}
