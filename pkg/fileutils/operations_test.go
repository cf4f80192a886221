package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupEmptyDirectory(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("removes directory with only ignored files", func(t *testing.T) {
		dir := filepath.Join(tempDir, "ignored-only")
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0600))

		removed, err := CleanupEmptyDirectory(dir, ".*", "Thumbs.db")
		require.NoError(t, err)
		assert.True(t, removed)
		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("keeps directory with a real file", func(t *testing.T) {
		dir := filepath.Join(tempDir, "has-content")
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "page001.jpg"), []byte("x"), 0600))

		removed, err := CleanupEmptyDirectory(dir)
		require.NoError(t, err)
		assert.False(t, removed)
		_, err = os.Stat(dir)
		assert.NoError(t, err)
	})

	t.Run("missing directory is a no-op", func(t *testing.T) {
		removed, err := CleanupEmptyDirectory(filepath.Join(tempDir, "does-not-exist"))
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestMimeTypeFromExtension(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeTypeFromExtension(".jpg"))
	assert.Equal(t, "image/png", MimeTypeFromExtension(".PNG"))
	assert.Equal(t, "", MimeTypeFromExtension(".bogus"))
}
