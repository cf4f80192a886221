package cbz

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCBZ_GTIN(t *testing.T) {
	tmpDir := t.TempDir()
	cbzPath := filepath.Join(tmpDir, "test.cbz")

	f, err := os.Create(cbzPath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	imgWriter, err := zw.Create("page001.jpg")
	require.NoError(t, err)
	_, err = imgWriter.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0}) // JPEG header
	require.NoError(t, err)

	comicInfoWriter, err := zw.Create("ComicInfo.xml")
	require.NoError(t, err)
	_, err = comicInfoWriter.Write([]byte(`<?xml version="1.0"?>
<ComicInfo>
  <Title>Test Comic</Title>
  <GTIN>9780316769488</GTIN>
</ComicInfo>`))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	metadata, err := Parse(cbzPath)
	require.NoError(t, err)

	assert.Equal(t, "Test Comic", metadata.Title)
	require.Len(t, metadata.Identifiers, 1)
	assert.Equal(t, "gtin", metadata.Identifiers[0].Type)
	assert.Equal(t, "9780316769488", metadata.Identifiers[0].Value)
}

func TestParseCBZ_NoComicInfo(t *testing.T) {
	tmpDir := t.TempDir()
	cbzPath := filepath.Join(tmpDir, "test.cbz")

	f, err := os.Create(cbzPath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	imgWriter, err := zw.Create("page001.jpg")
	require.NoError(t, err)
	_, err = imgWriter.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	metadata, err := Parse(cbzPath)
	require.NoError(t, err)

	assert.Empty(t, metadata.Title)
	assert.Empty(t, metadata.Identifiers)
	require.NotNil(t, metadata.PageCount)
	assert.Equal(t, 1, *metadata.PageCount)
}
