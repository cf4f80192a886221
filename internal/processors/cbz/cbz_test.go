package cbz

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
	"github.com/stumpgo/stump/pkg/mediafile"
)

func TestProcessor_GetPageCount(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 5})

	p := Processor{}
	n, err := p.GetPageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestProcessor_GetPage(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 3})

	p := Processor{}
	data, contentType, err := p.GetPage(path, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "image/png", contentType)
}

func TestProcessor_GetPage_OutOfRange(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 2})

	p := Processor{}
	_, _, err := p.GetPage(path, 5)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.PageOutOfRange))
}

func TestProcessor_ReadEmbeddedMetadata(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{
		Title:        "Sample",
		Series:       "Sample Series",
		HasComicInfo: true,
		PageCount:    4,
	})

	p := Processor{}
	meta, err := p.ReadEmbeddedMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "Sample", meta.Title)
	assert.Equal(t, "Sample Series", meta.Series)
}

func TestProcessor_ContentHash_StableAcrossCalls(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 2})

	p := Processor{}
	h1, err := p.ContentHash(path)
	require.NoError(t, err)
	h2, err := p.ContentHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestProcessor_ContentHash_SamplesUpToFive(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	shortPath := testgen.GenerateCBZ(t, dir, "short.cbz", testgen.CBZOptions{PageCount: 2})
	longPath := testgen.GenerateCBZ(t, dir, "long.cbz", testgen.CBZOptions{PageCount: 10})

	p := Processor{}
	shortHash, err := p.ContentHash(shortPath)
	require.NoError(t, err)

	longHash, err := p.ContentHash(longPath)
	require.NoError(t, err)

	// Different page counts (even within the 5-image sample window for the
	// long archive) produce different declared sample sizes or bytes, so
	// the hashes must differ.
	assert.NotEqual(t, shortHash, longHash)
}

func TestProcessor_CorruptArchive(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := filepath.Join(dir, "bad.cbz")
	testgen.WriteFile(t, dir, "bad.cbz", []byte("not a zip file"))

	p := Processor{}
	_, err := p.GetPageCount(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}

func TestProcessor_GetCover_SinglePage(t *testing.T) {
	dir := testgen.TempDir(t, "cbz-proc-*")
	path := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 1})

	p := Processor{}
	data, contentType, err := p.GetCover(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.NotEmpty(t, contentType)
}
