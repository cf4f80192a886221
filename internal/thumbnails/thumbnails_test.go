package thumbnails

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
)

type fakeProcessor struct {
	pages [][]byte
	calls int
}

func (f *fakeProcessor) GetPageCount(path string) (int, error) { return len(f.pages), nil }

func (f *fakeProcessor) GetPage(path string, page int) ([]byte, string, error) {
	f.calls++
	return f.pages[page], "image/png", nil
}

func (f *fakeProcessor) GetCover(path string) ([]byte, string, error) {
	return f.pages[0], "image/png", nil
}

func (f *fakeProcessor) ReadEmbeddedMetadata(path string) (*struct{}, error) { return nil, nil }

func (f *fakeProcessor) ContentHash(path string) (string, error) { return "hash", nil }

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeMediafileProcessor satisfies mediafile.Processor without importing
// pkg/mediafile's ParsedMetadata type into the test's fake.
type fakeMediafileProcessor struct {
	page []byte
}

func (f *fakeMediafileProcessor) GetPageCount(path string) (int, error) { return 1, nil }
func (f *fakeMediafileProcessor) GetPage(path string, page int) ([]byte, string, error) {
	return f.page, "image/png", nil
}
func (f *fakeMediafileProcessor) GetCover(path string) ([]byte, string, error) {
	return f.page, "image/png", nil
}
func (f *fakeMediafileProcessor) ReadEmbeddedMetadata(path string) (*mediafileParsedMetadataStub, error) {
	return nil, nil
}
func (f *fakeMediafileProcessor) ContentHash(path string) (string, error) { return "h", nil }

type mediafileParsedMetadataStub struct{}

func TestGenerateWritesThumbnailAndSkipsWhenCached(t *testing.T) {
	dir := testgen.TempDir(t, "thumbs-*")
	engine := NewEngine(dir, 2)

	proc := &procAdapter{page: samplePNG(t, 200, 300)}
	opts := Options{Format: "jpeg", ResizeMethod: ResizeMethodScaleDimension, Dimension: DimensionHeight, Height: 100, Page: 0}

	path, err := engine.Generate(proc, "/fake/source.cbz", 42, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "42.jpg"), path)
	assert.True(t, testgen.FileExists(path))
	assert.Equal(t, 1, proc.calls)

	info1, err := os.Stat(path)
	require.NoError(t, err)

	path2, err := engine.Generate(proc, "/fake/source.cbz", 42, opts)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, 1, proc.calls, "cached thumbnail must not re-invoke the processor")

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestGenerateForceOverwrites(t *testing.T) {
	dir := testgen.TempDir(t, "thumbs-*")
	engine := NewEngine(dir, 1)

	proc := &procAdapter{page: samplePNG(t, 100, 100)}
	opts := Options{Format: "png", ResizeMethod: ResizeMethodNone}

	_, err := engine.Generate(proc, "/fake/source.cbz", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, proc.calls)

	opts.Force = true
	_, err = engine.Generate(proc, "/fake/source.cbz", 1, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, proc.calls)
}

func TestGenerateBatchIsolatesFailures(t *testing.T) {
	dir := testgen.TempDir(t, "thumbs-*")
	engine := NewEngine(dir, 3)

	good := &procAdapter{page: samplePNG(t, 64, 64)}
	bad := &procAdapter{page: nil, fail: true}

	items := []BatchItem{
		{Processor: good, SourcePath: "/a", MediaID: 1, Options: Options{Format: "jpeg"}},
		{Processor: bad, SourcePath: "/b", MediaID: 2, Options: Options{Format: "jpeg"}},
		{Processor: good, SourcePath: "/c", MediaID: 3, Options: Options{Format: "jpeg"}},
	}

	results := engine.GenerateBatch(items, 2)
	require.Len(t, results, 3)

	byID := map[int]BatchResult{}
	for _, r := range results {
		byID[r.MediaID] = r
	}

	assert.NoError(t, byID[1].Err)
	assert.Error(t, byID[2].Err)
	assert.NoError(t, byID[3].Err)
}

func TestPathForUsesFormatExtension(t *testing.T) {
	engine := NewEngine("/thumbs", 1)
	assert.Equal(t, "/thumbs/5.webp", engine.PathFor(5, "webp"))
	assert.Equal(t, "/thumbs/5.png", engine.PathFor(5, "png"))
	assert.Equal(t, "/thumbs/5.jpg", engine.PathFor(5, "jpeg"))
}

var _ = time.Now
