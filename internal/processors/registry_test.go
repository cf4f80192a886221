package processors

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
	"github.com/stumpgo/stump/pkg/mediafile"
)

type fakeProcessor struct{ name string }

func (f fakeProcessor) GetPageCount(string) (int, error) { return 0, nil }
func (f fakeProcessor) GetPage(string, int) ([]byte, string, error) {
	return nil, "", nil
}
func (f fakeProcessor) GetCover(string) ([]byte, string, error) { return nil, "", nil }
func (f fakeProcessor) ReadEmbeddedMetadata(string) (*mediafile.ParsedMetadata, error) {
	return nil, nil
}
func (f fakeProcessor) ContentHash(string) (string, error) { return "", nil }

func newTestRegistry() (*Registry, fakeProcessor, fakeProcessor, fakeProcessor, fakeProcessor) {
	cbz := fakeProcessor{name: "cbz"}
	cbr := fakeProcessor{name: "cbr"}
	epub := fakeProcessor{name: "epub"}
	pdf := fakeProcessor{name: "pdf"}
	return NewRegistry(cbz, cbr, epub, pdf), cbz, cbr, epub, pdf
}

func TestRegistry_DispatchesByExtension(t *testing.T) {
	reg, cbz, cbr, epub, pdf := newTestRegistry()

	dir := testgen.TempDir(t, "registry-*")
	cbzPath := testgen.GenerateCBZ(t, dir, "book.cbz", testgen.CBZOptions{PageCount: 1})
	epubPath := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "x"})

	p, err := reg.For(cbzPath)
	require.NoError(t, err)
	assert.Equal(t, cbz, p)

	p, err = reg.For(epubPath)
	require.NoError(t, err)
	assert.Equal(t, epub, p)

	_ = cbr
	_ = pdf
}

func TestRegistry_UnknownFormat(t *testing.T) {
	reg, _, _, _, _ := newTestRegistry()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	testgen.WriteFile(t, dir, "notes.txt", []byte("plain text"))

	_, err := reg.For(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Unsupported))
}

func TestKindForExtension(t *testing.T) {
	cases := map[string]string{
		"cbz":  "COMIC",
		".CBZ": "COMIC",
		"rar":  "COMIC",
		"epub": "EPUB",
		"pdf":  "PDF",
		"txt":  "",
	}
	for ext, want := range cases {
		assert.Equal(t, want, KindForExtension(ext), "ext=%s", ext)
	}
}

func TestIsImage(t *testing.T) {
	dir := t.TempDir()
	pngPath := testgen.WriteFile(t, dir, "a.png", pngBytes())
	txtPath := testgen.WriteFile(t, dir, "a.txt", []byte("hello"))

	assert.True(t, IsImage(pngPath))
	assert.False(t, IsImage(txtPath))
}

func pngBytes() []byte {
	// Minimal valid PNG header: IsImage sniffs these magic bytes first and
	// only falls back to the extension when sniffing finds no image.
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
}
