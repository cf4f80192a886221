package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
	"github.com/stumpgo/stump/pkg/mediafile"
)

func TestProcessor_GetPageCount(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book"})

	p := Processor{}
	n, err := p.GetPageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessor_GetPage(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book"})

	p := Processor{}
	data, contentType, err := p.GetPage(path, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "application/xhtml+xml", contentType)
}

func TestProcessor_GetPage_OutOfRange(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book"})

	p := Processor{}
	_, _, err := p.GetPage(path, 1)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.PageOutOfRange))
}

func TestProcessor_GetCover(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book", HasCover: true})

	p := Processor{}
	data, contentType, err := p.GetCover(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "image/png", contentType)
}

func TestProcessor_GetCover_NoCover(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book", HasCover: false})

	p := Processor{}
	_, _, err := p.GetCover(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Empty))
}

func TestProcessor_ReadEmbeddedMetadata(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{
		Title:   "A Book",
		Authors: []string{"Jane Doe"},
		Series:  "The Chronicles",
	})

	p := Processor{}
	meta, err := p.ReadEmbeddedMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "A Book", meta.Title)
	assert.Equal(t, "The Chronicles", meta.Series)
	require.Len(t, meta.Authors, 1)
	assert.Equal(t, "Jane Doe", meta.Authors[0].Name)
}

func TestProcessor_ContentHash_Stable(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "A Book"})

	p := Processor{}
	h1, err := p.ContentHash(path)
	require.NoError(t, err)
	h2, err := p.ContentHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

// TestProcessor_SpineHrefWithDotDotIsCanonicalized builds an EPUB whose
// manifest references a spine item via a "../"-relative href, matching
// spec.md's "OEBPS/../Styles/x.css must be canonicalised before lookup"
// requirement. The referenced file lives at the archive root (outside
// OEBPS/), so the page only resolves if the href is canonicalised before
// being matched against the zip's actual entries.
func TestProcessor_SpineHrefWithDotDotIsCanonicalized(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := buildEPUBWithDotDotHref(t, dir)

	p := Processor{}
	data, contentType, err := p.GetPage(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "application/xhtml+xml", contentType)
	assert.Contains(t, string(data), "Escaped Chapter")
}

func buildEPUBWithDotDotHref(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "dotdot.epub")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	require.NoError(t, err)

	containerXML := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
	writeEntry(t, zw, "META-INF/container.xml", containerXML)

	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Escaped Href Book</dc:title>
    <dc:identifier id="bookid">urn:uuid:test-dotdot</dc:identifier>
  </metadata>
  <manifest>
    <item id="chapter1" href="../Styles/chapter1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="chapter1"/>
  </spine>
</package>`
	writeEntry(t, zw, "OEBPS/content.opf", opfXML)

	chapterXML := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Escaped Chapter</h1></body></html>`
	writeEntry(t, zw, "Styles/chapter1.xhtml", chapterXML)

	require.NoError(t, zw.Close())
	return path
}

func writeEntry(t *testing.T, zw *zip.Writer, name, content string) {
	t.Helper()
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
}

func TestProcessor_CorruptArchive(t *testing.T) {
	dir := testgen.TempDir(t, "epub-proc-*")
	path := filepath.Join(dir, "bad.epub")
	testgen.WriteFile(t, dir, "bad.epub", []byte("not a zip file"))

	p := Processor{}
	_, err := p.GetPageCount(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}
