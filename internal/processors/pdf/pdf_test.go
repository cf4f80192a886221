package pdf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
	"github.com/stumpgo/stump/pkg/mediafile"
)

func TestProcessor_GetPage_RenderingDisabled(t *testing.T) {
	dir := testgen.TempDir(t, "pdf-proc-*")
	path := filepath.Join(dir, "doc.pdf")
	testgen.WriteFile(t, dir, "doc.pdf", []byte("%PDF-1.4 not a real document"))

	p := &Processor{RenderingEnabled: false}
	_, _, err := p.GetPage(path, 0)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Unsupported))
}

func TestProcessor_GetCover_RenderingDisabled(t *testing.T) {
	dir := testgen.TempDir(t, "pdf-proc-*")
	path := filepath.Join(dir, "doc.pdf")
	testgen.WriteFile(t, dir, "doc.pdf", []byte("%PDF-1.4 not a real document"))

	p := &Processor{RenderingEnabled: false}
	_, _, err := p.GetCover(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Unsupported))
}

func TestProcessor_GetPageCount_Corrupt(t *testing.T) {
	dir := testgen.TempDir(t, "pdf-proc-*")
	path := filepath.Join(dir, "doc.pdf")
	testgen.WriteFile(t, dir, "doc.pdf", []byte("this is not a pdf at all"))

	p := &Processor{}
	_, err := p.GetPageCount(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}

func TestProcessor_ReadEmbeddedMetadata_Corrupt(t *testing.T) {
	dir := testgen.TempDir(t, "pdf-proc-*")
	path := filepath.Join(dir, "doc.pdf")
	testgen.WriteFile(t, dir, "doc.pdf", []byte("this is not a pdf at all"))

	p := &Processor{}
	_, err := p.ReadEmbeddedMetadata(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"fiction", "mystery"}, splitKeywords("fiction, mystery"))
	assert.Equal(t, []string{"a", "b", "c"}, splitKeywords("a;b;c"))
	assert.Empty(t, splitKeywords(""))
}
