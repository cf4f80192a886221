package cbr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpgo/stump/internal/testgen"
	"github.com/stumpgo/stump/pkg/mediafile"
)

// Real .rar fixtures can't be synthesized without a RAR encoder (rardecode
// is read-only), so these tests exercise the error paths that don't depend
// on decoding an actual archive.

func TestProcessor_CorruptArchive(t *testing.T) {
	dir := testgen.TempDir(t, "cbr-proc-*")
	path := filepath.Join(dir, "bad.cbr")
	testgen.WriteFile(t, dir, "bad.cbr", []byte("not a rar file"))

	p := Processor{}
	_, err := p.GetPageCount(path)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}

func TestProcessor_GetPage_CorruptArchive(t *testing.T) {
	dir := testgen.TempDir(t, "cbr-proc-*")
	path := filepath.Join(dir, "bad.cbr")
	testgen.WriteFile(t, dir, "bad.cbr", []byte("not a rar file"))

	p := Processor{}
	_, _, err := p.GetPage(path, 0)
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Corrupt))
}

func TestProcessor_MissingFile(t *testing.T) {
	p := Processor{}
	_, err := p.GetPageCount(filepath.Join(t.TempDir(), "missing.cbr"))
	require.Error(t, err)
	assert.True(t, mediafile.Is(err, mediafile.Io))
}
