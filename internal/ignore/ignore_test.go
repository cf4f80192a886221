package ignore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stumpgo/stump/internal/testgen"
)

func TestParseAndMatch(t *testing.T) {
	dir := testgen.TempDir(t, "ignore-*")
	testgen.WriteFile(t, dir, ".stumpignore", []byte("# comment\nSeries A/02.cbz\n!Series A/important.cbz\n"))

	set, err := Parse(filepath.Join(dir, ".stumpignore"))
	require.NoError(t, err)

	assert.True(t, set.Match("Series A/02.cbz"))
	assert.False(t, set.Match("Series A/01.cbz"))
	assert.False(t, set.Match("Series A/important.cbz"))
}

func TestParseMissingFile(t *testing.T) {
	dir := testgen.TempDir(t, "ignore-*")

	set, err := Parse(filepath.Join(dir, ".stumpignore"))
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.False(t, set.Match("anything"))
}

func TestParseInvalidGlob(t *testing.T) {
	dir := testgen.TempDir(t, "ignore-*")
	testgen.WriteFile(t, dir, ".stumpignore", []byte("[invalid\n"))

	_, err := Parse(filepath.Join(dir, ".stumpignore"))
	require.Error(t, err)
	var parseErr GlobParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestCompose(t *testing.T) {
	dir := testgen.TempDir(t, "ignore-*")
	testgen.WriteFile(t, dir, "library.stumpignore", []byte("*.tmp\n"))
	testgen.WriteFile(t, dir, "series.stumpignore", []byte("draft.cbz\n"))

	parent, err := Parse(filepath.Join(dir, "library.stumpignore"))
	require.NoError(t, err)
	child, err := Parse(filepath.Join(dir, "series.stumpignore"))
	require.NoError(t, err)

	combined := Compose(parent, child)
	assert.True(t, combined.Match("foo.tmp"))
	assert.True(t, combined.Match("draft.cbz"))
	assert.False(t, combined.Match("01.cbz"))
}
