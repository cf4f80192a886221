package epub

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOPF_Basic(t *testing.T) {
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:creator opf:role="aut">Jane Author</dc:creator>
    <dc:publisher>Acme Press</dc:publisher>
    <meta name="calibre:series" content="Test Series"/>
    <meta name="calibre:series_index" content="2"/>
  </metadata>
</package>`

	opf, err := ParseOPF("content.opf", io.NopCloser(strings.NewReader(opfXML)))
	require.NoError(t, err)

	assert.Equal(t, "Test Book", opf.OPF.Title)
	assert.Equal(t, "Acme Press", opf.OPF.Publisher)
	assert.Equal(t, "Test Series", opf.OPF.Series)
	require.NotNil(t, opf.OPF.SeriesNumber)
	assert.Equal(t, 2.0, *opf.OPF.SeriesNumber)
	require.Len(t, opf.OPF.Authors, 1)
	assert.Equal(t, "Jane Author", opf.OPF.Authors[0].Name)
}

func TestParseOPF_Identifiers(t *testing.T) {
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:identifier opf:scheme="ISBN">9780316769488</dc:identifier>
    <dc:identifier opf:scheme="ASIN">B08N5WRWNW</dc:identifier>
    <dc:identifier>urn:uuid:a1b2c3d4-e5f6-7890-abcd-ef1234567890</dc:identifier>
  </metadata>
</package>`

	opf, err := ParseOPF("test.opf", io.NopCloser(strings.NewReader(opfXML)))
	require.NoError(t, err)

	require.Len(t, opf.OPF.Identifiers, 3)

	idByType := make(map[string]string)
	for _, id := range opf.OPF.Identifiers {
		idByType[id.Type] = id.Value
	}

	assert.Equal(t, "9780316769488", idByType["isbn"])
	assert.Equal(t, "B08N5WRWNW", idByType["asin"])
	assert.Equal(t, "urn:uuid:a1b2c3d4-e5f6-7890-abcd-ef1234567890", idByType["other"])
}

func TestParseOPF_CoverHrefCanonicalized(t *testing.T) {
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="cover-img" href="../Styles/x.jpg" media-type="image/jpeg"/>
  </manifest>
</package>`

	opf, err := ParseOPF("OEBPS/content.opf", io.NopCloser(strings.NewReader(opfXML)))
	require.NoError(t, err)

	assert.Equal(t, "Styles/x.jpg", opf.OPF.CoverFilepath)
}

func TestCleanArchivePath(t *testing.T) {
	cases := []struct {
		base, href, want string
		wantErr          bool
	}{
		{"OEBPS/", "images/cover.jpg", "OEBPS/images/cover.jpg", false},
		{"OEBPS/", "../Styles/x.css", "Styles/x.css", false},
		{"", "chapter1.xhtml", "chapter1.xhtml", false},
		{"OEBPS/", "../../etc/passwd", "", true},
		{"", "../escape", "", true},
	}
	for _, c := range cases {
		got, err := CleanArchivePath(c.base, c.href)
		if c.wantErr {
			assert.Error(t, err, "base=%q href=%q", c.base, c.href)
			continue
		}
		require.NoError(t, err, "base=%q href=%q", c.base, c.href)
		assert.Equal(t, c.want, got)
	}
}
