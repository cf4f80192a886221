package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/htmlutil"
	"github.com/stumpgo/stump/pkg/mediafile"
)

type OPF struct {
	Title         string
	Authors       []mediafile.ParsedAuthor
	Series        string
	SeriesNumber  *float64
	Genres        []string
	Tags          []string
	Description   string
	Publisher     string
	Imprint       string
	URL           string
	ReleaseDate   *time.Time
	CoverFilepath string
	CoverMimeType string
	CoverData     []byte
	Identifiers   []mediafile.ParsedIdentifier
}

type Package struct {
	XMLName          xml.Name `xml:"package"`
	Text             string   `xml:",chardata"`
	Xmlns            string   `xml:"xmlns,attr"`
	Version          string   `xml:"version,attr"`
	UniqueIdentifier string   `xml:"unique-identifier,attr"`
	Metadata         struct {
		Text    string `xml:",chardata"`
		Opf     string `xml:"opf,attr"`
		Dc      string `xml:"dc,attr"`
		Dcterms string `xml:"dcterms,attr"`
		Xsi     string `xml:"xsi,attr"`
		Calibre string `xml:"calibre,attr"`
		Title   []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Role   string `xml:"role,attr"`
			FileAs string `xml:"file-as,attr"`
		} `xml:"creator"`
		Contributor struct {
			Text string `xml:",chardata"`
			Role string `xml:"role,attr"`
		} `xml:"contributor"`
		Description string   `xml:"description"`
		Subject     []string `xml:"subject"`
		Publisher   string   `xml:"publisher"`
		Identifier  []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Scheme string `xml:"scheme,attr"`
		} `xml:"identifier"`
		Date     string   `xml:"date"`
		Relation []string `xml:"relation"`
		Source   []string `xml:"source"`
		Rights   string   `xml:"rights"`
		Language string   `xml:"language"`
		Meta     []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Text string `xml:",chardata"`
		Item []struct {
			Text       string `xml:",chardata"`
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Text    string `xml:",chardata"`
		Toc     string `xml:"toc,attr"`
		Itemref []struct {
			Text  string `xml:",chardata"`
			Idref string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Parse reads an EPUB's package document (the first *.opf entry found in
// the archive) and its embedded cover. META-INF/container.xml's rootfile is
// not consulted.
func Parse(path string) (*mediafile.ParsedMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}
	defer f.Close()

	stats, err := f.Stat()
	if err != nil {
		return nil, mediafile.NewError(mediafile.Io, path, err)
	}
	size := stats.Size()

	zipReader, err := zip.NewReader(f, size)
	if err != nil {
		return nil, mediafile.NewError(mediafile.Corrupt, path, err)
	}

	var result *ParseOPFResult
	for _, file := range zipReader.File {
		ext := filepath.Ext(file.Name)
		if ext == ".opf" {
			r, err := file.Open()
			if err != nil {
				return nil, mediafile.NewError(mediafile.Corrupt, path, err)
			}
			result, err = ParseOPF(file.Name, r)
			if err != nil {
				return nil, mediafile.NewError(mediafile.MetadataParse, path, err)
			}
			break
		}
	}

	if result == nil {
		return nil, mediafile.NewError(mediafile.Corrupt, path, errors.New("no opf file found"))
	}

	opf := result.OPF

	if opf.CoverFilepath != "" {
		for _, file := range zipReader.File {
			if file.Name == opf.CoverFilepath {
				r, err := file.Open()
				if err != nil {
					return nil, mediafile.NewError(mediafile.Corrupt, path, err)
				}
				b, err := io.ReadAll(r)
				r.Close()
				if err != nil {
					return nil, mediafile.NewError(mediafile.Corrupt, path, err)
				}
				opf.CoverData = b
			}
		}
	}

	return &mediafile.ParsedMetadata{
		Title:         opf.Title,
		Authors:       opf.Authors,
		Series:        opf.Series,
		SeriesNumber:  opf.SeriesNumber,
		Genres:        opf.Genres,
		Tags:          opf.Tags,
		Description:   opf.Description,
		Publisher:     opf.Publisher,
		Imprint:       opf.Imprint,
		URL:           opf.URL,
		ReleaseDate:   opf.ReleaseDate,
		CoverMimeType: opf.CoverMimeType,
		CoverData:     opf.CoverData,
		Identifiers:   opf.Identifiers,
	}, nil
}

// CleanArchivePath resolves a manifest href against the OPF's base path
// using "/"-separated archive semantics (zip entries always use forward
// slashes, regardless of host OS), collapsing "." and ".." segments. A
// result that would climb above the archive root — e.g. a manifest href of
// "../../etc/passwd" — is rejected, per spec.md §4.2's requirement that a
// path like "OEBPS/../Styles/x.css" be canonicalised before lookup.
func CleanArchivePath(base, href string) (string, error) {
	joined := href
	if base != "" {
		joined = strings.TrimSuffix(base, "/") + "/" + href
	}
	cleaned := strings.TrimPrefix(path.Clean(joined), "/")
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Errorf("epub: href %q escapes archive root", href)
	}
	return cleaned, nil
}

// ParseOPFResult contains the parsed OPF data along with the raw package and base path
// needed for resolving relative paths to other files in the EPUB.
type ParseOPFResult struct {
	OPF      *OPF
	Package  *Package
	BasePath string
}

func ParseOPF(filename string, r io.ReadCloser) (*ParseOPFResult, error) {
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pkg := &Package{}
	err = xml.Unmarshal(b, pkg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	basePath := filepath.Dir(filename)
	if basePath == "." {
		basePath = ""
	} else {
		basePath += "/"
	}

	metaProperties := map[string]map[string]string{}
	metaContent := map[string]string{}
	for _, m := range pkg.Metadata.Meta {
		if m.Refines != "" {
			key := strings.ReplaceAll(m.Refines, "#", "")
			if _, ok := metaProperties[key]; !ok {
				metaProperties[key] = map[string]string{}
			}
			metaProperties[key][m.Property] = m.Text
		} else if m.Content != "" {
			metaContent[m.Name] = m.Content
		}
	}

	title := ""
	if len(pkg.Metadata.Title) == 1 {
		title = pkg.Metadata.Title[0].Text
	} else if len(pkg.Metadata.Title) > 1 {
		for _, t := range pkg.Metadata.Title {
			titleType := ""
			if t.ID != "" && metaProperties[t.ID] != nil {
				titleType = metaProperties[t.ID]["title-type"]
			}
			if titleType == "main" || t.ID == "title-main" {
				title = t.Text
			}
		}
		if title == "" {
			title = pkg.Metadata.Title[0].Text
		}
	}

	authors := []mediafile.ParsedAuthor{}
	for _, creator := range pkg.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" && metaProperties[creator.ID] != nil {
			role = metaProperties[creator.ID]["role"]
		}
		if role == "aut" || len(pkg.Metadata.Creator) == 1 {
			authors = append(authors, mediafile.ParsedAuthor{Name: creator.Text, Role: ""})
		}
	}

	coverFilepath := ""
	coverMimeType := ""
	if metaContent["cover"] != "" {
		for _, item := range pkg.Manifest.Item {
			if item.ID == metaContent["cover"] {
				cleaned, err := CleanArchivePath(basePath, item.Href)
				if err != nil {
					continue
				}
				coverFilepath = cleaned
				coverMimeType = item.MediaType
			}
		}
	}

	series := metaContent["calibre:series"]
	var seriesNumber *float64
	if seriesIndexStr := metaContent["calibre:series_index"]; seriesIndexStr != "" {
		if num, err := strconv.ParseFloat(seriesIndexStr, 64); err == nil {
			seriesNumber = &num
		}
	}

	var genres []string
	for _, subject := range pkg.Metadata.Subject {
		subject = strings.TrimSpace(subject)
		if subject != "" {
			genres = append(genres, subject)
		}
	}

	var tags []string
	if calibreTags := metaContent["calibre:tags"]; calibreTags != "" {
		for _, tag := range strings.Split(calibreTags, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	description := htmlutil.StripTags(pkg.Metadata.Description)
	publisher := pkg.Metadata.Publisher

	var releaseDate *time.Time
	if pkg.Metadata.Date != "" {
		formats := []string{
			"2006-01-02",
			"2006-01-02T15:04:05Z",
			"2006-01-02T15:04:05-07:00",
			"2006",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, pkg.Metadata.Date); err == nil {
				releaseDate = &t
				break
			}
		}
	}

	var imprint string
	for _, m := range pkg.Metadata.Meta {
		if m.Property == "ibooks:imprint" || m.Name == "imprint" {
			imprint = m.Text
			if imprint == "" {
				imprint = m.Content
			}
			break
		}
	}

	var url string
	for _, rel := range pkg.Metadata.Relation {
		if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
			url = rel
			break
		}
	}
	if url == "" {
		for _, src := range pkg.Metadata.Source {
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				url = src
				break
			}
		}
	}

	var identifiersList []mediafile.ParsedIdentifier
	for _, identifier := range pkg.Metadata.Identifier {
		value := strings.TrimSpace(identifier.Text)
		if value == "" {
			continue
		}
		idType := identifier.Scheme
		if idType == "" {
			idType = "other"
		}
		identifiersList = append(identifiersList, mediafile.ParsedIdentifier{
			Type:  strings.ToLower(idType),
			Value: value,
		})
	}

	return &ParseOPFResult{
		OPF: &OPF{
			Title:         title,
			Authors:       authors,
			Series:        series,
			SeriesNumber:  seriesNumber,
			Genres:        genres,
			Tags:          tags,
			Description:   description,
			Publisher:     publisher,
			Imprint:       imprint,
			URL:           url,
			ReleaseDate:   releaseDate,
			CoverFilepath: coverFilepath,
			CoverMimeType: coverMimeType,
			Identifiers:   identifiersList,
		},
		Package:  pkg,
		BasePath: basePath,
	}, nil
}
