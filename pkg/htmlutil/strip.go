// Package htmlutil strips markup from embedded metadata fields (ComicInfo's
// Summary, an EPUB's OPF description) down to plain text for display.
package htmlutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// multipleSpacesPattern matches multiple consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

// blockAtoms are tags that visually break a line; StripTags turns each
// occurrence into a newline before discarding all other markup, the way a
// reader renders block layout as plain-text paragraphs.
var blockAtoms = map[atom.Atom]bool{
	atom.P:   true,
	atom.Div: true,
	atom.Br:  true,
	atom.Li:  true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
	atom.H4:  true,
	atom.H5:  true,
	atom.H6:  true,
}

// StripTags removes all HTML tags from a string and normalizes whitespace.
// It tokenizes with golang.org/x/net/html rather than a regex so malformed
// or unclosed tags (common in hand-edited ComicInfo.xml Summary fields)
// don't leak into the output; block-level elements become newlines to
// preserve paragraph structure. Entity decoding is done by
// decodeHTMLEntities on the raw text, not the tokenizer's own unescaping,
// so named/numeric entities map to the exact characters this package has
// always produced (e.g. &nbsp; to a plain space, not U+00A0).
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeWhitespace(decodeHTMLEntities(b.String()))
		case html.TextToken:
			b.Write(z.Raw())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockAtoms[atom.Lookup(name)] {
				b.WriteByte('\n')
			}
		}
	}
}

// normalizeWhitespace collapses runs of spaces/tabs within each line,
// trims each line, and drops empty lines, so the block-level newlines
// StripTags inserts produce clean paragraph breaks instead of blank runs.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	nonEmpty := make([]string, 0, len(lines))
	for _, line := range lines {
		line = multipleSpacesPattern.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// decodeHTMLEntities decodes common HTML entities to their character equivalents.
func decodeHTMLEntities(s string) string {
	// Common named and numeric entities
	replacements := []struct {
		entity string
		char   string
	}{
		{"&nbsp;", " "},
		{"&#160;", " "}, // nbsp numeric
		{"&amp;", "&"},
		{"&#38;", "&"}, // ampersand numeric
		{"&lt;", "<"},
		{"&#60;", "<"}, // less than numeric
		{"&gt;", ">"},
		{"&#62;", ">"}, // greater than numeric
		{"&quot;", "\""},
		{"&#34;", "\""}, // quote numeric
		{"&#39;", "'"},
		{"&apos;", "'"},
		{"&mdash;", "—"},  // em dash
		{"&#8212;", "—"},  // em dash numeric
		{"&ndash;", "–"},  // en dash
		{"&#8211;", "–"},  // en dash numeric
		{"&hellip;", "…"}, // ellipsis
		{"&#8230;", "…"},  // ellipsis numeric
		{"&rsquo;", "’"},  // right single quote
		{"&#8217;", "’"},  // right single quote numeric
		{"&lsquo;", "‘"},  // left single quote
		{"&#8216;", "‘"},  // left single quote numeric
		{"&rdquo;", "”"},  // right double quote
		{"&#8221;", "”"},  // right double quote numeric
		{"&ldquo;", "“"},  // left double quote
		{"&#8220;", "“"},  // left double quote numeric
		{"&copy;", "©"},   // copyright
		{"&#169;", "©"},   // copyright numeric
		{"&reg;", "®"},    // registered
		{"&#174;", "®"},   // registered numeric
		{"&trade;", "™"},  // trademark
		{"&#8482;", "™"},  // trademark numeric
	}

	result := s
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.entity, r.char)
	}

	return result
}
