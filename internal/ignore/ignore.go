// Package ignore parses .stumpignore files (one glob per line, "#"
// comments, "!" negation) and composes a library-level set with per-series
// sets discovered during a scan walk, mirroring how .gitignore composes
// across nested directories.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Set is a compiled, ordered list of rules rooted at a single directory.
// Later rules override earlier ones when both match, the same as
// .gitignore's "last match wins" semantics.
type Set struct {
	root  string
	rules []rule
}

type rule struct {
	g        glob.Glob
	negate   bool
	original string
}

// Parse reads one .stumpignore file. A missing file yields an empty Set,
// not an error; a malformed glob aborts with GlobParseError so scan init
// can surface it immediately instead of silently ignoring nothing.
func Parse(path string) (*Set, error) {
	root := filepath.Dir(path)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{root: root}, nil
		}
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	set := &Set{root: root}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		negate := false
		pattern := line
		if strings.HasPrefix(pattern, "!") {
			negate = true
			pattern = pattern[1:]
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, GlobParseError{Pattern: pattern, Cause: err}
		}

		set.rules = append(set.rules, rule{g: g, negate: negate, original: pattern})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return set, nil
}

// GlobParseError reports a .stumpignore line that isn't a valid glob.
type GlobParseError struct {
	Pattern string
	Cause   error
}

func (e GlobParseError) Error() string {
	return "invalid ignore pattern " + e.Pattern + ": " + e.Cause.Error()
}

func (e GlobParseError) Unwrap() error {
	return e.Cause
}

// Compose layers a child Set (e.g. a series-level .stumpignore) on top of
// a parent Set (the library-level one), so a rule from either level can
// match a path under the child's root.
func Compose(parent, child *Set) *Set {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent
	}
	combined := &Set{root: child.root}
	combined.rules = append(combined.rules, parent.rules...)
	combined.rules = append(combined.rules, child.rules...)
	return combined
}

// Match reports whether path (relative to the set's root, forward-slash
// separated) is ignored: the last rule that matches decides, honoring
// negation, with "not matched by anything" defaulting to false.
func (s *Set) Match(relPath string) bool {
	if s == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range s.rules {
		if r.g.Match(relPath) {
			ignored = !r.negate
		}
	}
	return ignored
}

// Empty reports whether the set has no rules, used to skip recomputing
// relative paths when nothing could possibly match.
func (s *Set) Empty() bool {
	return s == nil || len(s.rules) == 0
}
