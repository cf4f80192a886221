// Package cbzpages disk-caches individual pages extracted from a CBZ/CBR
// archive, so repeated reads of the same page (an OPDS reader re-fetching
// a page it already streamed, or a thumbnail regeneration) skip the
// zip/rar re-open and re-decompress. internal/processors/cbz and
// internal/processors/cbr wrap this around their GetPage implementation
// when a cache directory is configured.
package cbzpages

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Cache manages extracted archive page images on disk, keyed by the
// source archive's absolute path rather than a database id, so it works
// standalone (e.g. from a CLI) without a Media row.
type Cache struct {
	dir string
}

// NewCache creates a new Cache rooted at dir (typically cfg.CacheDir/cbz).
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// GetPage returns the bytes and MIME type of one page of archivePath,
// extracting and caching it first if it isn't already on disk. pageNum is
// 0-indexed. extract is called only on a cache miss, and must return the
// page's raw bytes plus its source entry name (used to derive the cached
// file's extension).
func (c *Cache) GetPage(archivePath string, pageNum int, extract func() (data []byte, entryName string, err error)) (data []byte, mimeType string, err error) {
	cacheDir := c.pageDir(archivePath)
	pattern := filepath.Join(cacheDir, fmt.Sprintf("page_%d.*", pageNum))
	matches, _ := filepath.Glob(pattern)
	if len(matches) > 0 {
		data, err := os.ReadFile(matches[0])
		if err != nil {
			return nil, "", errors.WithStack(err)
		}
		return data, mimeTypeFromPath(matches[0]), nil
	}

	raw, entryName, err := extract()
	if err != nil {
		return nil, "", err
	}
	if err := c.store(cacheDir, pageNum, entryName, raw); err != nil {
		return nil, "", err
	}
	return raw, mimeTypeFromPath(entryName), nil
}

// store writes raw to the cache directory atomically (temp file + rename)
// so a concurrent reader never observes a partial page.
func (c *Cache) store(cacheDir string, pageNum int, entryName string, raw []byte) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return errors.WithStack(err)
	}

	ext := strings.ToLower(filepath.Ext(entryName))
	cachedPath := filepath.Join(cacheDir, fmt.Sprintf("page_%d%s", pageNum, ext))
	tmpPath := cachedPath + ".tmp"

	if err := os.WriteFile(tmpPath, raw, 0644); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(tmpPath, cachedPath); err != nil {
		os.Remove(tmpPath)
		return errors.WithStack(err)
	}
	return nil
}

// pageDir returns the cache directory for one archive's pages, keyed by
// a content-free digest of its path (stable across process restarts,
// collision-free in practice).
func (c *Cache) pageDir(archivePath string) string {
	sum := sha256.Sum256([]byte(archivePath))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])[:32])
}

// Invalidate removes all cached pages for archivePath, e.g. after the
// scanner re-processes a modified file.
func (c *Cache) Invalidate(archivePath string) error {
	return os.RemoveAll(c.pageDir(archivePath))
}

// mimeTypeFromPath returns the MIME type based on file extension.
func mimeTypeFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
