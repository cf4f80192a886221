package fileutils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	_ "image/gif" // Register GIF decoder for image normalization.

	_ "golang.org/x/image/webp" // Register WebP decoder for image normalization.
)

// MoveFile moves a file from source to destination, falling back to a
// copy-then-delete when a rename fails (e.g. cross-device).
func MoveFile(src, dst string) error {
	return moveFile(src, dst)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return errors.WithStack(err)
	}

	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return errors.WithStack(err)
	}

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(destFile.Chmod(sourceInfo.Mode()))
}

// GenerateUniqueFilepathIfExists appends " (N)" before the extension until
// the path doesn't collide with an existing file.
func GenerateUniqueFilepathIfExists(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	nameWithoutExt := base[:len(base)-len(ext)]

	for i := 1; i < 1000; i++ {
		newPath := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", nameWithoutExt, i, ext))
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	return path
}

// CoverImageExtensions contains all supported image extensions for cover files.
var CoverImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"}

// MimeTypeFromExtension returns the MIME type for a given file extension.
// Returns empty string if the extension is not recognized.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return ""
	}
}

// CleanupEmptyDirectory removes a directory if it's empty or only contains
// ignored files. ignoredPatterns can include glob patterns like ".*"
// (dotfiles), ".DS_Store", "Thumbs.db", etc. Returns true if the directory
// was removed.
func CleanupEmptyDirectory(dirPath string, ignoredPatterns ...string) (bool, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	var filesToRemove []string
	for _, entry := range entries {
		if entry.IsDir() {
			return false, nil
		}
		name := entry.Name()
		if !matchesIgnoredPattern(name, ignoredPatterns) {
			return false, nil
		}
		filesToRemove = append(filesToRemove, filepath.Join(dirPath, name))
	}

	for _, f := range filesToRemove {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return false, errors.WithStack(err)
		}
	}

	if err := os.Remove(dirPath); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

func matchesIgnoredPattern(filename string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == ".*" && strings.HasPrefix(filename, ".") {
			return true
		}
		if filename == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, filename); matched {
			return true
		}
	}
	return false
}

// CleanupEmptyParentDirectories removes empty parent directories starting
// from startPath up to (but not including) stopAt.
func CleanupEmptyParentDirectories(startPath, stopAt string, ignoredPatterns ...string) error {
	current := startPath
	for current != stopAt && current != "." && current != "/" {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}

		removed, err := CleanupEmptyDirectory(current, ignoredPatterns...)
		if err != nil {
			return err
		}
		if !removed {
			break
		}

		current = parent
	}
	return nil
}

// NormalizeImage decodes and re-encodes an image to strip problematic
// metadata (like gAMA chunks without sRGB in PNG) that cause color
// rendering issues in browsers. If the input is a JPEG, it stays as JPEG
// to preserve quality; otherwise it becomes PNG.
func NormalizeImage(data []byte, mimeType string) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mimeType, nil
	}

	var buf bytes.Buffer

	if mimeType == "image/jpeg" || mimeType == "image/jpg" {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return data, mimeType, nil
		}
		return buf.Bytes(), "image/jpeg", nil
	}

	if err := png.Encode(&buf, img); err != nil {
		return data, mimeType, nil
	}

	return buf.Bytes(), "image/png", nil
}
