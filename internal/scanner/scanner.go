// Package scanner discovers site source files.
//
// The scanner walks a directory below the site root, skips excluded names,
// reads each matching file and records its root-relative path, modification
// time and CRC32 checksum for change detection.
package scanner

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	siteerrors "github.com/conneroisu/strata/internal/errors"
)

// File is one discovered source file.
type File struct {
	// Path is relative to the site root and slash-separated.
	Path string
	// Abs is the absolute file path.
	Abs string
	// Rel is relative to the scanned directory and slash-separated.
	Rel     string
	Content []byte
	Hash    string
	ModTime time.Time
	Size    int64
}

// Scanner walks directories below a site root.
type Scanner struct {
	root     string
	excludes []string
}

// New returns a scanner for root. Exclude patterns use filepath.Match
// syntax and are tried against both the base name and the root-relative
// path of every file and directory.
func New(root string, excludes []string) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, siteerrors.NewIOError(root, "cannot resolve site root", err)
	}

	for _, pattern := range excludes {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, siteerrors.NewConfigError("exclude", fmt.Sprintf("invalid pattern %q", pattern)).WithCause(err)
		}
	}

	return &Scanner{root: abs, excludes: slices.Clone(excludes)}, nil
}

// Root returns the absolute site root.
func (s *Scanner) Root() string { return s.root }

// Excluded reports whether the root-relative path matches an exclude
// pattern.
func (s *Scanner) Excluded(relPath string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range s.excludes {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
	}

	return false
}

// Scan reads every file under dir (relative to the root) whose extension is
// in exts, or every file when exts is empty. A missing dir yields no files.
// Files come back in lexical path order.
func (s *Scanner) Scan(ctx context.Context, dir string, exts ...string) ([]File, error) {
	base, err := s.validatePath(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, siteerrors.NewIOError(base, "cannot stat source directory", err)
	}
	if !info.IsDir() {
		return nil, siteerrors.NewIOError(base, "source path is not a directory", nil)
	}

	var files []File
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return siteerrors.NewIOError(path, "cannot walk source directory", walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relRoot, err := filepath.Rel(s.root, path)
		if err != nil {
			return siteerrors.NewIOError(path, "cannot relativize path", err)
		}
		relRoot = filepath.ToSlash(relRoot)

		if path != base && s.Excluded(relRoot) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		file, err := s.read(path)
		if err != nil {
			return err
		}

		relDir, _ := filepath.Rel(base, path)
		file.Path = relRoot
		file.Rel = filepath.ToSlash(relDir)
		files = append(files, file)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ReadFile reads a single root-relative file.
func (s *Scanner) ReadFile(relPath string) (File, error) {
	abs, err := s.validatePath(relPath)
	if err != nil {
		return File{}, err
	}

	file, err := s.read(abs)
	if err != nil {
		return File{}, err
	}
	file.Path = filepath.ToSlash(filepath.Clean(relPath))
	file.Rel = filepath.Base(abs)

	return file, nil
}

func (s *Scanner) read(abs string) (File, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, siteerrors.NewIOError(abs, "cannot stat source file", err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return File{}, siteerrors.NewIOError(abs, "cannot read source file", err)
	}

	return File{
		Abs:     abs,
		Content: content,
		Hash:    Checksum(content),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// Checksum returns the hex CRC32 checksum of content.
func Checksum(content []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(content))
}

// validatePath resolves a root-relative path and rejects anything that
// leaves the root.
func (s *Scanner) validatePath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", siteerrors.NewPreconditionError(relPath, "source path must be relative to the site root")
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", siteerrors.NewPreconditionError(relPath, "source path escapes the site root")
	}

	return filepath.Join(s.root, cleaned), nil
}
