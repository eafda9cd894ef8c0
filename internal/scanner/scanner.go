// Package scanner enumerates the files of an Open Ebook Publication directory.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/mcdonaldj/oeb2epub/internal/ports"
)

// ErrInvalidRoot is returned when the publication root is missing or not a directory.
var ErrInvalidRoot = errors.New("not an existing directory")

// FileEntry is one regular file of a publication.
type FileEntry struct {
	AbsPath string // location on the local filesystem
	RelPath string // slash-separated path below the publication root
}

// Scanner walks publication directories through a ports.FileSystem.
type Scanner struct {
	fs ports.FileSystem
}

// New creates a Scanner reading from fsys.
func New(fsys ports.FileSystem) *Scanner {
	return &Scanner{fs: fsys}
}

// Scan returns every regular file below root, sorted by RelPath.
// Directories, symlinks and special files contribute no entries.
// Files whose absolute path matches one of skip are left out.
func (s *Scanner) Scan(root string, skip ...string) ([]FileEntry, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}
	// Clean drops a trailing separator.
	root = filepath.Clean(root)
	info, err := s.fs.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if resolved, err := s.fs.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		if abs, err := filepath.Abs(p); err == nil {
			skipped[abs] = true
			if resolved, err := s.fs.EvalSymlinks(abs); err == nil {
				skipped[resolved] = true
			}
		}
	}

	var entries []FileEntry
	walkErr := s.fs.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if !d.Type().IsRegular() || skipped[path] {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}
		entries = append(entries, FileEntry{
			AbsPath: path,
			RelPath: filepath.ToSlash(relPath),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelPath < entries[j].RelPath
	})
	return entries, nil
}
