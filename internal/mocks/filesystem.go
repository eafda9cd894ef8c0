// Package mocks provides mock implementations for testing.
package mocks

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/mcdonaldj/oeb2epub/internal/ports"
)

// MockFileSystem implements ports.FileSystem for testing.
// Paths are slash-separated and absolute.
type MockFileSystem struct {
	// Files maps paths to file contents
	Files map[string][]byte
	// Dirs marks paths as existing directories
	Dirs map[string]bool
	// Links maps symlink paths to their targets; WalkDir does not follow them
	Links map[string]string
	// Errors maps paths to errors (for simulating failures)
	Errors map[string]error
	// Created holds the bytes written through Create
	Created map[string]*bytes.Buffer
	// ModTime is reported for every file
	ModTime time.Time
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:   make(map[string][]byte),
		Dirs:    make(map[string]bool),
		Links:   make(map[string]string),
		Errors:  make(map[string]error),
		Created: make(map[string]*bytes.Buffer),
		ModTime: time.Date(2007, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddFile stores content at name and marks every parent as a directory.
func (m *MockFileSystem) AddFile(name string, content []byte) {
	m.Files[name] = content
	for dir := path.Dir(name); ; dir = path.Dir(dir) {
		m.Dirs[dir] = true
		if dir == "/" || dir == "." {
			break
		}
	}
}

// Stat returns file info for the named file, following links.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if target, ok := m.Links[name]; ok {
		return m.Stat(target)
	}
	if m.Dirs[name] {
		return &mockFileInfo{name: path.Base(name), mode: fs.ModeDir | 0755, modTime: m.ModTime}, nil
	}
	if content, ok := m.Files[name]; ok {
		return &mockFileInfo{name: path.Base(name), size: int64(len(content)), mode: 0644, modTime: m.ModTime}, nil
	}
	if buf, ok := m.Created[name]; ok {
		return &mockFileInfo{name: path.Base(name), size: int64(buf.Len()), mode: 0644, modTime: m.ModTime}, nil
	}
	return nil, os.ErrNotExist
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (fs.File, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &mockFile{
		info:   &mockFileInfo{name: path.Base(name), size: int64(len(content)), mode: 0644, modTime: m.ModTime},
		reader: bytes.NewReader(content),
	}, nil
}

// Create creates or truncates the named file in Created.
func (m *MockFileSystem) Create(name string) (io.WriteCloser, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	buf := &bytes.Buffer{}
	m.Created[name] = buf
	return &mockWriter{buf: buf}, nil
}

// WalkDir visits root and every known path below it in lexical order.
func (m *MockFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	if !m.Dirs[root] {
		return fn(root, nil, os.ErrNotExist)
	}

	var paths []string
	add := func(p string) {
		if p == root || strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/") {
			paths = append(paths, p)
		}
	}
	for p := range m.Dirs {
		add(p)
	}
	for p := range m.Files {
		add(p)
	}
	for p := range m.Links {
		add(p)
	}
	sort.Strings(paths)

	var skipped []string
	for _, p := range paths {
		if underAny(p, skipped) {
			continue
		}

		entry := m.dirEntry(p)
		err := fn(p, entry, m.Errors[p])
		switch {
		case err == nil:
		case errors.Is(err, fs.SkipAll):
			return nil
		case errors.Is(err, fs.SkipDir):
			if entry.IsDir() {
				skipped = append(skipped, p)
			}
		default:
			return err
		}
	}
	return nil
}

// EvalSymlinks resolves name through Links.
func (m *MockFileSystem) EvalSymlinks(name string) (string, error) {
	if err, ok := m.Errors[name]; ok {
		return "", err
	}
	if target, ok := m.Links[name]; ok {
		return m.EvalSymlinks(target)
	}
	return name, nil
}

func (m *MockFileSystem) dirEntry(p string) *mockDirEntry {
	e := &mockDirEntry{info: &mockFileInfo{name: path.Base(p), modTime: m.ModTime}}
	switch {
	case m.Dirs[p]:
		e.info.mode = fs.ModeDir | 0755
	case m.Links[p] != "":
		e.info.mode = fs.ModeSymlink | 0777
	default:
		e.info.mode = 0644
		e.info.size = int64(len(m.Files[p]))
	}
	return e
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements fs.DirEntry for testing.
type mockDirEntry struct {
	info *mockFileInfo
}

func (e *mockDirEntry) Name() string               { return e.info.name }
func (e *mockDirEntry) IsDir() bool                { return e.info.IsDir() }
func (e *mockDirEntry) Type() fs.FileMode          { return e.info.mode.Type() }
func (e *mockDirEntry) Info() (fs.FileInfo, error) { return e.info, nil }

// mockFile implements fs.File for testing.
type mockFile struct {
	info   *mockFileInfo
	reader *bytes.Reader
}

func (f *mockFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *mockFile) Read(p []byte) (int, error) { return f.reader.Read(p) }
func (f *mockFile) Close() error               { return nil }

// mockWriter implements io.WriteCloser over a buffer.
type mockWriter struct {
	buf    *bytes.Buffer
	closed bool
}

func (w *mockWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
