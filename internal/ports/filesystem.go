// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"io"
	"io/fs"
	"os"
)

// FileSystem abstracts the filesystem operations used to read a publication
// and write its archive.
// Production code uses OSFileSystem adapter; tests use MockFileSystem.
type FileSystem interface {
	// Stat returns file info for the named file, following symlinks.
	Stat(name string) (os.FileInfo, error)

	// Open opens the named file for reading.
	Open(name string) (fs.File, error)

	// Create creates or truncates the named file for writing.
	Create(name string) (io.WriteCloser, error)

	// WalkDir walks the file tree rooted at root in lexical order,
	// calling fn for each file or directory. Symlinks are not followed.
	WalkDir(root string, fn fs.WalkDirFunc) error

	// EvalSymlinks returns the path after resolving any symbolic links.
	EvalSymlinks(path string) (string, error)
}
