package ports

// Compression selects how an entry's bytes are stored in the archive.
type Compression int

const (
	// Stored keeps the bytes uncompressed.
	Stored Compression = iota
	// Deflated compresses the bytes with DEFLATE.
	Deflated
)

// String returns the lowercase name of the compression mode.
func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case Deflated:
		return "deflated"
	}
	return "unknown"
}

// Archiver abstracts EPUB container creation for testability.
// Production code uses ZipArchiver adapter; tests use MockArchiver.
type Archiver interface {
	// Open creates or truncates destPath and returns a writer whose first
	// entry is already the uncompressed mimetype marker.
	Open(destPath string) (ArchiveWriter, error)
}

// ArchiveWriter appends entries to an open container.
// Entries appear in the archive in the order they are added.
type ArchiveWriter interface {
	// AddBytes appends an entry holding content, timestamped now.
	AddBytes(content []byte, archivePath string, method Compression) error

	// AddFile streams the file at sourcePath into a deflated entry.
	AddFile(sourcePath, archivePath string) error

	// Close writes the central directory and closes the destination.
	// Calling Close more than once is a no-op.
	Close() error
}
