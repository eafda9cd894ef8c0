// Package ziparchiver provides an EPUB container adapter using the archive/zip package.
package ziparchiver

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/mcdonaldj/oeb2epub/internal/ports"
)

const (
	// MimetypeName is the name of the first entry of every EPUB container.
	MimetypeName = "mimetype"
	// Mimetype is the content of the mimetype entry.
	Mimetype = "application/epub+zip"
)

// ErrClosed is returned when adding entries to a closed writer.
var ErrClosed = errors.New("archive already closed")

// ZipArchiver implements ports.Archiver using archive/zip.
type ZipArchiver struct {
	fs    ports.FileSystem
	level int

	// now supplies entry timestamps for in-memory content.
	now func() time.Time
}

// New creates a new ZipArchiver adapter. level is a compress/flate level
// used for deflated entries.
func New(fs ports.FileSystem, level int) *ZipArchiver {
	return &ZipArchiver{
		fs:    fs,
		level: level,
		now:   time.Now,
	}
}

// Open creates or truncates destPath and writes the mimetype entry.
func (a *ZipArchiver) Open(destPath string) (ports.ArchiveWriter, error) {
	if a.level < flate.HuffmanOnly || a.level > flate.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", a.level)
	}

	out, err := a.fs.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", destPath, err)
	}

	zw := zip.NewWriter(out)
	level := a.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	w := &Writer{
		fs:   a.fs,
		zw:   zw,
		out:  out,
		dest: destPath,
		now:  a.now,
	}
	if err := w.AddBytes([]byte(Mimetype), MimetypeName, ports.Stored); err != nil {
		_ = w.Close() // Best effort cleanup on error path
		return nil, err
	}
	return w, nil
}

// Writer is an open EPUB container.
type Writer struct {
	fs     ports.FileSystem
	zw     *zip.Writer
	out    io.WriteCloser
	dest   string
	now    func() time.Time
	closed bool
}

// AddBytes appends content as a new entry named archivePath.
//
// Stored entries are written with their size and CRC in the local header
// and without extra fields, so the mimetype marker sits at a fixed offset.
func (w *Writer) AddBytes(content []byte, archivePath string, method ports.Compression) error {
	if w.closed {
		return ErrClosed
	}

	var (
		dst io.Writer
		err error
	)
	switch method {
	case ports.Stored:
		header := &zip.FileHeader{
			Name:               archivePath,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(content),
			CompressedSize64:   uint64(len(content)),
			UncompressedSize64: uint64(len(content)),
		}
		header.SetModTime(w.now()) //nolint:staticcheck // CreateRaw does not turn Modified into an extra field
		dst, err = w.zw.CreateRaw(header)
	case ports.Deflated:
		dst, err = w.zw.CreateHeader(&zip.FileHeader{
			Name:     archivePath,
			Method:   zip.Deflate,
			Modified: w.now(),
		})
	default:
		return fmt.Errorf("adding %s: unsupported compression %d", archivePath, method)
	}
	if err != nil {
		return fmt.Errorf("adding %s: %w", archivePath, err)
	}

	if _, err := dst.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", archivePath, err)
	}
	return nil
}

// AddFile streams the file at sourcePath into a deflated entry named archivePath.
// The entry keeps the source file's mode and modification time.
func (w *Writer) AddFile(sourcePath, archivePath string) error {
	if w.closed {
		return ErrClosed
	}

	file, err := w.fs.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", sourcePath, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", sourcePath, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", sourcePath, err)
	}
	header.Name = archivePath
	header.Method = zip.Deflate

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s: %w", archivePath, err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		return fmt.Errorf("copying %s: %w", sourcePath, err)
	}
	return nil
}

// Close writes the central directory and closes the destination file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	// Close zip writer first to flush data
	if err := w.zw.Close(); err != nil {
		_ = w.out.Close() // Best effort cleanup on error path
		return fmt.Errorf("closing zip writer: %w", err)
	}

	// Then close the file
	if err := w.out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.dest, err)
	}
	return nil
}

// Compile-time checks that the adapter implements the ports.
var (
	_ ports.Archiver      = (*ZipArchiver)(nil)
	_ ports.ArchiveWriter = (*Writer)(nil)
)
