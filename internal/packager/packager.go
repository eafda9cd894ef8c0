// Package packager turns an Open Ebook Publication directory into an EPUB container.
//
// It never prints or exits: every failure comes back as an error that the
// caller maps to a message and exit status.
package packager

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mcdonaldj/oeb2epub/internal/ports"
	"github.com/mcdonaldj/oeb2epub/internal/scanner"
)

// ErrInvalidRoot is returned when the root is missing or not a directory.
var ErrInvalidRoot = scanner.ErrInvalidRoot

// Options describes one packaging run.
type Options struct {
	Root      string // publication directory
	Output    string // explicit archive path; derived from Root when empty
	OutputDir string // directory for a derived archive path
}

// Result describes a produced archive.
type Result struct {
	Output     string
	Descriptor string // descriptor path relative to the root
	FileCount  int    // publication files, excluding mimetype and container.xml
	Size       int64  // archive size in bytes, 0 if it could not be determined
}

// Packager composes the scanner and an archiver.
type Packager struct {
	fs       ports.FileSystem
	archiver ports.Archiver
	log      *zap.Logger
}

// New creates a Packager. A nil logger disables logging.
func New(fs ports.FileSystem, archiver ports.Archiver, log *zap.Logger) *Packager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Packager{
		fs:       fs,
		archiver: archiver,
		log:      log,
	}
}

// Package scans opts.Root, checks it holds exactly one .opf file and writes
// the EPUB container. The archive is closed on every return path.
func (p *Packager) Package(opts Options) (res Result, err error) {
	output := OutputName(opts.Root, opts.Output, opts.OutputDir)

	entries, err := scanner.New(p.fs).Scan(opts.Root, output)
	if err != nil {
		return Result{}, err
	}
	p.log.Debug("scanned publication", zap.String("root", opts.Root), zap.Int("files", len(entries)))

	descriptor, err := FindDescriptor(entries)
	if err != nil {
		return Result{}, err
	}
	p.log.Debug("found package descriptor", zap.String("path", descriptor.RelPath))

	w, err := p.archiver.Open(output)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := w.AddBytes(ContainerXML(descriptor.RelPath), ContainerPath, ports.Deflated); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", ContainerPath, err)
	}
	p.log.Debug("added entry", zap.String("name", ContainerPath), zap.Stringer("method", ports.Deflated))

	for _, e := range entries {
		name := ArchivePath(e.RelPath)
		if err := w.AddFile(e.AbsPath, name); err != nil {
			return Result{}, fmt.Errorf("packing %s: %w", e.RelPath, err)
		}
		p.log.Debug("added entry", zap.String("name", name), zap.String("source", e.AbsPath))
	}

	if err := w.Close(); err != nil {
		return Result{}, err
	}

	res = Result{
		Output:     output,
		Descriptor: descriptor.RelPath,
		FileCount:  len(entries),
	}
	if info, err := p.fs.Stat(output); err == nil {
		res.Size = info.Size()
	} else {
		p.log.Warn("could not stat archive", zap.String("path", output), zap.Error(err))
	}
	p.log.Debug("closed archive", zap.String("path", output), zap.Int64("bytes", res.Size))

	return res, nil
}
