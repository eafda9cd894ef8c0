package packager

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdonaldj/oeb2epub/internal/scanner"
)

const (
	// DescriptorExt identifies package-description (OPF) files.
	DescriptorExt = ".opf"
	// ContainerPath is the archive name of the generated container descriptor.
	ContainerPath = "META-INF/container.xml"
	// ContentDir is the archive directory holding the publication files.
	ContentDir = "OEBPS"
)

const containerTemplate = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s/%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

var (
	// ErrDescriptorMissing is returned when a publication has no .opf file.
	ErrDescriptorMissing = errors.New("no .opf files found")
	// ErrDescriptorAmbiguous matches an AmbiguousDescriptorError via errors.Is.
	ErrDescriptorAmbiguous = errors.New("found too many .opf files")
)

// AmbiguousDescriptorError lists the .opf files of a publication that has more than one.
type AmbiguousDescriptorError struct {
	Names []string
}

func (e *AmbiguousDescriptorError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDescriptorAmbiguous, strings.Join(e.Names, ", "))
}

// Is reports whether target is ErrDescriptorAmbiguous.
func (e *AmbiguousDescriptorError) Is(target error) bool {
	return target == ErrDescriptorAmbiguous
}

// FindDescriptor returns the single entry whose RelPath ends in .opf.
func FindDescriptor(entries []scanner.FileEntry) (scanner.FileEntry, error) {
	var found []scanner.FileEntry
	for _, e := range entries {
		if strings.HasSuffix(e.RelPath, DescriptorExt) {
			found = append(found, e)
		}
	}

	switch len(found) {
	case 0:
		return scanner.FileEntry{}, ErrDescriptorMissing
	case 1:
		return found[0], nil
	}

	names := make([]string, len(found))
	for i, e := range found {
		names[i] = e.RelPath
	}
	return scanner.FileEntry{}, &AmbiguousDescriptorError{Names: names}
}

// ContainerXML renders META-INF/container.xml pointing at the descriptor
// found at relPath below the publication root.
func ContainerXML(relPath string) []byte {
	var escaped bytes.Buffer
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&escaped, []byte(relPath))
	return []byte(fmt.Sprintf(containerTemplate, ContentDir, escaped.String()))
}

// ArchivePath returns the archive name of a publication file.
func ArchivePath(relPath string) string {
	return ContentDir + "/" + relPath
}
