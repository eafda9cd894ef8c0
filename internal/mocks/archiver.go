package mocks

import (
	"errors"
	"io"

	"github.com/mcdonaldj/oeb2epub/internal/ports"
)

// ErrMockClosed is returned when adding entries after Close.
var ErrMockClosed = errors.New("mock archive closed")

// MockArchiver implements ports.Archiver for testing.
type MockArchiver struct {
	// OpenCalls records destination paths passed to Open
	OpenCalls []string
	// Entries records added entries in order
	Entries []MockEntry
	// CloseCount counts effective (first) Close calls
	CloseCount int
	// Errors maps "Open", "AddBytes", "AddFile", "Close" or "AddFile:<name>" to errors
	Errors map[string]error
	// FS, when set, is read by AddFile to capture file contents
	FS ports.FileSystem

	closed bool
}

// MockEntry records one added archive entry.
type MockEntry struct {
	Name    string
	Content []byte
	Source  string // empty for AddBytes
	Method  ports.Compression
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		Errors: make(map[string]error),
	}
}

// Open records destPath and returns the archiver itself as the writer.
func (m *MockArchiver) Open(destPath string) (ports.ArchiveWriter, error) {
	m.OpenCalls = append(m.OpenCalls, destPath)
	if err, ok := m.Errors["Open"]; ok {
		return nil, err
	}
	m.closed = false
	return m, nil
}

// AddBytes records an in-memory entry.
func (m *MockArchiver) AddBytes(content []byte, archivePath string, method ports.Compression) error {
	if m.closed {
		return ErrMockClosed
	}
	if err, ok := m.Errors["AddBytes"]; ok {
		return err
	}
	m.Entries = append(m.Entries, MockEntry{
		Name:    archivePath,
		Content: append([]byte(nil), content...),
		Method:  method,
	})
	return nil
}

// AddFile records a file entry, reading its content from FS when set.
func (m *MockArchiver) AddFile(sourcePath, archivePath string) error {
	if m.closed {
		return ErrMockClosed
	}
	if err, ok := m.Errors["AddFile:"+archivePath]; ok {
		return err
	}
	if err, ok := m.Errors["AddFile"]; ok {
		return err
	}

	entry := MockEntry{Name: archivePath, Source: sourcePath, Method: ports.Deflated}
	if m.FS != nil {
		f, err := m.FS.Open(sourcePath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if entry.Content, err = io.ReadAll(f); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// Close marks the archive closed. Repeated calls are no-ops.
func (m *MockArchiver) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.CloseCount++
	if err, ok := m.Errors["Close"]; ok {
		return err
	}
	return nil
}

// Names returns the recorded entry names in order.
func (m *MockArchiver) Names() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}

// Compile-time checks that MockArchiver implements the ports.
var (
	_ ports.Archiver      = (*MockArchiver)(nil)
	_ ports.ArchiveWriter = (*MockArchiver)(nil)
)
