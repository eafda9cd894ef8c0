package cli

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/mcdonaldj/oeb2epub/internal/config"
	"github.com/mcdonaldj/oeb2epub/internal/mocks"
	"github.com/mcdonaldj/oeb2epub/internal/packager"
)

// newTestCLI returns a CLI with captured output and an isolated HOME.
func newTestCLI(t *testing.T, args ...string) (*CLI, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out, errOut bytes.Buffer
	c := NewForTesting(&out, &errOut, append([]string{"oeb2epub"}, args...))
	return c, &out, &errOut
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func TestExecuteSuccess(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{
		"content.opf":  "<package/>",
		"chapter.html": "<html/>",
	})

	c, out, errOut := newTestCLI(t, root)
	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d, expected %d (stderr: %s)", code, ExitOK, errOut.String())
	}

	expected := root + ".epub"
	r, err := zip.OpenReader(expected)
	if err != nil {
		t.Fatalf("archive %s not readable: %v", expected, err)
	}
	defer r.Close()
	if len(r.File) != 4 {
		t.Errorf("entries = %d, expected 4", len(r.File))
	}

	if !strings.Contains(out.String(), "Created "+expected) {
		t.Errorf("stdout = %q, expected summary line", out.String())
	}
	if !strings.Contains(out.String(), "2 files") {
		t.Errorf("stdout = %q, expected file count", out.String())
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr = %q, expected empty", errOut.String())
	}
}

func TestExecuteTrailingSeparator(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})

	c, _, errOut := newTestCLI(t, root+string(filepath.Separator))
	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	if _, err := os.Stat(root + ".epub"); err != nil {
		t.Errorf("expected %s.epub: %v", root, err)
	}
}

func TestExecuteExplicitOutput(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})
	output := filepath.Join(tempDir, "custom-name.zip")

	c, _, errOut := newTestCLI(t, root, output)
	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("explicit output missing: %v", err)
	}
	if _, err := os.Stat(root + ".epub"); !os.IsNotExist(err) {
		t.Error("derived output written despite explicit name")
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"too many arguments", []string{tempDir, "a.epub", "extra"}},
		{"missing directory", []string{filepath.Join(tempDir, "nope")}},
		{"regular file", []string{file}},
		{"unknown flag", []string{"--bogus", tempDir}},
		{"empty output name", []string{tempDir, ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out, errOut := newTestCLI(t, tt.args...)
			if code := c.Execute(); code != ExitUsage {
				t.Errorf("exit code = %d, expected %d", code, ExitUsage)
			}
			if !strings.Contains(errOut.String(), "Usage:") {
				t.Errorf("stderr = %q, expected usage", errOut.String())
			}
			if !strings.HasPrefix(errOut.String(), "error: ") {
				t.Errorf("stderr = %q, expected error prefix", errOut.String())
			}
			if out.Len() != 0 {
				t.Errorf("stdout = %q, expected empty", out.String())
			}
		})
	}
}

func TestExecuteMissingDescriptor(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{"chapter.html": "<html/>"})

	c, _, errOut := newTestCLI(t, root)
	if code := c.Execute(); code != ExitNoDescriptor {
		t.Errorf("exit code = %d, expected %d", code, ExitNoDescriptor)
	}
	if !strings.Contains(errOut.String(), "no .opf files found") {
		t.Errorf("stderr = %q, expected missing descriptor message", errOut.String())
	}
	if strings.Contains(errOut.String(), "Usage:") {
		t.Error("usage printed for a missing descriptor")
	}
	if _, err := os.Stat(root + ".epub"); !os.IsNotExist(err) {
		t.Error("archive created despite missing descriptor")
	}
}

func TestExecuteAmbiguousDescriptor(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{
		"a.opf":     "a",
		"sub/b.opf": "b",
	})

	c, _, errOut := newTestCLI(t, root)
	if code := c.Execute(); code != ExitAmbiguousDescriptor {
		t.Errorf("exit code = %d, expected %d", code, ExitAmbiguousDescriptor)
	}
	msg := errOut.String()
	if !strings.Contains(msg, "a.opf") || !strings.Contains(msg, "sub/b.opf") {
		t.Errorf("stderr = %q, expected both descriptor names", msg)
	}
	if strings.Count(msg, "\n") != 1 {
		t.Errorf("stderr = %q, expected a single line", msg)
	}
}

func TestExecuteIOError(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})
	output := filepath.Join(tempDir, "missing-dir", "book.epub")

	c, _, errOut := newTestCLI(t, root, output)
	if code := c.Execute(); code != ExitIOError {
		t.Errorf("exit code = %d, expected %d", code, ExitIOError)
	}
	if !strings.Contains(errOut.String(), "book.epub") {
		t.Errorf("stderr = %q, expected output path in message", errOut.String())
	}
}

func TestExecuteWithMocks(t *testing.T) {
	mockFS := mocks.NewMockFileSystem()
	mockFS.AddFile("/pub/book/content.opf", []byte("<package/>"))
	archiver := mocks.NewMockArchiver()
	archiver.Errors["AddFile"] = errors.New("disk full")

	c, _, errOut := newTestCLI(t, "/pub/book")
	c.FS = mockFS
	c.Archiver = archiver

	if code := c.Execute(); code != ExitIOError {
		t.Errorf("exit code = %d, expected %d", code, ExitIOError)
	}
	if !strings.Contains(errOut.String(), "disk full") {
		t.Errorf("stderr = %q, expected injected error", errOut.String())
	}
	if archiver.CloseCount != 1 {
		t.Errorf("CloseCount = %d, expected 1", archiver.CloseCount)
	}
}

func TestExecuteConfig(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})
	outDir := filepath.Join(tempDir, "shelf")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}

	cfgPath := filepath.Join(tempDir, "config.yaml")
	cfgContent := fmt.Sprintf("compression_level: 0\noutput_dir: %s\n", outDir)
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	c, _, errOut := newTestCLI(t, "--config", cfgPath, root)
	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "book.epub")); err != nil {
		t.Errorf("archive not placed in output_dir: %v", err)
	}
}

func TestExecuteInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})
	cfgPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	c, _, errOut := newTestCLI(t, "--config", cfgPath, root)
	if code := c.Execute(); code != ExitUsage {
		t.Errorf("exit code = %d, expected %d", code, ExitUsage)
	}
	if !strings.Contains(errOut.String(), "log_level") {
		t.Errorf("stderr = %q, expected config message", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Errorf("stderr = %q, expected usage", errOut.String())
	}
}

func TestExecuteNoColorConfig(t *testing.T) {
	// Force colors on so the config setting is what disables them
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	tests := []struct {
		name      string
		config    string
		wantColor bool
	}{
		{"colored by default", "log_level: warn\n", true},
		{"no_color set", "no_color: true\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			t.Setenv("HOME", tempDir)
			root := filepath.Join(tempDir, "book")
			writeTree(t, root, map[string]string{"chapter.xhtml": "<html/>"})
			cfgPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(cfgPath, []byte(tt.config), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			var out, errOut bytes.Buffer
			c := New("test")
			c.Out = &out
			c.Err = &errOut
			c.Args = []string{"oeb2epub", "--config", cfgPath, root}
			c.Exit = func(code int) {}
			c.Logger = zap.NewNop()

			if code := c.Execute(); code != ExitNoDescriptor {
				t.Fatalf("exit code = %d, expected %d (stderr: %s)", code, ExitNoDescriptor, errOut.String())
			}
			if got := strings.Contains(errOut.String(), "\x1b["); got != tt.wantColor {
				t.Errorf("stderr = %q, ANSI escapes present = %v, expected %v", errOut.String(), got, tt.wantColor)
			}
		})
	}
}

func TestExecuteVerboseLogs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})

	c, _, errOut := newTestCLI(t, "--verbose", root)
	c.Logger = nil // build the real logger

	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	for _, want := range []string{"found package descriptor", "OEBPS/content.opf"} {
		if !strings.Contains(errOut.String(), want) {
			t.Errorf("stderr missing %q:\n%s", want, errOut.String())
		}
	}
}

func TestExecuteQuietByDefault(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})

	c, _, errOut := newTestCLI(t, root)
	c.Logger = nil

	if code := c.Execute(); code != ExitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, errOut.String())
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr = %q, expected no debug output at default level", errOut.String())
	}
}

func TestExecuteVersion(t *testing.T) {
	c, out, _ := newTestCLI(t, "--version")
	if code := c.Execute(); code != ExitOK {
		t.Errorf("exit code = %d, expected %d", code, ExitOK)
	}
	if !strings.Contains(out.String(), "test") {
		t.Errorf("stdout = %q, expected version", out.String())
	}
}

func TestExecuteHelp(t *testing.T) {
	c, out, _ := newTestCLI(t, "--help")
	if code := c.Execute(); code != ExitOK {
		t.Errorf("exit code = %d, expected %d", code, ExitOK)
	}
	if !strings.Contains(out.String(), "oebdir [epubfilename]") {
		t.Errorf("stdout = %q, expected usage line", out.String())
	}
}

func TestRunCallsExit(t *testing.T) {
	c, _, _ := newTestCLI(t)
	exitCode := -1
	c.Exit = func(code int) { exitCode = code }

	c.Run()
	if exitCode != ExitUsage {
		t.Errorf("Exit called with %d, expected %d", exitCode, ExitUsage)
	}
}

func TestRunSuccessDoesNotExit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "book")
	writeTree(t, root, map[string]string{"content.opf": "<package/>"})

	c, _, _ := newTestCLI(t, root)
	called := false
	c.Exit = func(int) { called = true }

	c.Run()
	if called {
		t.Error("Exit called on success")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, ExitOK},
		{ErrUsage, ExitUsage},
		{fmt.Errorf("%w: x", packager.ErrInvalidRoot), ExitUsage},
		{fmt.Errorf("loading config: %w", config.ErrInvalid), ExitUsage},
		{fmt.Errorf("%w in book", packager.ErrDescriptorMissing), ExitNoDescriptor},
		{&packager.AmbiguousDescriptorError{Names: []string{"a.opf", "b.opf"}}, ExitAmbiguousDescriptor},
		{os.ErrPermission, ExitIOError},
		{errors.New("anything else"), ExitIOError},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.expected {
			t.Errorf("exitCode(%v) = %d, expected %d", tt.err, got, tt.expected)
		}
	}
}
