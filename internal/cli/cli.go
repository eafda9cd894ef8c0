// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcdonaldj/oeb2epub/internal/adapters/osfs"
	"github.com/mcdonaldj/oeb2epub/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/oeb2epub/internal/config"
	"github.com/mcdonaldj/oeb2epub/internal/packager"
	"github.com/mcdonaldj/oeb2epub/internal/ports"
)

// Exit codes.
const (
	ExitOK                  = 0
	ExitUsage               = 1 // bad arguments, invalid root or config
	ExitNoDescriptor        = 2
	ExitAmbiguousDescriptor = 3
	ExitIOError             = 4
)

// ErrUsage is returned for a wrong number of arguments or unknown flags.
var ErrUsage = errors.New("invalid arguments")

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	FS       ports.FileSystem
	Archiver ports.Archiver
	Logger   *zap.Logger

	// Color functions (can be disabled for testing)
	green func(a ...interface{}) string
	red   func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	c := &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		Logger:  zap.NewNop(),
	}
	c.disableColor()
	return c
}

func (c *CLI) disableColor() {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	c.green = noColor
	c.red = noColor
}

// runOptions holds flag values for one invocation.
type runOptions struct {
	configPath string
	verbose    bool
}

// Run executes the CLI with the configured arguments and exits on failure.
func (c *CLI) Run() {
	if code := c.Execute(); code != ExitOK {
		c.Exit(code)
	}
}

// Execute runs the command and returns the process exit code.
// Failures are reported as a single line on Err.
func (c *CLI) Execute() int {
	var opts runOptions
	cmd := c.newRootCmd(&opts)

	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(c.Err, "%s %v\n", c.red("error:"), err)
	if errors.Is(err, ErrUsage) || errors.Is(err, packager.ErrInvalidRoot) || errors.Is(err, config.ErrInvalid) {
		fmt.Fprint(c.Err, cmd.UsageString())
	}
	return exitCode(err)
}

// exitCode maps an error to the documented exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage),
		errors.Is(err, packager.ErrInvalidRoot),
		errors.Is(err, config.ErrInvalid):
		return ExitUsage
	case errors.Is(err, packager.ErrDescriptorMissing):
		return ExitNoDescriptor
	case errors.Is(err, packager.ErrDescriptorAmbiguous):
		return ExitAmbiguousDescriptor
	default:
		return ExitIOError
	}
}

func (c *CLI) newRootCmd(opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oeb2epub [options] oebdir [epubfilename]",
		Short: "Package an Open Ebook Publication directory into an EPUB file",
		Long: `oeb2epub packages a directory holding an Open Ebook Publication
(content files plus exactly one .opf package file) into an EPUB container.

When epubfilename is omitted the archive is named after the directory
with an .epub suffix.`,
		Version:               c.Version,
		Args:                  positionalArgs,
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.convert(opts, args)
		},
	}
	cmd.SetOut(c.Out)
	cmd.SetErr(c.Err)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default ~/.oeb2epub/config.yaml)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every archive entry")

	// SetArgs(nil) would fall back to os.Args.
	args := []string{}
	if len(c.Args) > 1 {
		args = append(args, c.Args[1:]...)
	}
	cmd.SetArgs(args)

	return cmd
}

func positionalArgs(_ *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: expected oebdir [epubfilename], got %d arguments", ErrUsage, len(args))
	}
	if len(args) == 2 && args[1] == "" {
		return fmt.Errorf("%w: empty epubfilename", ErrUsage)
	}
	return nil
}

// convert packages args[0] into args[1] or a derived archive name.
func (c *CLI) convert(opts *runOptions, args []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.NoColor {
		c.disableColor()
	}

	log := c.Logger
	if log == nil {
		level := cfg.LogLevel
		if opts.verbose {
			level = "debug"
		}
		log, err = newLogger(c.Err, level)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	fs := c.FS
	if fs == nil {
		fs = osfs.New()
	}
	archiver := c.Archiver
	if archiver == nil {
		archiver = ziparchiver.New(fs, cfg.CompressionLevel)
	}

	pkgOpts := packager.Options{
		Root:      args[0],
		OutputDir: cfg.OutputDir,
	}
	if len(args) == 2 {
		pkgOpts.Output = args[1]
	}

	res, err := packager.New(fs, archiver, log).Package(pkgOpts)
	if err != nil {
		if errors.Is(err, packager.ErrDescriptorMissing) {
			return fmt.Errorf("%w in %s", err, args[0])
		}
		return err
	}

	fmt.Fprintf(c.Out, "%s Created %s (%d files, %s)\n",
		c.green("*"),
		res.Output,
		res.FileCount,
		humanize.Bytes(uint64(res.Size)))
	return nil
}
