// Package main provides the msa-indel command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/msa-indel/internal/indel"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitNoReference = 3
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the streams and shared state of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger

	cfgFile string
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop(),
	}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	_ = a.logger.Sync()
	return a.exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msa-indel",
		Short: "Find high-frequency indel positions in multiple sequence alignments",
		Long: `msa-indel scans amino acid multiple sequence alignments for positions where
many sequences carry an insertion or a deletion relative to a reference
sequence. Such positions are candidates for positional indel bonuses or
penalties in codon-aware aligners.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return newUsageError(cmd, "unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return newUsageError(cmd, "a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(c, "%v", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.msa-indel.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	viper.BindPFlag("log.level", pf.Lookup("log-level"))

	cmd.AddCommand(
		newScanCmd(a),
		newAlignCmd(a),
		newSubmatCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "msa-indel version %s (%s) built %s\n", version, commit, date)
			return nil
		},
	}
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	if err := initConfig(a.cfgFile); err != nil {
		return err
	}

	level := viper.GetString("log.level")
	if a.verbose {
		level = "debug"
	}
	logger, err := newLogger(a.stderr, level)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// newLogger builds a console logger writing to w.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// usageError reports a malformed invocation.
type usageError struct {
	msg   string
	usage string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(cmd *cobra.Command, format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...), usage: cmd.UsageString()}
}

// exactArgs is cobra.ExactArgs reporting a usageError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return newUsageError(cmd, "expected %d arguments, got %d", n, len(args))
		}
		return nil
	}
}

// bindFlags binds the named flags of cmd to viper keys "<section>.<name>".
func bindFlags(cmd *cobra.Command, section string, names ...string) {
	for _, name := range names {
		viper.BindPFlag(section+"."+name, cmd.Flags().Lookup(name))
	}
}

// exitCode prints err and maps it to an exit code.
func (a *app) exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)

	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintf(a.stderr, "\n%s", uerr.usage)
		return ExitUsage
	case errors.Is(err, indel.ErrReferenceNotFound):
		fmt.Fprintf(a.stderr, "Hint: The reference must match a FASTA header exactly\n")
		return ExitNoReference
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(a.stderr, "Hint: Check that the file path is correct\n")
	}
	return ExitError
}
