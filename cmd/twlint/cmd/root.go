package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tinovyatkin/twlint/internal/version"
)

// NewApp creates the CLI application writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "twlint",
		Usage:   "Check and fix Tailwind CSS class usage with the Tailwind language server",
		Version: version.Version(),
		Description: `twlint runs the Tailwind CSS language server over your files in batch,
reports its diagnostics and, with --fix, applies its quickfixes until the
files converge.

Examples:
  twlint check
  twlint check --fix src
  twlint check -f sarif -o twlint.sarif "src/**/*.vue"`,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are decided by Execute.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			checkCommand(),
			versionCommand(),
		},
	}
}

// Execute runs the CLI application and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := NewApp(stdout, stderr).Run(ctx, args)
	return exitCode(stderr, err)
}
