package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/tinovyatkin/twlint/internal/config"
	"github.com/tinovyatkin/twlint/internal/discovery"
	"github.com/tinovyatkin/twlint/internal/langserver"
	"github.com/tinovyatkin/twlint/internal/lint"
	"github.com/tinovyatkin/twlint/internal/project"
	"github.com/tinovyatkin/twlint/internal/reporter"
	"github.com/tinovyatkin/twlint/internal/runner"
)

// closeTimeout bounds the language server shutdown after a run.
const closeTimeout = 5 * time.Second

// flagKeys maps check flags to configuration keys. Only flags set on the
// command line override the configuration.
var flagKeys = map[string]string{
	"fix":                 "fix.enabled",
	"format":              "format",
	"concurrency":         "concurrency",
	"max-iterations":      "fix.max-iterations",
	"server":              "engine.command",
	"profile":             "engine.profile",
	"diagnostics-timeout": "engine.diagnostics-timeout",
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check files for Tailwind CSS issues",
		ArgsUsage: "[PATTERN|FILE|DIR...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "Apply the language server's quickfixes and write the files",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, sarif",
				Value:   reporter.FormatText,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of files checked at once",
				Value: runner.DefaultConcurrency,
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Maximum fix iterations per file",
				Value: 100,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to " + config.FileName + " (default: nearest in the working directory or above)",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Language server command line",
				Value: langserver.DefaultCommand,
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Settings profile: auto, v3, v4",
				Value: project.ProfileAuto,
			},
			&cli.DurationFlag{
				Name:  "diagnostics-timeout",
				Usage: "How long to wait for diagnostics of one document",
				Value: langserver.DefaultDiagnosticsTimeout,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug details and print full error chains",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors and hide progress",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
		},
		Action: runCheck,
	}
}

// flagOverrides collects explicitly-set flags keyed by configuration key.
func flagOverrides(cmd *cli.Command) map[string]any {
	out := make(map[string]any)
	for name, key := range flagKeys {
		if !cmd.IsSet(name) {
			continue
		}
		switch name {
		case "fix":
			out[key] = cmd.Bool(name)
		case "concurrency", "max-iterations":
			out[key] = cmd.Int(name)
		case "diagnostics-timeout":
			out[key] = cmd.Duration(name).String()
		default:
			out[key] = cmd.String(name)
		}
	}
	return out
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	verbose := cmd.Bool("verbose")
	quiet := cmd.Bool("quiet")
	stdout := cmd.Root().Writer
	stderr := cmd.Root().ErrWriter

	wd, err := os.Getwd()
	if err != nil {
		return fatal(err, verbose, "")
	}

	cfg, err := config.Load(config.LoadOptions{
		Dir:   wd,
		File:  cmd.String("config"),
		Flags: flagOverrides(cmd),
	})
	if err != nil {
		return fatal(err, verbose, "")
	}

	logger, err := newLogger(stderr, cfg.LogLevel, verbose, quiet)
	if err != nil {
		return fatal(err, verbose, "")
	}
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Debug("loaded configuration")
	}
	if ci := config.CIName(); ci != "" {
		logger.WithField("ci", ci).Debug("running in CI")
	}

	proj, err := project.Detect(project.Options{Dir: wd, Profile: cfg.Engine.Profile})
	if err != nil {
		return fatal(err, verbose, "")
	}
	logger.WithFields(logrus.Fields{
		"root":    proj.Root,
		"version": proj.Version,
		"profile": proj.Profile,
	}).Debug("detected project")

	files, err := discovery.Discover(cmd.Args().Slice(), discoveryOptions(wd, proj, cfg))
	if err != nil {
		return fatal(err, verbose, "")
	}

	out, closeOut, err := openOutput(stdout, cmd.String("output"))
	if err != nil {
		return fatal(err, verbose, "")
	}
	defer closeOut()

	repOpts := reporter.Options{
		Color: colorEnabled(out, cmd.Bool("no-color")),
		Dir:   wd,
		Fix:   cfg.Fix.Enabled,
	}

	if len(files) == 0 {
		logger.Warn("no files matched")
		return writeReport(out, cfg.Format, lint.NewSummary(nil, 0), repOpts, verbose)
	}
	logger.WithField("files", len(files)).Debug("discovered files")

	settings, err := langserver.Settings(proj.Profile, cfg.Engine.Settings)
	if err != nil {
		return fatal(err, verbose, "")
	}
	client, err := langserver.Start(ctx, langserver.Options{
		Command:            cfg.Engine.Command,
		State:              proj.State(settings),
		DiagnosticsTimeout: cfg.Engine.DiagnosticsTimeout,
		Logger:             logger,
	})
	if err != nil {
		return fatal(fmt.Errorf("starting language server: %w", err), verbose, "")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.WithError(err).Debug("closing language server")
		}
	}()

	progress := reporter.NewProgress(stderr, progressEnabled(stderr, cfg, quiet))
	r := &runner.Runner{
		Engine:        client,
		Fix:           cfg.Fix.Enabled,
		Concurrency:   cfg.Concurrency,
		MaxIterations: cfg.Fix.MaxIterations,
		Logger:        logger,
		Progress: func(current, total int, file string) {
			if rel, err := filepath.Rel(wd, file); err == nil {
				file = rel
			}
			progress.Update(current, total, file)
		},
	}
	summary, err := r.Run(ctx, files)
	progress.Done()
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("interrupted: %w", err)
		}
		return fatal(err, verbose, client.Stderr())
	}

	return writeReport(out, cfg.Format, summary, repOpts, verbose)
}

// discoveryOptions scopes discovery to the project. Discover reads the
// project's ignore file itself; only configured patterns are passed here.
func discoveryOptions(wd string, proj *project.Project, cfg *config.Config) discovery.Options {
	return discovery.Options{
		Dir:      wd,
		Root:     proj.Root,
		Patterns: cfg.Patterns,
		Ignore:   slices.Clone(cfg.Ignore),
	}
}

func writeReport(w io.Writer, format string, summary lint.Summary, opts reporter.Options, verbose bool) error {
	if err := reporter.Write(w, format, summary, opts); err != nil {
		return fatal(fmt.Errorf("writing report: %w", err), verbose, "")
	}
	if summary.HasDiagnostics() {
		return errDiagnostics
	}
	return nil
}

// newLogger builds the run's logger on w. --verbose raises the level to at
// least debug, --quiet lowers it to error.
func newLogger(w io.Writer, level string, verbose, quiet bool) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log-level: %v", config.ErrInvalid, err)
	}
	switch {
	case verbose && lvl < logrus.DebugLevel:
		lvl = logrus.DebugLevel
	case quiet && !verbose:
		lvl = logrus.ErrorLevel
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !verbose,
		FullTimestamp:    verbose,
	})
	return logger, nil
}

// openOutput returns the report destination and a function closing it.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

func progressEnabled(w io.Writer, cfg *config.Config, quiet bool) bool {
	if quiet || cfg.Format != reporter.FormatText {
		return false
	}
	return config.ProgressEnabled(cfg.Progress, isTerminal(w))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
