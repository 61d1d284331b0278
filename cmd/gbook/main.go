package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gbook/config"
	"gbook/convert"
	"gbook/misc"
	"gbook/server"
	"gbook/state"
)

// setupEnv runs after command line is parsed and before any subcommand.
func setupEnv(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		// only help will be shown
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	configFile := cmd.String("config")

	cfg, err := config.LoadConfiguration(configFile)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	env.Cfg = cfg

	if cmd.Bool("debug") {
		if env.Rpt, err = cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			// Dump masks secrets
			if data, err := config.Dump(cfg); err == nil {
				env.Rpt.StoreData("config/"+filepath.Base(configFile), data)
			}
		}
	}

	if env.Log, err = cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started",
		zap.Strings("args", os.Args),
		zap.String("ver", misc.GetVersion()),
		zap.String("runtime", runtime.Version()),
		zap.String("hash", misc.GetGitHash()))
	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

// teardownEnv flushes logs and closes debug report. Errors from here on are
// printed to stderr.
func teardownEnv(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()

	if er := env.Rpt.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
	}
	if env.Cfg != nil {
		err = multierr.Append(err, removeEmptyPanicLog(env.Cfg.Logging.FileLogger.Destination))
	}
	return err
}

func removeEmptyPanicLog(logFile string) error {
	if len(logFile) == 0 {
		return nil
	}
	debug.SetCrashOutput(nil, debug.CrashOptions{})

	name := filepath.Join(filepath.Dir(logFile), misc.GetAppName()+"-panic.log")
	if fi, err := os.Stat(name); err != nil || fi.Size() > 0 {
		return nil
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("unable to remove empty panic log file '%s': %w", name, err)
	}
	return nil
}

// errLogged is set when error returned by subcommand made it to the log, so
// main does not print it again.
var errLogged bool

func logExitError(ctx context.Context, _ *cli.Command, err error) {
	if env := state.EnvFromContext(ctx); env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errLogged = true
	}
}

func passUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func unknownCommand(ctx context.Context, _ *cli.Command, name string) {
	if env := state.EnvFromContext(ctx); env.Log != nil {
		env.Log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

const sourceHelp = `
SOURCE:
    book file, directory or zip archive:
        "[path]book.xml"                    single book
        "[path]directory"                   every book under directory, symbolic links are not followed
        "[path]books.zip"                   every book in archive
        "[path]books.zip[path_in_archive]"  book or directory inside archive

    Books are files with .xml extension and <book> root element. Archives
    inside archives are not looked into.
`

const destinationHelp = `
DESTINATION:
    directory for results, names and extensions are derived from sources
    and configuration, current working directory when absent
`

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "lenient", Aliases: []string{"l"}, Usage: "report malformed attribute values as warnings instead of failing the book"},
		&cli.StringFlag{Name: "force-zip-cp", Usage: "decode ALL non UTF-8 file names in archives using `ENCODING` (IANA character set name)"},
	}
}

func outputFlags() []cli.Flag {
	return append(sourceFlags(),
		&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "do not replicate source directory structure in destination"},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing files in destination"},
	)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "checks and converts book XML files",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          setupEnv,
		After:           teardownEnv,
		OnUsageError:    passUsageError,
		ExitErrHandler:  logExitError,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "collect logs, configuration and failed books into report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:               "check",
				Usage:              "Loads book(s) and reports problems",
				OnUsageError:       passUsageError,
				Action:             convert.Check,
				Flags:              sourceFlags(),
				ArgsUsage:          "SOURCE...",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:               "format",
				Usage:              "Loads book(s) and saves them in canonical form",
				OnUsageError:       passUsageError,
				Action:             convert.Format,
				Flags:              outputFlags(),
				ArgsUsage:          "SOURCE [DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp + destinationHelp,
			},
			{
				Name:               "delta",
				Usage:              "Converts book(s) to editor delta (JSON)",
				OnUsageError:       passUsageError,
				Action:             convert.Delta,
				Flags:              outputFlags(),
				ArgsUsage:          "SOURCE [DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp + destinationHelp,
			},
			{
				Name:         "new",
				Usage:        "Creates empty book",
				OnUsageError: passUsageError,
				Action:       convert.New,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing file"},
				},
				ArgsUsage: "[TITLE] [DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + `
TITLE:
    book title, configured default title when absent
` + destinationHelp,
			},
			{
				Name:         "serve",
				Usage:        "Serves book checking and conversion over HTTP",
				OnUsageError: passUsageError,
				Action:       serve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "override configured `ADDRESS` (host:port)"},
					&cli.BoolFlag{Name: "lenient", Aliases: []string{"l"}, Usage: "report malformed attribute values as warnings instead of failing the book"},
				},
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: passUsageError,
				Action:       dumpConfig,
				ArgsUsage:    "[DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + `
DESTINATION:
    file to write configuration to, STDOUT when absent

Actual configuration is embedded defaults with configuration file applied on
top, use --default to see defaults only.
`,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		// log may be not ready yet or already closed
		if !errLogged {
			fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
		}
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	env.Lenient = cmd.Bool("lenient")
	if listen := cmd.String("listen"); len(listen) > 0 {
		env.Cfg.Server.Listen = listen
	}
	if err := server.New(env).Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
	} else {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
