package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"profilecard/internal/config"
)

const appName = "profilecard"

type envKey struct{}

// env keeps what every subcommand needs.
type env struct {
	Cfg *config.Config
	Log *zap.Logger

	start         time.Time
	closeLog      func() error
	restoreStdLog func()
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	panic("env not found in context")
}

// initializeAppContext runs after the command line is parsed and before the
// subcommand.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}
	e := envFromContext(ctx)

	var err error
	configFile := cmd.String("config")
	if e.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		e.Cfg.Logging.ConsoleLogger.Level = config.LevelDebug
	}
	if e.Log, e.closeLog, err = e.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)

	e.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	if configFile == "" {
		e.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	e := envFromContext(ctx)
	if e.Log != nil {
		e.Log.Debug("Program ended", zap.Duration("elapsed", time.Since(e.start)), zap.Strings("parsed args", cmd.Args().Slice()))
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
	if e.closeLog != nil {
		if er := e.closeLog(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close log file: %w", er))
		}
	}
	return
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	if e := envFromContext(ctx); e.Log != nil {
		e.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.WithValue(context.Background(), envKey{}, &env{start: time.Now()}),
		os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            appName,
		Usage:           "restores profile cards of banned accounts on the host site",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level on the console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "serve",
				Usage:        "Runs the rewriting proxy",
				OnUsageError: usageErrorHandler,
				Action:       runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen `ADDRESS`, overrides configuration"},
				},
			},
			{
				Name:         "render",
				Usage:        "Rewrites a saved profile page",
				OnUsageError: usageErrorHandler,
				Action:       runRender,
				ArgsUsage:    "SOURCE [DESTINATION]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "page `PATH` the source was saved from, e.g. /users/1/profile", Required: true},
				},
			},
			{
				Name:  "prefs",
				Usage: "Shows or changes stored preferences",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Prints the current preferences (JSON)",
						Action: runPrefsShow,
					},
					{
						Name:      "set",
						Usage:     "Updates preferences",
						ArgsUsage: "KEY=VALUE...",
						Action:    runPrefsSet,
					},
				},
			},
			{
				Name:   "style",
				Usage:  "Prints the stylesheet for the current preferences",
				Action: runStyle,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "vars", Usage: "print only the :root custom properties"},
				},
			},
			{
				Name:   "dumpconfig",
				Usage:  "Prints the active configuration (YAML)",
				Action: outputConfiguration,
			},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, _ *cli.Command) error {
	data, err := config.Dump(envFromContext(ctx).Cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
