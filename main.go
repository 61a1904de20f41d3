package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/grader/internal/commands"
	"github.com/colonyops/grader/internal/core/config"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/styles"
	"github.com/colonyops/grader/internal/printer"
	"github.com/colonyops/grader/pkg/logutils"
	"github.com/colonyops/grader/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, these are read from
	// runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// deferredLimit bounds the warnings held while the console owns the screen.
const deferredLimit = 64 << 10

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		graderApp = commands.NewApp()
		flags     = &commands.Flags{Deferred: &utils.DeferredWriter{Limit: deferredLimit}}
	)

	app := &cli.Command{
		Name:      "grader",
		Usage:     "Review student submissions line by line",
		UsageText: "grader [global options] command [command options]",
		Description: `Grader browses a submission's files, marks the lines that changed
against the assignment baseline, and records line feedback with points.

Run 'grader -a ASSIGNMENT' to open the interactive console.
Run 'grader serve --seed fixture.yaml' to start a local backend.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("GRADER_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("GRADER_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (.yaml or .toml)",
				Sources:     cli.EnvVars("GRADER_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("GRADER_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.Int64Flag{
				Name:        "classroom",
				Usage:       "classroom id (overrides classroom_id in config)",
				Sources:     cli.EnvVars("GRADER_CLASSROOM"),
				Destination: &flags.ClassroomID,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, flags.Deferred)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg
			graderApp.Init(cfg)

			palette, ok := styles.GetPalette(cfg.TUI.Palette)
			if !ok {
				log.Warn().Str("palette", cfg.TUI.Palette).Msg("unknown palette, using default; run 'grader config validate'")
				palette, _ = styles.GetPalette(styles.DefaultTheme)
			}
			styles.SetTheme(palette)

			color := term.IsTerminal(int(os.Stderr.Fd()))
			ctx = printer.NewContext(ctx, printer.New(os.Stderr, color))

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := graderApp.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database")
				return err
			}

			if err := flags.Deferred.Flush(os.Stderr); err != nil {
				log.Error().Err(err).Msg("failed to flush deferred output")
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, graderApp)

	app = commands.NewServeCmd(flags, graderApp).Register(app)
	app = commands.NewTreeCmd(flags, graderApp).Register(app)
	app = commands.NewShowCmd(flags, graderApp).Register(app)
	app = commands.NewFeedbackCmd(flags, graderApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = tuiCmd.Register(app)

	// Register TUI flags on root command
	app.Flags = append(app.Flags, tuiCmd.Flags()...)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'grader --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
