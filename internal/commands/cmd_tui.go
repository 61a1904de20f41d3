package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/render"
	"github.com/colonyops/grader/internal/tui"
	"github.com/colonyops/grader/pkg/profiler"
)

type TuiCmd struct {
	flags *Flags
	app   *App
	sel   selection

	icons        bool
	profilerPort int
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *App) *TuiCmd {
	return &TuiCmd{flags: flags, app: app}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tui",
		Usage:     "Open the interactive review console",
		UsageText: "grader tui -a ASSIGNMENT [-s SUBMISSION]",
		Description: `Opens a two pane console: the submission's file tree on the left and
the selected file with changed lines and feedback on the right.

Keys: j/k move, enter open, tab switch pane, n/p next/previous submission,
c comment on the current line, x delete the line's newest comment,
r retry after an error, q quit.

A comment starting with a signed number sets its points: "-2 missing guard".`,
		Flags:  cmd.Flags(),
		Action: cmd.Run,
	})

	return app
}

// Flags returns the TUI flags. They are also registered on the root command
// so plain `grader -a 1` opens the console.
func (cmd *TuiCmd) Flags() []cli.Flag {
	return append(cmd.sel.flags(false),
		&cli.BoolFlag{
			Name:        "icons",
			Usage:       "show nerd font icons in the file tree",
			Sources:     cli.EnvVars("GRADER_ICONS"),
			Destination: &cmd.icons,
		},
		&cli.IntFlag{
			Name:        "profiler-port",
			Usage:       "enable pprof HTTP endpoint on specified port (e.g., 6060)",
			Sources:     cli.EnvVars("GRADER_PROFILER_PORT"),
			Destination: &cmd.profilerPort,
		},
	)
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	if err := cmd.sel.validate(); err != nil {
		return err
	}

	s, err := cmd.app.NewSession(cmd.flags.Classroom())
	if err != nil {
		return err
	}

	if cmd.profilerPort > 0 {
		profServer := profiler.New(cmd.profilerPort)
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler endpoint available")
	}

	initial := s.SelectAssignment(cmd.sel.assignment)
	if cmd.sel.submission != 0 {
		initial = s.SelectSubmission(cmd.sel.submission)
	}

	opts := render.DetectOptions(os.Stdout, cmd.app.Config.TUI.Theme)
	opts.Icons = cmd.icons

	if err := tui.Run(ctx, s, initial, opts); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
