package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/render"
)

type ShowCmd struct {
	flags *Flags
	app   *App
	sel   selection

	path string
	next bool
	prev bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Print a submission file with changed lines and feedback",
		UsageText: "grader show -a ASSIGNMENT [-s SUBMISSION] -f PATH [--next|--prev]",
		Description: `Prints one file of a submission. Changed lines carry a "+" in the
gutter and feedback comments are printed beneath the line they refer to.

--next and --prev move to the neighbouring submission before printing.`,
		Flags: append(cmd.sel.flags(false),
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path of the file within the submission",
				Required:    true,
				Destination: &cmd.path,
			},
			&cli.BoolFlag{
				Name:        "next",
				Usage:       "show the file in the next submission",
				Destination: &cmd.next,
			},
			&cli.BoolFlag{
				Name:        "prev",
				Usage:       "show the file in the previous submission",
				Destination: &cmd.prev,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.sel.validate(); err != nil {
		return err
	}
	if cmd.next && cmd.prev {
		return fmt.Errorf("--next and --prev are mutually exclusive")
	}

	s, err := cmd.app.NewSession(cmd.flags.Classroom())
	if err != nil {
		return err
	}
	if err := load(ctx, s, cmd.sel.assignment, cmd.sel.submission); err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	if err := cmd.navigate(ctx, s); err != nil {
		return err
	}
	if err := openFile(ctx, s, cmd.path); err != nil {
		return fmt.Errorf("open %s: %w", cmd.path, err)
	}

	out := c.Root().Writer
	opts := render.DetectOptions(out, cmd.app.Config.TUI.Theme)

	v := s.View()
	if v.Submission != nil {
		_, _ = fmt.Fprintln(out, render.SubmissionHeader(*v.Submission))
	}
	return render.File(out, v.File, opts)
}

func (cmd *ShowCmd) navigate(ctx context.Context, s *grading.Session) error {
	var fetches []grading.Fetch
	switch {
	case cmd.next:
		fetches = s.NavigateNext()
		if fetches == nil {
			return fmt.Errorf("submission %d is the last one", s.Selection().SubmissionID)
		}
	case cmd.prev:
		fetches = s.NavigatePrevious()
		if fetches == nil {
			return fmt.Errorf("submission %d is the first one", s.Selection().SubmissionID)
		}
	default:
		return nil
	}
	return settle(ctx, s, fetches)
}
