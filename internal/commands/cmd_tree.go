package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/core/repotree"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/render"
	"github.com/colonyops/grader/pkg/iojson"
)

type TreeCmd struct {
	flags *Flags
	app   *App
	sel   selection

	jsonOutput bool
}

// TreeRowInfo is the JSON line written per tree row.
type TreeRowInfo struct {
	Path   string           `json:"path"`
	Kind   string           `json:"kind"`
	Depth  int              `json:"depth"`
	Status string           `json:"status,omitempty"`
	Ranges []snapshot.Range `json:"ranges,omitempty"`
}

// NewTreeCmd creates a new tree command
func NewTreeCmd(flags *Flags, app *App) *TreeCmd {
	return &TreeCmd{flags: flags, app: app}
}

// Register adds the tree command to the application
func (cmd *TreeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tree",
		Usage:     "Print a submission's file tree",
		UsageText: "grader tree -a ASSIGNMENT [-s SUBMISSION] [--json]",
		Description: `Prints the submission's files with a change marker per file:
A added, M modified, D removed. Paths matching tree.hide are left out.

Use --json for one JSON object per row.`,
		Flags: append(cmd.sel.flags(false),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *TreeCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.sel.validate(); err != nil {
		return err
	}

	s, err := cmd.app.NewSession(cmd.flags.Classroom())
	if err != nil {
		return err
	}
	if err := load(ctx, s, cmd.sel.assignment, cmd.sel.submission); err != nil {
		return fmt.Errorf("load submission: %w", err)
	}

	out := c.Root().Writer
	root := s.Tree()

	if cmd.jsonOutput {
		for _, row := range render.TreeRows(root, nil) {
			if err := iojson.WriteLine(out, treeRowInfo(row)); err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
		}
		return nil
	}

	if ref, ok := s.Submission(); ok {
		_, _ = fmt.Fprintln(out, render.SubmissionHeader(ref))
	}
	return render.Tree(out, root, render.DetectOptions(out, cmd.app.Config.TUI.Theme))
}

func treeRowInfo(row render.TreeRow) TreeRowInfo {
	info := TreeRowInfo{
		Path:  row.Node.Path(),
		Kind:  snapshot.KindDirectory.String(),
		Depth: row.Depth,
	}
	if f, ok := row.Node.(*repotree.File); ok {
		e := f.Entry()
		info.Kind = snapshot.KindFile.String()
		info.Status = string(e.Status)
		info.Ranges = e.ChangeRanges
	}
	return info
}
