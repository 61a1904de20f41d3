package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/styles"
	"github.com/colonyops/grader/internal/printer"
	"github.com/colonyops/grader/internal/render"
	"github.com/colonyops/grader/pkg/iojson"
)

type FeedbackCmd struct {
	flags *Flags
	app   *App
	sel   selection

	// list/history
	jsonOutput bool
	all        bool

	// add/edit/delete
	id       int64
	path     string
	line     int
	body     string
	points   int
	rubricID int64

	fr *iojson.FileReader[ActionsInput]
}

// NewFeedbackCmd creates the feedback command group
func NewFeedbackCmd(flags *Flags, app *App) *FeedbackCmd {
	return &FeedbackCmd{
		flags: flags,
		app:   app,
		fr:    &iojson.FileReader[ActionsInput]{},
	}
}

// FeedbackInfo is the JSON shape of one comment.
type FeedbackInfo struct {
	ID           int64     `json:"id"`
	Path         string    `json:"path"`
	Line         int       `json:"line"`
	Points       int       `json:"points"`
	Body         string    `json:"body"`
	Author       string    `json:"author,omitempty"`
	RubricItemID int64     `json:"rubric_item_id,omitempty"`
	Deleted      bool      `json:"deleted"`
	Edits        int       `json:"edits"`
	CreatedAt    time.Time `json:"created_at"`
}

func feedbackInfo(s feedback.Snapshot, edits int) FeedbackInfo {
	return FeedbackInfo{
		ID:           s.CommentID,
		Path:         s.Path,
		Line:         s.Line,
		Points:       s.Points,
		Body:         s.Body,
		Author:       s.Author,
		RubricItemID: s.RubricItemID,
		Deleted:      s.Deleted,
		Edits:        edits,
		CreatedAt:    s.CreatedAt,
	}
}

// Register adds the feedback command group to the application
func (cmd *FeedbackCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "feedback",
		Usage: "Manage line feedback on a submission",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List feedback comments",
				UsageText: "grader feedback list -a ASSIGNMENT [-s SUBMISSION] [--all] [--json]",
				Flags: append(cmd.sel.flags(false),
					&cli.BoolFlag{
						Name:        "all",
						Usage:       "include deleted comments",
						Destination: &cmd.all,
					},
					cmd.jsonFlag(),
				),
				Action: cmd.runList,
			},
			{
				Name:      "add",
				Usage:     "Comment on a line",
				UsageText: "grader feedback add -a ASSIGNMENT -s SUBMISSION -p PATH -l LINE [-m BODY] [--points N]",
				Description: `Adds a comment to one line of a file. Without -m an interactive
form asks for the body and points.`,
				Flags: append(cmd.sel.flags(true),
					&cli.StringFlag{
						Name:        "path",
						Aliases:     []string{"p"},
						Usage:       "file path within the submission",
						Required:    true,
						Destination: &cmd.path,
					},
					&cli.IntFlag{
						Name:        "line",
						Aliases:     []string{"l"},
						Usage:       "1-based line number",
						Required:    true,
						Destination: &cmd.line,
					},
					cmd.bodyFlag(),
					cmd.pointsFlag(),
					&cli.Int64Flag{
						Name:        "rubric",
						Usage:       "rubric item id",
						Destination: &cmd.rubricID,
					},
				),
				Action: cmd.runAdd,
			},
			{
				Name:      "edit",
				Usage:     "Edit a comment's body or points",
				UsageText: "grader feedback edit -a ASSIGNMENT -s SUBMISSION --id ID [-m BODY] [--points N]",
				Description: `Records a new version of a comment. Fields that are not given keep
their current value. The previous version stays in the comment's history.`,
				Flags:  append(cmd.sel.flags(true), cmd.idFlag(), cmd.bodyFlag(), cmd.pointsFlag()),
				Action: cmd.runEdit,
			},
			{
				Name:        "delete",
				Usage:       "Delete a comment",
				UsageText:   "grader feedback delete -a ASSIGNMENT -s SUBMISSION --id ID",
				Description: "Marks a comment deleted. Its history is kept.",
				Flags:       append(cmd.sel.flags(true), cmd.idFlag()),
				Action:      cmd.runDelete,
			},
			{
				Name:      "history",
				Usage:     "Show every version of a comment",
				UsageText: "grader feedback history -a ASSIGNMENT -s SUBMISSION --id ID [--json]",
				Flags:     append(cmd.sel.flags(true), cmd.idFlag(), cmd.jsonFlag()),
				Action:    cmd.runHistory,
			},
			{
				Name:  "apply",
				Usage: "Apply feedback actions from JSON input",
				UsageText: `grader feedback apply -a ASSIGNMENT -s SUBMISSION [-f actions.json]

Read from stdin:
  echo '{"actions":[{"action":"create","path":"main.py","line":3,"body":"nice"}]}' | grader feedback apply -a 1 -s 2`,
				Description: `Applies a list of feedback actions in order.

Input JSON schema:
  {
    "actions": [
      {"action": "create", "path": "src/main.py", "line": 3, "body": "text", "points": -1},
      {"action": "edit", "id": 12, "body": "text", "points": 0},
      {"action": "delete", "id": 12}
    ]
  }

Output is JSON with one result per action.`,
				Flags:  append(cmd.sel.flags(true), cmd.fr.Flag()),
				Action: cmd.runApply,
			},
		},
	})

	return app
}

func (cmd *FeedbackCmd) idFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "id",
		Usage:       "feedback comment id",
		Required:    true,
		Destination: &cmd.id,
	}
}

func (cmd *FeedbackCmd) bodyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "message",
		Aliases:     []string{"m"},
		Usage:       "comment body (markdown)",
		Destination: &cmd.body,
	}
}

func (cmd *FeedbackCmd) pointsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:        "points",
		Usage:       "point adjustment, negative for deductions",
		Destination: &cmd.points,
	}
}

func (cmd *FeedbackCmd) jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON lines",
		Destination: &cmd.jsonOutput,
	}
}

// session opens a session on the selected submission with feedback loaded.
func (cmd *FeedbackCmd) session(ctx context.Context) (*grading.Session, error) {
	if err := cmd.sel.validate(); err != nil {
		return nil, err
	}
	s, err := cmd.app.NewSession(cmd.flags.Classroom())
	if err != nil {
		return nil, err
	}
	if err := load(ctx, s, cmd.sel.assignment, cmd.sel.submission); err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return s, nil
}

func (cmd *FeedbackCmd) runList(ctx context.Context, c *cli.Command) error {
	s, err := cmd.session(ctx)
	if err != nil {
		return err
	}

	var comments []feedback.Comment
	for _, fc := range s.AllComments() {
		if fc.Deleted && !cmd.all {
			continue
		}
		comments = append(comments, fc)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, fc := range comments {
			if err := iojson.WriteLine(out, feedbackInfo(fc.Snapshot, fc.HistoryLen())); err != nil {
				return fmt.Errorf("encode comment: %w", err)
			}
		}
		return nil
	}

	if len(comments) == 0 {
		printer.Ctx(ctx).Infof("No feedback on this submission")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPATH\tLINE\tPOINTS\tAUTHOR\tBODY")
	for _, fc := range comments {
		body := firstLine(fc.Body)
		if fc.Deleted {
			body = "(deleted) " + body
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", fc.CommentID, fc.Path, fc.Line, fc.Points, fc.Author, body)
	}
	return w.Flush()
}

func (cmd *FeedbackCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if strings.TrimSpace(cmd.body) == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--message is required when stdin is not a terminal")
		}
		if err := cmd.runForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	s, err := cmd.session(ctx)
	if err != nil {
		return err
	}
	saved, err := createComment(ctx, s, cmd.path, cmd.line, cmd.body, cmd.points, cmd.rubricID)
	if err != nil {
		return err
	}

	printer.Ctx(ctx).Success("Comment created", fmt.Sprintf("#%d %s:%d, %s", saved.CommentID, saved.Path, saved.Line, render.Points(saved.Points)))
	return nil
}

func (cmd *FeedbackCmd) runForm() error {
	points := strconv.Itoa(cmd.points)
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Comment").
				Description(fmt.Sprintf("%s line %d (markdown)", cmd.path, cmd.line)).
				Validate(validateBody).
				Value(&cmd.body),
			huh.NewInput().
				Title("Points").
				Description("Adjustment for this comment, negative for deductions").
				Validate(validatePoints).
				Value(&points),
		),
	).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		return err
	}

	cmd.points, _ = strconv.Atoi(strings.TrimSpace(points))
	return nil
}

func validateBody(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("comment is required")
	}
	return nil
}

func validatePoints(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("points must be a whole number")
	}
	return nil
}

func (cmd *FeedbackCmd) runEdit(ctx context.Context, c *cli.Command) error {
	if !c.IsSet("message") && !c.IsSet("points") {
		return fmt.Errorf("nothing to change; pass --message or --points")
	}

	s, err := cmd.session(ctx)
	if err != nil {
		return err
	}

	current, ok := s.Comment(feedback.FormatID(cmd.id))
	if !ok {
		return fmt.Errorf("%w: %d", feedback.ErrCommentNotFound, cmd.id)
	}
	body, points := current.Body, current.Points
	if c.IsSet("message") {
		body = cmd.body
	}
	if c.IsSet("points") {
		points = cmd.points
	}

	if err := editComment(ctx, s, cmd.id, body, points); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Comment #%d updated", cmd.id)
	return nil
}

func (cmd *FeedbackCmd) runDelete(ctx context.Context, c *cli.Command) error {
	s, err := cmd.session(ctx)
	if err != nil {
		return err
	}
	if err := deleteComment(ctx, s, cmd.id); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Comment #%d deleted", cmd.id)
	return nil
}

func (cmd *FeedbackCmd) runHistory(ctx context.Context, c *cli.Command) error {
	s, err := cmd.session(ctx)
	if err != nil {
		return err
	}

	fc, ok := s.Comment(feedback.FormatID(cmd.id))
	if !ok {
		return fmt.Errorf("%w: %d", feedback.ErrCommentNotFound, cmd.id)
	}

	versions := append([]feedback.Snapshot{fc.Snapshot}, fc.History()...)
	out := c.Root().Writer

	if cmd.jsonOutput {
		for i, v := range versions {
			if err := iojson.WriteLine(out, feedbackInfo(v, len(versions)-1-i)); err != nil {
				return fmt.Errorf("encode version: %w", err)
			}
		}
		return nil
	}

	for i, v := range versions {
		label := "current"
		if i > 0 {
			label = fmt.Sprintf("v%d", len(versions)-i)
		}
		state := ""
		if v.Deleted {
			state = " (deleted)"
		}
		_, _ = fmt.Fprintf(out, "%s%s  %s:%d  %s  %s\n", label, state, v.Path, v.Line, render.Points(v.Points), v.CreatedAt.Format(time.DateTime))
		for _, l := range strings.Split(v.Body, "\n") {
			_, _ = fmt.Fprintf(out, "  %s\n", l)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// createComment adds a comment to path and waits for the backend to assign
// its id.
func createComment(ctx context.Context, s *grading.Session, path string, line int, body string, points int, rubricID int64) (feedback.Comment, error) {
	if err := openFile(ctx, s, path); err != nil {
		return feedback.Comment{}, fmt.Errorf("open %s: %w", path, err)
	}

	draft, fetches, err := s.AddFeedback(line, body, points, rubricID)
	if err != nil {
		return feedback.Comment{}, err
	}
	if err := settle(ctx, s, fetches); err != nil {
		return feedback.Comment{}, fmt.Errorf("save comment: %w", err)
	}

	// the draft is re-keyed once saved; find it by content
	var saved feedback.Comment
	for _, fc := range s.Comments(draft.Path) {
		if fc.Line == draft.Line && fc.Body == draft.Body && fc.CommentID > saved.CommentID {
			saved = fc
		}
	}
	if !saved.Persisted() {
		return feedback.Comment{}, fmt.Errorf("comment was not saved")
	}
	return saved, nil
}

func editComment(ctx context.Context, s *grading.Session, id int64, body string, points int) error {
	_, fetches, err := s.EditFeedback(feedback.FormatID(id), body, points)
	if err != nil {
		return err
	}
	if err := settle(ctx, s, fetches); err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}

func deleteComment(ctx context.Context, s *grading.Session, id int64) error {
	_, fetches, err := s.DeleteFeedback(feedback.FormatID(id))
	if err != nil {
		return err
	}
	if err := settle(ctx, s, fetches); err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}
