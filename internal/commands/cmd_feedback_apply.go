package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/pkg/iojson"
)

// ActionsInput is the document read by `feedback apply`.
type ActionsInput struct {
	Actions []ActionInput `json:"actions"`
}

// ActionInput is one feedback change.
type ActionInput struct {
	Action       string `json:"action"`
	ID           int64  `json:"id,omitempty"`
	Path         string `json:"path,omitempty"`
	Line         int    `json:"line,omitempty"`
	Body         string `json:"body,omitempty"`
	Points       int    `json:"points,omitempty"`
	RubricItemID int64  `json:"rubric_item_id,omitempty"`
}

func (a ActionInput) kind() feedback.Action {
	return feedback.Action(strings.ToUpper(strings.TrimSpace(a.Action)))
}

// Validate checks every action before any is applied.
func (in ActionsInput) Validate() error {
	if len(in.Actions) == 0 {
		return criterio.NewFieldErrors("actions", fmt.Errorf("array is empty"))
	}

	var errs criterio.FieldErrorsBuilder
	for i, a := range in.Actions {
		field := fmt.Sprintf("actions[%d]", i)

		switch a.kind() {
		case feedback.ActionCreate:
			if strings.TrimSpace(a.Path) == "" {
				errs = errs.Append(field+".path", fmt.Errorf("is required"))
			}
			if a.Line < 1 {
				errs = errs.Append(field+".line", fmt.Errorf("must be at least 1"))
			}
			if strings.TrimSpace(a.Body) == "" {
				errs = errs.Append(field+".body", fmt.Errorf("is required"))
			}
		case feedback.ActionEdit:
			if a.ID < 1 {
				errs = errs.Append(field+".id", fmt.Errorf("is required"))
			}
			if strings.TrimSpace(a.Body) == "" {
				errs = errs.Append(field+".body", fmt.Errorf("is required"))
			}
		case feedback.ActionDelete:
			if a.ID < 1 {
				errs = errs.Append(field+".id", fmt.Errorf("is required"))
			}
		default:
			errs = errs.Append(field+".action", fmt.Errorf("unknown action %q (want create, edit or delete)", a.Action))
		}
	}

	return errs.ToError()
}

// ActionResult is the outcome of one action.
type ActionResult struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ActionsOutput is written by `feedback apply`.
type ActionsOutput struct {
	Applied int            `json:"applied"`
	Failed  int            `json:"failed"`
	Results []ActionResult `json:"results"`
}

func (cmd *FeedbackCmd) runApply(ctx context.Context, c *cli.Command) error {
	errOut := c.Root().ErrWriter

	input, err := cmd.fr.Read()
	if err != nil {
		return iojson.WriteError(errOut, fmt.Sprintf("read input: %s", err), nil)
	}
	if err := input.Validate(); err != nil {
		return iojson.WriteError(errOut, fmt.Sprintf("invalid input: %s", err), nil)
	}

	s, err := cmd.session(ctx)
	if err != nil {
		return iojson.WriteError(errOut, err.Error(), nil)
	}

	out := applyActions(ctx, s, input.Actions)
	if err := iojson.WriteWith(c.Root().Writer, errOut, out); err != nil {
		return err
	}
	if out.Failed > 0 {
		return fmt.Errorf("%d of %d actions failed", out.Failed, len(input.Actions))
	}
	return nil
}

// applyActions runs actions in order. A failed save leaves the session in an
// error state, so it is reloaded before the next action.
func applyActions(ctx context.Context, s *grading.Session, actions []ActionInput) ActionsOutput {
	out := ActionsOutput{Results: make([]ActionResult, 0, len(actions))}

	for i, a := range actions {
		res := ActionResult{Index: i, Action: strings.ToLower(string(a.kind())), ID: a.ID}

		var err error
		switch a.kind() {
		case feedback.ActionCreate:
			var saved feedback.Comment
			saved, err = createComment(ctx, s, a.Path, a.Line, a.Body, a.Points, a.RubricItemID)
			res.ID = saved.CommentID
		case feedback.ActionEdit:
			err = editComment(ctx, s, a.ID, a.Body, a.Points)
		case feedback.ActionDelete:
			err = deleteComment(ctx, s, a.ID)
		}

		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("action", res.Action).Msg("feedback action failed")
			res.Status = "failed"
			res.Error = err.Error()
			out.Failed++
			if s.View().Status == grading.StatusError {
				if rerr := settle(ctx, s, s.Retry()); rerr != nil {
					log.Error().Err(rerr).Msg("reload after failed action")
				}
			}
		} else {
			res.Status = "ok"
			out.Applied++
		}
		out.Results = append(out.Results, res)
	}

	return out
}
