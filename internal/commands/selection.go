package commands

import (
	"fmt"

	"github.com/urfave/cli/v3"
)

// selection holds the assignment and submission flags shared by the review
// commands. The assignment is checked in validate rather than marked
// required, since the flags are also registered on the root command.
type selection struct {
	assignment int64
	submission int64
}

func (s *selection) flags(requireSubmission bool) []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "assignment",
			Aliases:     []string{"a"},
			Usage:       "assignment id",
			Destination: &s.assignment,
		},
		&cli.Int64Flag{
			Name:        "submission",
			Aliases:     []string{"s"},
			Usage:       "submission id (defaults to the assignment's first submission)",
			Required:    requireSubmission,
			Destination: &s.submission,
		},
	}
}

func (s *selection) validate() error {
	if s.assignment == 0 {
		return fmt.Errorf("--assignment is required")
	}
	if s.assignment < 0 {
		return fmt.Errorf("--assignment must be positive")
	}
	if s.submission < 0 {
		return fmt.Errorf("--submission cannot be negative")
	}
	return nil
}
