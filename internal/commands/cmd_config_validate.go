package commands

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/core/config"
	"github.com/colonyops/grader/internal/printer"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// ValidationError is one failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "grader config validate [options]",
				Description: "Validates the configuration file, checking the backend URL, hide patterns, themes and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	errs := validationErrors(cfg.ValidateDeep(cmd.flags.ConfigPath))
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		return cmd.outputJSON(c, errs, warnings)
	}

	return cmd.outputText(printer.Ctx(ctx), errs, warnings)
}

// validationErrors flattens criterio field errors. Anything else becomes a
// single error without a field.
func validationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{Field: fe.Field, Message: fe.Err.Error()})
		}
		return out
	}
	return []ValidationError{{Message: err.Error()}}
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, errs []ValidationError, warnings []config.ValidationWarning) error {
	out := struct {
		Valid    bool                       `json:"valid"`
		Errors   []ValidationError          `json:"errors,omitempty"`
		Warnings []config.ValidationWarning `json:"warnings,omitempty"`
	}{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if len(errs) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputText(p *printer.Printer, errs []ValidationError, warnings []config.ValidationWarning) error {
	for _, warn := range warnings {
		p.Warnf("%s: %s", warn.Category, warn.Message)
		if warn.Item != "" {
			p.Printf("  Item: %s", warn.Item)
		}
	}

	for _, err := range errs {
		if err.Field == "" {
			p.Errorf("%s", err.Message)
			continue
		}
		p.Errorf("%s: %s", err.Field, err.Message)
	}

	p.Printf("")
	if len(errs) == 0 {
		p.Successf("Configuration is valid")
		return nil
	}

	p.Errorf("%d error(s) found", len(errs))
	return cli.Exit("", 1)
}
