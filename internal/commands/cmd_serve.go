package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/grader/internal/backend/server"
	"github.com/colonyops/grader/internal/data/seed"
	"github.com/colonyops/grader/internal/data/stores"
	"github.com/colonyops/grader/internal/printer"
)

type ServeCmd struct {
	flags *Flags
	app   *App

	addr     string
	token    string
	seedFile string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the local grading backend",
		UsageText: "grader serve [--addr HOST:PORT] [--seed fixture.yaml]",
		Description: `Serves the local SQLite store over the grading REST API so other
reviewers can point backend.url at it.

--seed loads assignments and submissions from a YAML fixture before serving.
Seeding is idempotent: existing submissions are replaced.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to server.addr)",
				Sources:     cli.EnvVars("GRADER_SERVER_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "bearer token required from clients (defaults to server.token)",
				Sources:     cli.EnvVars("GRADER_SERVER_TOKEN"),
				Destination: &cmd.token,
			},
			&cli.StringFlag{
				Name:        "seed",
				Usage:       "YAML fixture to load before serving",
				Destination: &cmd.seedFile,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	database, err := cmd.app.Database()
	if err != nil {
		return err
	}
	b := stores.NewBackend(database)

	if cmd.seedFile != "" {
		fixture, err := seed.LoadFile(cmd.seedFile)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := seed.Apply(ctx, b, fixture); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		p.Successf("Seeded %d assignment(s) into classroom %d", len(fixture.Assignments), fixture.ClassroomID)
	}

	cfg := cmd.app.Config
	opts := server.Options{Addr: cfg.Server.Addr, Token: cfg.Server.Token}
	if cmd.addr != "" {
		opts.Addr = cmd.addr
	}
	if cmd.token != "" {
		opts.Token = cmd.token
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p.Infof("Serving %s on http://%s", database.Path(), opts.Addr)
	return server.New(b, opts).ListenAndServe(ctx)
}
