package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/backend"
	"github.com/colonyops/grader/internal/core/config"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/data/contentcache"
	"github.com/colonyops/grader/internal/data/db"
	"github.com/colonyops/grader/internal/data/stores"
)

// App holds the services shared by commands. It is allocated before flags
// are parsed and populated in the Before hook; connections open lazily so
// commands that never touch the backend never open one.
type App struct {
	Config *config.Config

	database *db.DB
	backend  grading.Backend
	logger   zerolog.Logger
}

// NewApp returns an empty App; call Init once the config is loaded.
func NewApp() *App {
	return &App{logger: logging.Component("app")}
}

// Init binds the loaded configuration.
func (a *App) Init(cfg *config.Config) {
	a.Config = cfg
	a.logger = logging.Component("app")
}

// Database opens the local SQLite store, moving a corrupt file aside and
// starting fresh if needed.
func (a *App) Database() (*db.DB, error) {
	if a.database != nil {
		return a.database, nil
	}
	if a.Config == nil {
		return nil, errors.New("config not loaded")
	}

	if err := os.MkdirAll(a.Config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	opts := db.OpenOptions{
		MaxOpenConns: a.Config.Database.MaxOpenConns,
		MaxIdleConns: a.Config.Database.MaxIdleConns,
		BusyTimeout:  time.Duration(a.Config.Database.BusyTimeout) * time.Millisecond,
	}

	database, err := db.Open(a.Config.DataDir, opts)
	if err != nil && stores.IsCorruptionError(err) {
		backup, recErr := stores.RecoverFromCorruption(a.Config.DataDir)
		if recErr != nil {
			return nil, fmt.Errorf("recover corrupt database: %w", recErr)
		}
		a.logger.Warn().Str("backup", backup).Msg("database was corrupt; moved aside and starting fresh")
		database, err = db.Open(a.Config.DataDir, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a.database = database
	return database, nil
}

// Backend returns the configured backend of record: the remote REST backend
// when backend.url is set, otherwise the local store.
func (a *App) Backend() (grading.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.Config == nil {
		return nil, errors.New("config not loaded")
	}

	if a.Config.Backend.IsRemote() {
		client, err := backend.New(backend.Options{
			BaseURL:     a.Config.Backend.URL,
			Token:       a.Config.Backend.Token,
			Timeout:     time.Duration(a.Config.Backend.Timeout),
			MaxAttempts: a.Config.Backend.MaxAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}
		a.backend = client
		return client, nil
	}

	database, err := a.Database()
	if err != nil {
		return nil, err
	}
	a.backend = stores.NewBackend(database)
	return a.backend, nil
}

// NewSession creates a review session against the configured backend.
func (a *App) NewSession(classroomID int64) (*grading.Session, error) {
	b, err := a.Backend()
	if err != nil {
		return nil, err
	}
	if classroomID == 0 {
		return nil, errors.New("classroom is not set; use --classroom or classroom_id in config")
	}

	return grading.NewSession(b, contentcache.New(a.Config.TUI.CacheSize), grading.Options{
		ClassroomID: classroomID,
		Author:      a.Config.Author,
		Hide:        a.Config.Tree.Hide,
	})
}

// Close releases the database, if one was opened.
func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	err := a.database.Close()
	a.database = nil
	a.backend = nil
	return err
}

// load selects a submission and waits for it to settle. A zero submission
// selects the assignment's first one.
func load(ctx context.Context, s *grading.Session, assignmentID, submissionID int64) error {
	fetches := s.SelectAssignment(assignmentID)
	if submissionID != 0 {
		fetches = s.SelectSubmission(submissionID)
	}
	return settle(ctx, s, fetches)
}

// settle runs fetches and reports the session's error state.
func settle(ctx context.Context, s *grading.Session, fetches []grading.Fetch) error {
	if err := grading.Run(ctx, s, fetches); err != nil {
		return err
	}

	v := s.View()
	switch v.Status {
	case grading.StatusError:
		return v.Err
	case grading.StatusNoSelection:
		return fmt.Errorf("assignment %d has no submissions", s.Selection().AssignmentID)
	}
	return nil
}

// openFile selects path in the loaded submission and waits for its content.
func openFile(ctx context.Context, s *grading.Session, path string) error {
	fetches, err := s.SelectFile(path)
	if err != nil {
		return err
	}
	return settle(ctx, s, fetches)
}
