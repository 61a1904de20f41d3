package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/grader/internal/core/config"
	"github.com/colonyops/grader/pkg/utils"
)

type Flags struct {
	LogLevel    string
	LogFile     string
	ConfigPath  string
	DataDir     string
	ClassroomID int64

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Deferred collects warnings logged while a full screen program owns the
	// terminal. It is flushed to stderr in the After hook.
	Deferred *utils.DeferredWriter
}

// Classroom returns the classroom from --classroom, falling back to config.
func (f *Flags) Classroom() int64 {
	if f.ClassroomID != 0 {
		return f.ClassroomID
	}
	if f.Config != nil {
		return f.Config.ClassroomID
	}
	return 0
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "grader", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "grader")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/grader/grader.log
// On Linux: $XDG_STATE_HOME/grader/grader.log (defaults to ~/.local/state/grader/grader.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "grader", "grader.log")
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "grader", "grader.log")
	}
	return filepath.Join(home, ".local", "state", "grader", "grader.log")
}
