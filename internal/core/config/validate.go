package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/grader/internal/core/styles"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// hide patterns, the backend URL, the theme and file accessibility. The
// configPath argument specifies the config file location to validate (empty
// string skips config file check). This calls Validate() first for basic
// structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateBackend(),
		c.validateHidePatterns(),
		criterio.Run("tui.theme", c.TUI.Theme, themeExists),
		criterio.Run("tui.palette", c.TUI.Palette, paletteExists),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.ClassroomID == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Classroom",
			Message:  "classroom_id is not set; commands will need --classroom",
		})
	}

	if c.Backend.IsRemote() && c.Backend.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     c.Backend.URL,
			Message:  "no token configured; requests are sent unauthenticated",
		})
	}

	if c.Author == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Feedback",
			Message:  "author is not set; comments will be saved without a TA username",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if !c.Backend.IsRemote() {
		return nil
	}
	return criterio.Run("backend.url", c.Backend.URL, func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("host is required")
		}
		return nil
	})
}

func (c *Config) validateHidePatterns() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Tree.Hide {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("tree.hide[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}
	return errs.ToError()
}

func themeExists(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := chromastyles.Registry[name]; !ok {
		return fmt.Errorf("unknown theme %q", name)
	}
	return nil
}

func paletteExists(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown palette %q, available: %s", name, strings.Join(styles.ThemeNames(), ", "))
	}
	return nil
}
