// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"sort"

	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/grader/internal/core/snapshot"
)

// Palette defines a minimal semantic theme palette. Colors are hex strings.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    "#7aa2f7",
		Secondary:  "#7dcfff",
		Foreground: "#c0caf5",
		Muted:      "#565f89",
		Background: "#1a1b26",
		Surface:    "#3b4261",
		Success:    "#9ece6a",
		Warning:    "#e0af68",
		Error:      "#f7768e",
	},
	"gruvbox": {
		Primary:    "#83a598",
		Secondary:  "#8ec07c",
		Foreground: "#ebdbb2",
		Muted:      "#665c54",
		Background: "#282828",
		Surface:    "#3c3836",
		Success:    "#b8bb26",
		Warning:    "#fabd2f",
		Error:      "#fb4934",
	},
	"catppuccin": {
		Primary:    "#89b4fa", // Blue
		Secondary:  "#94e2d5", // Teal
		Foreground: "#cdd6f4", // Text
		Muted:      "#6c7086", // Overlay0
		Background: "#1e1e2e", // Base
		Surface:    "#313244", // Surface0
		Success:    "#a6e3a1", // Green
		Warning:    "#f9e2af", // Yellow
		Error:      "#f38ba8", // Red
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	// CLI styles.
	HeaderStyle  lipgloss.Style
	MutedStyle   lipgloss.Style
	DividerStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style

	// Tree and file view.
	SelectedStyle    lipgloss.Style
	DirectoryStyle   lipgloss.Style
	FileStyle        lipgloss.Style
	LineNumberStyle  lipgloss.Style
	ChangedGutter    lipgloss.Style
	ChangedLineStyle lipgloss.Style

	StatusAddedStyle    lipgloss.Style
	StatusModifiedStyle lipgloss.Style
	StatusRemovedStyle  lipgloss.Style

	// Feedback.
	CommentStyle       lipgloss.Style
	CommentHeaderStyle lipgloss.Style
	PointsStyle        lipgloss.Style
	PendingStyle       lipgloss.Style

	// TUI panes.
	PaneStyle        lipgloss.Style
	PaneFocusedStyle lipgloss.Style
	StatusBarStyle   lipgloss.Style
	HelpStyle        lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	MutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	DividerStyle = lipgloss.NewStyle().Foreground(p.Surface)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)

	SelectedStyle = lipgloss.NewStyle().
		Foreground(p.Background).
		Background(p.Primary).
		Bold(true)
	DirectoryStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	FileStyle = lipgloss.NewStyle().Foreground(p.Foreground)
	LineNumberStyle = lipgloss.NewStyle().Foreground(p.Muted)
	ChangedGutter = lipgloss.NewStyle().Foreground(p.Success).Bold(true)
	ChangedLineStyle = lipgloss.NewStyle().Background(p.Surface)

	StatusAddedStyle = lipgloss.NewStyle().Foreground(p.Success)
	StatusModifiedStyle = lipgloss.NewStyle().Foreground(p.Warning)
	StatusRemovedStyle = lipgloss.NewStyle().Foreground(p.Error)

	CommentStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(p.Warning).
		PaddingLeft(1)
	CommentHeaderStyle = lipgloss.NewStyle().Foreground(p.Warning).Bold(true)
	PointsStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	PendingStyle = lipgloss.NewStyle().Foreground(p.Muted).Italic(true)

	PaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface)
	PaneFocusedStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary)
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Background(p.Surface).
		Padding(0, 1)
	HelpStyle = lipgloss.NewStyle().Foreground(p.Muted)
}

// StatusStyle returns the style for an entry's change status.
func StatusStyle(s snapshot.ChangeStatus) lipgloss.Style {
	switch s {
	case snapshot.StatusAdded:
		return StatusAddedStyle
	case snapshot.StatusModified:
		return StatusModifiedStyle
	case snapshot.StatusRemoved:
		return StatusRemovedStyle
	default:
		return FileStyle
	}
}

// StatusMarker is the one-character tree marker for a change status.
func StatusMarker(s snapshot.ChangeStatus) string {
	switch s {
	case snapshot.StatusAdded:
		return "A"
	case snapshot.StatusModified:
		return "M"
	case snapshot.StatusRemoved:
		return "D"
	default:
		return " "
	}
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func hexPtr(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	hex := string(c)
	return &hex
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	p := CurrentPalette

	fg := hexPtr(p.Foreground)
	primary := hexPtr(p.Primary)
	secondary := hexPtr(p.Secondary)
	muted := hexPtr(p.Muted)

	cfg.Document.Color = fg
	cfg.Document.Margin = nil
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = primary
	cfg.H1.BackgroundColor = nil
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}
