package render

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// DefaultTheme is the chroma style used when none is configured.
const DefaultTheme = "dracula"

// Highlight returns lines with ANSI syntax colors. The language name wins over
// the path when both identify a lexer. Unknown languages come back unchanged.
func Highlight(path, language string, lines []string, theme string) []string {
	lexer := lexerFor(path, language)
	if lexer == nil || len(lines) == 0 {
		return lines
	}

	iterator, err := lexer.Tokenise(nil, strings.Join(lines, "\n"))
	if err != nil {
		return lines
	}

	style := styles.Get(theme)
	if style == nil {
		style = styles.Get(DefaultTheme)
	}

	out := make([]string, 0, len(lines))
	var current strings.Builder
	for _, token := range iterator.Tokens() {
		// tokens may span lines
		parts := strings.Split(token.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				out = append(out, current.String())
				current.Reset()
			}
			if part != "" {
				current.WriteString(colorize(style, token.Type, part))
			}
		}
	}
	out = append(out, current.String())

	for len(out) < len(lines) {
		out = append(out, "")
	}
	return out[:len(lines)]
}

func lexerFor(path, language string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Match(filepath.Base(path))
	}
	if lexer == nil {
		if ext := filepath.Ext(path); ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	return lexer
}

func colorize(style *chroma.Style, tt chroma.TokenType, text string) string {
	entry := style.Get(tt)
	if !entry.Colour.IsSet() {
		return text
	}
	s := lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Colour.String()))
	if entry.Bold == chroma.Yes {
		s = s.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		s = s.Italic(true)
	}
	return s.Render(text)
}
