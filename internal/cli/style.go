package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ANSI-256 palette.
var (
	clrBrand  = lipgloss.Color("214")
	clrGreen  = lipgloss.Color("114")
	clrRed    = lipgloss.Color("203")
	clrYellow = lipgloss.Color("220")
	clrCyan   = lipgloss.Color("81")
	clrDim    = lipgloss.Color("245")
	clrWhite  = lipgloss.Color("255")
)

// styles renders CLI output. When the writer is not a terminal every
// style is a no-op so piped output stays plain.
type styles struct {
	enabled bool

	Bold    lipgloss.Style
	Header  lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	URL     lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Brand   lipgloss.Style
}

func newStyles(w io.Writer, plain bool) styles {
	enabled := false
	if !plain {
		if f, ok := w.(*os.File); ok {
			enabled = term.IsTerminal(int(f.Fd()))
		}
	}

	s := styles{enabled: enabled}
	if !enabled {
		noop := lipgloss.NewStyle()
		s.Bold, s.Header, s.Key, s.Value, s.URL = noop, noop, noop, noop, noop
		s.Dim, s.Warning, s.Error, s.Success, s.Brand = noop, noop, noop, noop, noop
		return s
	}

	s.Bold = lipgloss.NewStyle().Bold(true)
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	s.Key = lipgloss.NewStyle().Foreground(clrDim)
	s.Value = lipgloss.NewStyle().Foreground(clrWhite)
	s.URL = lipgloss.NewStyle().Foreground(clrCyan).Underline(true)
	s.Dim = lipgloss.NewStyle().Foreground(clrDim)
	s.Warning = lipgloss.NewStyle().Foreground(clrYellow).Bold(true)
	s.Error = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	s.Success = lipgloss.NewStyle().Foreground(clrGreen)
	s.Brand = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	return s
}

func (s styles) banner() string {
	return s.Brand.Render("lawmcp")
}

// kv formats "  Key:          value".
func (s styles) kv(key, value string) string {
	return fmt.Sprintf("  %s %s",
		s.Key.Render(fmt.Sprintf("%-11s", key+":")),
		s.Value.Render(value),
	)
}

func (s styles) sectionHeader(title string) string {
	return s.Header.Render(title)
}

func (s styles) url(u string) string {
	return s.URL.Render(u)
}

func (s styles) dim(text string) string {
	return s.Dim.Render(text)
}

func (s styles) errPrefix() string {
	return s.Error.Render("ERROR:")
}

func (s styles) warnPrefix() string {
	return s.Warning.Render("WARNING:")
}

func (s styles) separator(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Dim.Render(strings.Repeat("─", width))
}
