package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// When stdout is not a terminal the markdown is returned unchanged.
func NewRenderer() func(string) (string, error) {
	if !IsTerminal(os.Stdout) {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
