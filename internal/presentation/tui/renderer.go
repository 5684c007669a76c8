package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// DefaultWrap is the word wrap width used when the terminal size is unknown.
const DefaultWrap = 100

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer(wrap int) (func(string) (string, error), error) {
	if wrap <= 0 {
		wrap = DefaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of the terminal attached to f, or DefaultWrap.
func TerminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWrap
	}
	return w
}

// RendererFor picks glamour for terminals and no renderer otherwise, so piped
// output stays plain Markdown.
func RendererFor(f *os.File) func(string) (string, error) {
	if !IsInteractive(f) {
		return nil
	}
	render, err := NewRenderer(TerminalWidth(f))
	if err != nil {
		return nil
	}
	return render
}
