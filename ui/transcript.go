package ui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"node.town/tandem/session"
)

// Run shows the terminal UI until the user quits, then prints the session
// history to out.
func Run(state *session.State, s Session, out io.Writer) error {
	p := tea.NewProgram(newModel(state, s), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}

	history := state.History()
	if len(history) == 0 {
		return nil
	}
	rendered, err := Render(history, 80)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// Transcript formats the history, newest first as State keeps it, as
// chronological markdown.
func Transcript(history []session.Entry) string {
	var b strings.Builder
	b.WriteString("# Session transcript\n\n")
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		fmt.Fprintf(&b, "**%s · Station %s** (%s → %s)\n\n",
			e.Timestamp.Format("15:04:05"), e.Speaker, e.SourceLang, e.TargetLang)
		fmt.Fprintf(&b, "> %s\n\n", e.Original)
		fmt.Fprintf(&b, "%s\n\n", e.Translated)
	}
	return b.String()
}

func Render(history []session.Entry, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(Transcript(history))
	if err != nil {
		return "", fmt.Errorf("failed to render transcript: %w", err)
	}
	return out, nil
}
