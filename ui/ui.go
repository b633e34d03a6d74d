// Package ui is the terminal front end: both stations, the live caption
// and its translation, the history and the worker status line.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"node.town/tandem/langs"
	"node.town/tandem/session"
)

// Session is the part of the pipeline controller the terminal drives.
type Session interface {
	Start() bool
	Stop()
	Flush()
	Running() bool
}

const (
	speedStep       = 0.1
	sensitivityStep = 10
)

var (
	accent = lipgloss.Color("#25A065")
	muted  = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(accent).
			Padding(0, 1)
	stationStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
	activeStyle  = stationStyle.BorderForeground(accent)
	captionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(muted)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

type tickMsg time.Time

type model struct {
	state    *session.State
	session  Session
	interval time.Duration

	viewport viewport.Model
	view     session.View
	running  bool
	ready    bool
	width    int
	entries  int
}

func newModel(state *session.State, s Session) model {
	m := model{
		state:    state,
		session:  s,
		interval: 150 * time.Millisecond,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) refresh() {
	m.view = m.state.Snapshot()
	m.running = m.session.Running()
	if m.ready && len(m.view.History) != m.entries {
		m.entries = len(m.view.History)
		m.viewport.SetContent(m.historyView())
		m.viewport.GotoTop()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "space":
			if m.session.Running() {
				m.session.Stop()
			} else {
				m.session.Start()
			}
		case "tab":
			active := m.state.Settings().Active
			if m.state.SetActiveStation(active.Other()) {
				m.session.Flush()
			}
		case "l":
			active := m.state.Settings().Active
			lang := m.state.Settings().Voice(active).Lang
			m.state.SetStationLanguage(active, langs.Next(lang))
			m.session.Flush()
		case "a":
			active := m.state.Settings().Active
			v := m.state.Settings().Voice(active)
			m.state.SetStationLocale(active, langs.NextLocale(v.Lang, v.Locale))
			m.session.Flush()
		case "c":
			m.state.RequestCalibration()
		case "f":
			m.session.Flush()
		case "+", "=":
			m.state.SetVoiceSpeed(m.state.Settings().VoiceSpeed + speedStep)
		case "-":
			m.state.SetVoiceSpeed(m.state.Settings().VoiceSpeed - speedStep)
		case "]":
			m.state.SetSensitivity(m.state.Settings().Sensitivity + sensitivityStep)
		case "[":
			m.state.SetSensitivity(m.state.Settings().Sensitivity - sensitivityStep)
		}
		m.refresh()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, height))
			m.ready = true
			m.entries = -1
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, height)
		}
		m.refresh()

	case tickMsg:
		m.refresh()
		cmds = append(cmds, m.tick())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.headerView(), m.viewport.View(), m.footerView())
}

func (m model) headerView() string {
	state := "stopped"
	if m.running {
		state = "listening"
	}
	if m.view.Speaking {
		state = "speaking"
	}
	title := titleStyle.Render("Tandem · " + state)
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, line)

	stations := lipgloss.JoinHorizontal(lipgloss.Top,
		m.stationView(session.StationA),
		m.stationView(session.StationB),
	)

	caption := captionStyle.Render(or(m.view.Caption, "…"))
	translation := dimStyle.Render(or(m.view.Translation, ""))
	return lipgloss.JoinVertical(lipgloss.Left, header, stations, caption, translation)
}

func (m model) stationView(st session.Station) string {
	v := m.view.Settings.Voice(st)
	style := stationStyle
	label := "Station " + string(st)
	if m.view.Settings.Active == st {
		style = activeStyle
		label += " (speaking)"
	}
	return style.Render(fmt.Sprintf("%s\n%s · %s", label, v.Lang, v.Locale))
}

func (m model) footerView() string {
	var status []string
	for _, stage := range session.Stages {
		label, ok := m.view.Status[stage]
		if !ok {
			continue
		}
		status = append(status, fmt.Sprintf("%s: %s", stage, label))
	}
	lines := []string{
		dimStyle.Render(strings.Join(status, "  ")),
		dimStyle.Render(fmt.Sprintf("speed %.1fx  sensitivity %.0f",
			m.view.Settings.VoiceSpeed, m.view.Settings.Sensitivity)),
	}
	if m.view.Error != "" {
		lines = append(lines, errorStyle.Render(m.view.Error))
	}
	help := titleStyle.Render("space start/stop · tab switch · l language · a accent · c calibrate · f flush · +/- speed · [/] sensitivity · q quit")
	lines = append(lines, help)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// historyView lists the newest entry first.
func (m model) historyView() string {
	var b strings.Builder
	for _, e := range m.view.History {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s  %s  %s → %s",
			e.Timestamp.Format("15:04:05"), e.Speaker, e.SourceLang, e.TargetLang)))
		b.WriteString("\n")
		b.WriteString(e.Original)
		b.WriteString("\n")
		b.WriteString(captionStyle.Render(e.Translated))
		b.WriteString("\n\n")
	}
	return b.String()
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
