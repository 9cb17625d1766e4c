// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package console is the SSH-served operator dashboard: a Bubble Tea
// program showing the live session table and admission counters, reached
// over SSH with a single shared password rather than the proxy's own
// client-facing protocol.
package console

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SessionRow is one line of the live session table.
type SessionRow struct {
	ID         string
	Engine     string
	PeerAddr   string
	StartedAt  time.Time
	LastActive time.Time
}

// Counters is the admission-gate snapshot shown in the header cards.
type Counters struct {
	ActiveSessions int
	Admitted       int
	Blocked        int
	RateLimited    int
}

// Backend is the data source behind the dashboard. The daemon package
// supplies the concrete implementation over the session registry and
// metrics registry.
type Backend interface {
	ListSessions() []SessionRow
	Counters() Counters
}

type tickMsg time.Time

// Model is the Bubble Tea program served to each SSH client.
type Model struct {
	backend     Backend
	table       table.Model
	sessions    []SessionRow
	counters    Counters
	width       int
	height      int
	lastUpdated time.Time
}

// NewModel builds the initial dashboard state.
func NewModel(backend Backend) Model {
	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Engine", Width: 12},
		{Title: "Peer", Width: 18},
		{Title: "Age", Width: 10},
		{Title: "Idle", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorDeep).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorIce).
		Background(ColorDeep).
		Bold(false)
	t.SetStyles(s)

	return Model{backend: backend, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		rows := m.backend.ListSessions()
		sort.Slice(rows, func(i, j int) bool { return rows[i].StartedAt.Before(rows[j].StartedAt) })
		return refreshedMsg{sessions: rows, counters: m.backend.Counters()}
	}
}

type refreshedMsg struct {
	sessions []SessionRow
	counters Counters
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		}
		return m, nil
	case tickMsg:
		m.lastUpdated = time.Time(msg)
		return m, tea.Batch(m.refresh(), tick())
	case refreshedMsg:
		m.sessions = msg.sessions
		m.counters = msg.counters
		m.table.SetRows(sessionRows(msg.sessions))
		return m, nil
	}
	return m, nil
}

func sessionRows(sessions []SessionRow) []table.Row {
	now := time.Now()
	rows := make([]table.Row, len(sessions))
	for i, s := range sessions {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows[i] = table.Row{
			id,
			s.Engine,
			s.PeerAddr,
			now.Sub(s.StartedAt).Round(time.Second).String(),
			now.Sub(s.LastActive).Round(time.Second).String(),
		}
	}
	return rows
}

func (m Model) View() string {
	header := StyleTopBar.Render(StyleTitle.Render("chessuci-proxyd") + "  " +
		StyleSubtitle.Render("[q] quit  [r] refresh"))

	counters := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render("Admission"),
		fmt.Sprintf("active sessions: %d", m.counters.ActiveSessions),
		fmt.Sprintf("admitted:        %d", m.counters.Admitted),
		StyleStatusWarn.Render(fmt.Sprintf("rate limited:    %d", m.counters.RateLimited)),
		StyleStatusBad.Render(fmt.Sprintf("blocked:         %d", m.counters.Blocked)),
	))

	sessionsCard := StyleCard.Render(m.renderSessionTable())

	footer := StyleSubtitle.Render(fmt.Sprintf("last updated: %s", m.lastUpdated.Format("15:04:05")))

	return lipgloss.JoinVertical(lipgloss.Left, header, "", counters, "", sessionsCard, "", footer)
}

func (m Model) renderSessionTable() string {
	if len(m.sessions) == 0 {
		return StyleTitle.Render("Active sessions") + "\n" + StyleSubtitle.Render("none")
	}
	return StyleTitle.Render("Active sessions") + "\n" + m.table.View()
}
