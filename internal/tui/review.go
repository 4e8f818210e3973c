// Package tui holds the interactive update review screen. It follows
// The Elm Architecture via bubbletea: the model carries the pending
// updates plus a selection mask, Update reacts to key presses, and
// View renders the checklist.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/plugrove/plugrove/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	logStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).PaddingLeft(6)
)

type reviewKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

func (k reviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.All, k.None, k.Confirm, k.Quit}
}

func (k reviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.All, k.None, k.Confirm, k.Quit},
	}
}

var reviewKeys = reviewKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
	None:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "select none")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply selected")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "abort")),
}

// reviewModel is the checklist state. Every update starts selected;
// the user deselects what should stay locked where it is.
type reviewModel struct {
	updates  []engine.UpdateInfo
	selected []bool
	cursor   int
	keys     reviewKeyMap
	help     help.Model
	width    int
	aborted  bool
}

func newReviewModel(updates []engine.UpdateInfo) reviewModel {
	selected := make([]bool, len(updates))
	for i := range selected {
		selected[i] = true
	}
	return reviewModel{
		updates:  updates,
		selected: selected,
		keys:     reviewKeys,
		help:     help.New(),
	}
}

func (m reviewModel) Init() tea.Cmd { return nil }

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.updates)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			m.selected[m.cursor] = !m.selected[m.cursor]
		case key.Matches(msg, m.keys.All):
			for i := range m.selected {
				m.selected[i] = true
			}
		case key.Matches(msg, m.keys.None):
			for i := range m.selected {
				m.selected[i] = false
			}
		case key.Matches(msg, m.keys.Confirm):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit):
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m reviewModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Updates available (%d)", len(m.updates))))
	b.WriteString("\n")

	for i, u := range m.updates {
		b.WriteString(m.renderRow(i, u))
		b.WriteString("\n")
		// Only the row under the cursor shows its change summary.
		if i == m.cursor {
			for _, line := range clampLines(u.Log, 5) {
				b.WriteString(logStyle.Render(line))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m reviewModel) renderRow(i int, u engine.UpdateInfo) string {
	mark := "[ ]"
	if m.selected[i] {
		mark = "[x]"
	}
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}

	span := fmt.Sprintf("%s → %s", engine.ShortCommit(u.OldCommit), engine.ShortCommit(u.NewCommit))
	if u.Tag != "" {
		span += fmt.Sprintf(" (%s)", u.Tag)
	}
	row := fmt.Sprintf("%s%s %s  %s", pointer, mark, u.Identity, dimStyle.Render(span))
	if m.selected[i] {
		return selectedStyle.Render(row)
	}
	return row
}

// approved returns the updates still selected, in display order.
func (m reviewModel) approved() []engine.UpdateInfo {
	if m.aborted {
		return nil
	}
	var out []engine.UpdateInfo
	for i, u := range m.updates {
		if m.selected[i] {
			out = append(out, u)
		}
	}
	return out
}

func clampLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := make([]string, n, n+1)
	copy(out, lines[:n])
	return append(out, fmt.Sprintf("… %d more", len(lines)-n))
}

// Review runs the interactive checklist and returns the approved
// updates. An aborted session returns nil with no error; the caller
// treats that as nothing approved.
func Review(updates []engine.UpdateInfo) ([]engine.UpdateInfo, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	p := tea.NewProgram(newReviewModel(updates))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	m, ok := final.(reviewModel)
	if !ok {
		return nil, fmt.Errorf("update review: unexpected final model %T", final)
	}
	return m.approved(), nil
}
