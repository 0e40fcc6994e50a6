package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/halftone/pkg/transform"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorFaint)
	listFilterStyle = lipgloss.NewStyle().Foreground(colorAccent)
)

// =============================================================================
// AlgorithmListModel - Interactive algorithm selection
// =============================================================================

// AlgorithmListModel is the bubbletea model for picking an algorithm.
// Printable keys narrow the list by key, family or description.
type AlgorithmListModel struct {
	All      []transform.Info
	Visible  []transform.Info
	Filter   string
	Cursor   int
	Offset   int
	Height   int
	Selected *transform.Info
}

// NewAlgorithmListModel creates a picker over infos.
func NewAlgorithmListModel(infos []transform.Info) AlgorithmListModel {
	return AlgorithmListModel{
		All:     infos,
		Visible: infos,
		Height:  15,
	}
}

func (m AlgorithmListModel) Init() tea.Cmd {
	return nil
}

func (m AlgorithmListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.move(-1)
		case tea.KeyDown:
			m.move(1)
		case tea.KeyEnter:
			if len(m.Visible) == 0 {
				return m, nil
			}
			info := m.Visible[m.Cursor]
			m.Selected = &info
			return m, tea.Quit
		case tea.KeyBackspace:
			if m.Filter != "" {
				m.Filter = m.Filter[:len(m.Filter)-1]
				m.refilter()
			}
		case tea.KeyRunes, tea.KeySpace:
			m.Filter += string(msg.Runes)
			m.refilter()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m *AlgorithmListModel) move(delta int) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.Visible) {
		return
	}
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *AlgorithmListModel) refilter() {
	m.Visible = filterInfos(m.All, m.Filter)
	m.Cursor, m.Offset = 0, 0
}

// filterInfos keeps the infos whose key, family or description contains
// query, ignoring case.
func filterInfos(infos []transform.Info, query string) []transform.Info {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return infos
	}
	var out []transform.Info
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Key), q) ||
			strings.Contains(string(info.Family), q) ||
			strings.Contains(strings.ToLower(info.Description), q) {
			out = append(out, info)
		}
	}
	return out
}

func (m AlgorithmListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Algorithm"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  type to filter  esc quit"))
	b.WriteString("\n")
	b.WriteString(listFilterStyle.Render("filter: " + m.Filter))
	b.WriteString("\n\n")

	if len(m.Visible) == 0 {
		b.WriteString(listDimStyle.Render("  no matching algorithms"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Visible))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		info := m.Visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, info.Key, string(info.Family), truncate(info.Description, 48)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("", "Algorithm", "Family", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			isCurrent := m.Offset+row == m.Cursor
			base := lipgloss.NewStyle()
			if col >= 2 {
				if isCurrent {
					return base.Foreground(colorMuted).Bold(true)
				}
				return base.Foreground(colorFaint)
			}
			if isCurrent {
				return base.Foreground(colorOK).Bold(true)
			}
			return base.Foreground(colorText)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Visible))))

	return b.String()
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
