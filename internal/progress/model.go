// Package progress renders an interactive progress display for a running
// batch. It is only attached when stdout is a terminal.
package progress

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Slynchy/webp-conv/internal/batch"
	"github.com/Slynchy/webp-conv/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Padding(0, 1)

	barFilledStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	barEmptyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	failStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))
)

// maxRecentFailures bounds the failure list shown under the bar.
const maxRecentFailures = 5

// StartMsg announces the batch size.
type StartMsg struct {
	Total int
}

// ItemDoneMsg reports one finished item.
type ItemDoneMsg struct {
	Done    int
	Total   int
	Outcome domain.Outcome
}

// DoneMsg carries the resolved report and ends the program.
type DoneMsg struct {
	Report *domain.BatchReport
}

// Model is the progress display model.
type Model struct {
	total     int
	done      int
	succeeded int
	warned    int
	skipped   int
	failed    int

	recentFailures []string
	summary        string

	width    int
	finished bool
}

// NewModel creates an empty progress model.
func NewModel() Model {
	return Model{width: 80}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case StartMsg:
		m.total = msg.Total

	case ItemDoneMsg:
		m.done = msg.Done
		m.total = msg.Total
		switch msg.Outcome.Status {
		case domain.StatusSuccess:
			m.succeeded++
		case domain.StatusWarning:
			m.warned++
		case domain.StatusSkipped:
			m.skipped++
		case domain.StatusFailed:
			m.failed++
			line := msg.Outcome.Item.Name + ": " + msg.Outcome.Detail
			m.recentFailures = append(m.recentFailures, line)
			if len(m.recentFailures) > maxRecentFailures {
				m.recentFailures = m.recentFailures[1:]
			}
		}

	case DoneMsg:
		m.finished = true
		m.summary = batch.Summarize(msg.Report)
		return m, tea.Quit
	}

	return m, nil
}

// View renders the progress display.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("webp-conv"))
	b.WriteString("\n\n")

	b.WriteString(" " + m.renderBar())
	b.WriteString(fmt.Sprintf(" %d/%d\n\n", m.done, m.total))

	counts := []string{
		okStyle.Render(fmt.Sprintf("%d ok", m.succeeded)),
	}
	if m.warned > 0 {
		counts = append(counts, warnStyle.Render(fmt.Sprintf("%d warned", m.warned)))
	}
	if m.skipped > 0 {
		counts = append(counts, dimmedStyle.Render(fmt.Sprintf("%d skipped", m.skipped)))
	}
	if m.failed > 0 {
		counts = append(counts, failStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	b.WriteString(" " + strings.Join(counts, dimmedStyle.Render(" | ")))
	b.WriteString("\n")

	if len(m.recentFailures) > 0 {
		b.WriteString("\n")
		for _, f := range m.recentFailures {
			b.WriteString(" " + failStyle.Render("✗ "+f) + "\n")
		}
	}

	if m.finished {
		b.WriteString("\n" + m.summary + "\n")
	}

	return b.String()
}

func (m Model) renderBar() string {
	width := m.width - 12
	if width > 40 {
		width = 40
	}
	if width < 10 {
		width = 10
	}

	filled := 0
	if m.total > 0 {
		filled = width * m.done / m.total
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}
