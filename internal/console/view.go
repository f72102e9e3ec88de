package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563eb"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	helperStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	pickerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
)

const (
	pendingText = "Troubleshooting your site…"
	helpText    = "Enter: send • Ctrl+P: common issues • Ctrl+R: reset session • Esc: quit"
	footerText  = "Always keep a site backup before applying changes."
)

func (m *model) View() string {
	parts := []string{titleStyle.Render("WP-FixIt Assistant")}

	if m.picking {
		parts = append(parts, m.pickerView())
	} else {
		parts = append(parts, m.viewport.View())
	}

	if m.snap.Pending {
		parts = append(parts, helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), pendingText)))
	} else {
		parts = append(parts, "")
	}

	parts = append(parts, m.input.View(), helperStyle.Render(helpText), helperStyle.Render(footerText))
	return strings.Join(parts, "\n")
}

func (m *model) pickerView() string {
	var b strings.Builder
	b.WriteString("Common issues\n\n")
	for i, issue := range m.config.Presets.List() {
		line := fmt.Sprintf("%s %s  %s", issue.Icon, issue.Label, helperStyle.Render(issue.Description))
		if i == m.cursor {
			line = cursorStyle.Render(fmt.Sprintf("%s %s", issue.Icon, issue.Label)) + "  " + helperStyle.Render(issue.Description)
		}
		b.WriteString(line)
		b.WriteRune('\n')
	}

	if links := m.config.Presets.Links(); len(links) > 0 {
		b.WriteString("\nSupport tools\n")
		for _, link := range links {
			b.WriteString(sourceStyle.Render(fmt.Sprintf("  %s: %s", link.Label, link.URL)))
			b.WriteRune('\n')
		}
	}
	b.WriteString(helperStyle.Render("\n↑/↓ choose • Enter submit • Esc close"))
	return pickerBoxStyle.Render(b.String())
}

// renderTranscript lays out turns oldest first, wrapped to width.
func renderTranscript(snap chat.Snapshot, width int) string {
	if width < minViewportWidth {
		width = minViewportWidth
	}

	blocks := make([]string, 0, len(snap.Turns))
	for _, turn := range snap.Turns {
		blocks = append(blocks, renderTurn(turn, width))
	}
	return strings.Join(blocks, "\n\n")
}

func renderTurn(turn chat.Turn, width int) string {
	var b strings.Builder
	if turn.Speaker == chat.SpeakerUser {
		b.WriteString(userStyle.Render("You"))
	} else {
		b.WriteString(assistantStyle.Render("WP-FixIt"))
	}
	b.WriteRune('\n')
	b.WriteString(wordwrap.String(turn.Text, width))

	if len(turn.Citations) > 0 {
		b.WriteString("\n")
		b.WriteString(helperStyle.Render("Helpful Resources:"))
		for i, c := range turn.Citations {
			b.WriteRune('\n')
			b.WriteString(sourceStyle.Render(wordwrap.String(fmt.Sprintf("[%d] %s %s", i+1, c.DisplayTitle(), c.URL), width)))
		}
	}
	return b.String()
}
