package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.screen {
	case screenBoard:
		content = m.viewBoard()
	case screenStats:
		content = m.viewStats()
	}

	// Overlay popup if active.
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

// ════════════════════════════════════════════════
// BOARD VIEW
// ════════════════════════════════════════════════

func (m Model) viewBoard() string {
	var b strings.Builder
	st := m.st

	b.WriteString(m.header() + "\n\n")

	colWidth := 30
	if m.width > 0 {
		colWidth = min(max((m.width-numColumns*4)/numColumns, 20), 48)
	}

	var cols []string
	for i := range columnStatuses {
		cols = append(cols, m.renderColumn(i, colWidth))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	if m.statusMsg != "" {
		style := st.status
		if m.statusErr {
			style = st.err
		}
		b.WriteString("\n  " + style.Render(m.statusMsg) + "\n")
	}

	b.WriteString("\n" + m.boardFooter())
	return b.String()
}

func (m Model) header() string {
	st := m.st
	s := m.tracker.Summary()

	left := st.title.Render("streak") +
		st.dim.Render(fmt.Sprintf(" — %d tasks", len(m.board.List(board.Filter{}))))

	right := st.title.Render(fmt.Sprintf("★ %d", s.Points)) + " " +
		st.subtle.Render(s.Tier.Name) + " " + m.progressBar(s.Progress, 12)
	if s.Next != nil {
		right += st.dim.Render(fmt.Sprintf(" %d to %s", s.ToNext, s.Next.Name))
	}

	if m.width > 0 {
		pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
		if pad > 0 {
			return left + strings.Repeat(" ", pad) + right
		}
	}
	return left + "  " + right
}

func (m Model) renderColumn(idx, width int) string {
	st := m.st
	tasks := m.columns[idx]
	selectedCol := idx == m.cursorCol

	var lines []string
	lines = append(lines, st.columnHeader[idx].Render(fmt.Sprintf("%s (%d)", columnLabels[idx], len(tasks))))
	lines = append(lines, st.dim.Render(strings.Repeat("─", width)))

	if len(tasks) == 0 {
		lines = append(lines, st.dim.Render("  empty"))
	}
	for row, t := range tasks {
		lines = append(lines, m.renderCard(t, selectedCol && row == m.cursorRow, width)...)
	}

	box := st.column
	if selectedCol {
		box = st.columnSelected
	}
	return box.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(t board.Task, selected bool, width int) []string {
	st := m.st

	cursor := "  "
	titleStyle := st.card
	if selected {
		cursor = st.cardSelected.Render("▸ ")
		titleStyle = st.cardSelected
	}
	mark := st.priority(t.Priority).Render("●")
	title := truncate(t.Title, width-5)

	lines := []string{cursor + mark + " " + titleStyle.Render(title)}
	if t.Impeded {
		lines = append(lines, "    "+st.impeded.Render("⚠ "+truncate(t.ImpedimentReason, width-7)))
	}
	return lines
}

func (m Model) boardFooter() string {
	return renderFooter(m.st, []struct{ key, desc string }{
		{"hjkl", "move"},
		{"n", "new"},
		{"enter/<", "advance/back"},
		{"p", "priority"},
		{"b", "block"},
		{"d", "delete"},
		{"t", "theme"},
		{"s", "stats"},
		{"q", "quit"},
	})
}

// ════════════════════════════════════════════════
// STATS VIEW
// ════════════════════════════════════════════════

func (m Model) viewStats() string {
	var b strings.Builder
	st := m.st
	s := m.tracker.Summary()

	b.WriteString(m.header() + "\n\n")

	b.WriteString(st.title.Render(fmt.Sprintf("  %d points", s.Points)))
	b.WriteString(st.subtle.Render(fmt.Sprintf("   %d completed   tier %s   theme %s\n", s.Completed, s.Tier.Name, s.Theme)))
	b.WriteString("  " + m.progressBar(s.Progress, 30))
	if s.Next != nil {
		b.WriteString(st.dim.Render(fmt.Sprintf("  %d to %s (unlocks %s)", s.ToNext, s.Next.Name, s.Next.Theme)))
	} else {
		b.WriteString(st.dim.Render("  top tier"))
	}
	b.WriteString("\n\n")

	earned := map[string]game.EarnedBadge{}
	for _, eb := range s.Badges {
		earned[eb.ID] = eb
	}
	b.WriteString(st.title.Render(fmt.Sprintf("  Badges %d/%d", len(s.Badges), len(game.Catalog))) + "\n")
	for _, def := range game.Catalog {
		if eb, ok := earned[def.ID]; ok {
			b.WriteString(fmt.Sprintf("  🏅 %s %s %s\n",
				st.cardSelected.Render(fmt.Sprintf("%-12s", def.Name)),
				st.card.Render(def.Description),
				st.dim.Render(eb.EarnedAt.Local().Format("2006-01-02"))))
		} else {
			b.WriteString(st.dim.Render(fmt.Sprintf("  ·  %-12s %s", def.Name, def.Description)) + "\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n  " + st.status.Render(m.statusMsg) + "\n")
	}

	b.WriteString("\n" + renderFooter(st, []struct{ key, desc string }{
		{"t", "theme"},
		{"esc", "back"},
		{"q", "quit"},
	}))
	return b.String()
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupCreate:
		popup = m.viewCreatePopup()
	case popupImpediment:
		popup = m.viewImpedimentPopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewCreatePopup() string {
	st := m.st
	var b strings.Builder
	b.WriteString(st.title.Render("New task") + "\n\n")
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString(st.subtle.Render("Priority: ") + st.priority(m.createPriority).Render(string(m.createPriority)) + "\n\n")
	b.WriteString(renderFooter(st, []struct{ key, desc string }{
		{"enter", "create"},
		{"tab", "priority"},
		{"esc", "cancel"},
	}))
	return st.popup.Render(b.String())
}

func (m Model) viewImpedimentPopup() string {
	st := m.st
	title := m.popupTaskID
	if t, err := m.board.Get(m.popupTaskID); err == nil {
		title = t.Title
	}
	var b strings.Builder
	b.WriteString(st.title.Render("Impediment") + st.dim.Render(" — "+truncate(title, 40)) + "\n\n")
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString(renderFooter(st, []struct{ key, desc string }{
		{"enter", "save"},
		{"esc", "cancel"},
	}))
	return st.popup.Render(b.String())
}

func (m Model) viewConfirmDeletePopup() string {
	st := m.st
	title := m.popupTaskID
	if t, err := m.board.Get(m.popupTaskID); err == nil {
		title = t.Title
	}
	var b strings.Builder
	b.WriteString(st.err.Render("Delete task?") + "\n\n")
	b.WriteString(st.card.Render(truncate(title, 50)) + "\n\n")
	b.WriteString(renderFooter(st, []struct{ key, desc string }{
		{"y", "delete"},
		{"n", "keep"},
	}))
	return st.popup.Render(b.String())
}

// --- helpers ---

func (m Model) progressBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return m.st.barFull.Render(strings.Repeat("█", filled)) +
		m.st.barEmpty.Render(strings.Repeat("░", width-filled))
}

func renderFooter(st styles, keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := st.footerKey.Render(k.key)
		desc := st.footerDesc.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
