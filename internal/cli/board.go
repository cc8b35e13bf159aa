package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/imkarma/streak/internal/board"
	"github.com/spf13/cobra"
)

// ANSI color codes. Cleared by disableColor when stdout is not a terminal.
var (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

func disableColor() {
	for _, c := range []*string{
		&colorReset, &colorBold, &colorDim, &colorRed, &colorGreen,
		&colorYellow, &colorBlue, &colorMagenta, &colorCyan, &colorWhite,
	} {
		*c = ""
	}
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	all := a.board.List(board.Filter{})
	if len(all) == 0 {
		fmt.Fprintf(out, "%sBoard is empty.%s Add a task: %sstreak task add \"description\"%s\n",
			colorDim, colorReset, colorCyan, colorReset)
		return nil
	}

	columns := a.board.Columns()

	type col struct {
		status board.Status
		label  string
		color  string
	}
	order := []col{
		{board.StatusTodo, "TODO", colorWhite},
		{board.StatusInProgress, "IN PROGRESS", colorBlue},
		{board.StatusDone, "DONE", colorGreen},
	}

	// Print header.
	colWidth := 32
	headerLine := ""
	sepLine := ""
	for _, c := range order {
		count := len(columns[c.status])
		header := fmt.Sprintf(" %s%s%s (%d)", c.color+colorBold, c.label, colorReset, count)
		// Pad by visible length; ANSI codes add bytes.
		visibleLen := len(fmt.Sprintf(" %s (%d)", c.label, count))
		headerLine += header + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		sepLine += strings.Repeat("─", colWidth)
	}
	fmt.Fprintln(out, headerLine)
	fmt.Fprintln(out, colorDim+sepLine+colorReset)

	maxRows := 0
	for _, c := range order {
		maxRows = max(maxRows, len(columns[c.status]))
	}

	for i := 0; i < maxRows; i++ {
		line := ""
		for _, c := range order {
			tasks := columns[c.status]
			if i >= len(tasks) {
				line += strings.Repeat(" ", colWidth)
				continue
			}
			t := tasks[i]
			idStr := shortID(t.ID)
			titleStr := truncate(t.Title, colWidth-len(idStr)-3)
			card := fmt.Sprintf(" %s%s%s %s", priorityColor(t.Priority), idStr, colorReset, titleStr)
			visibleLen := utf8.RuneCountInString(fmt.Sprintf(" %s %s", idStr, titleStr))
			line += card + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		}
		fmt.Fprintln(out, line)

		detailLine := ""
		for _, c := range order {
			tasks := columns[c.status]
			if i >= len(tasks) || !tasks[i].Impeded {
				detailLine += strings.Repeat(" ", colWidth)
				continue
			}
			reason := truncate(tasks[i].ImpedimentReason, colWidth-7)
			visible := fmt.Sprintf("    ⚠ %s", reason)
			detailLine += colorRed + visible + colorReset +
				strings.Repeat(" ", max(colWidth-utf8.RuneCountInString(visible), 0))
		}
		if strings.TrimSpace(detailLine) != "" {
			fmt.Fprintln(out, detailLine)
		}
	}
	fmt.Fprintln(out)

	impeded := a.board.List(board.Filter{ImpededOnly: true})
	if len(impeded) > 0 {
		fmt.Fprintf(out, "%s%s⚠  Impediments%s\n", colorBold, colorRed, colorReset)
		for _, t := range impeded {
			fmt.Fprintf(out, "  %s%s%s: %s\n", colorYellow, shortID(t.ID), colorReset, t.ImpedimentReason)
			fmt.Fprintf(out, "       → %sstreak task unblock %s%s\n", colorCyan, shortID(t.ID), colorReset)
		}
		fmt.Fprintln(out)
	}

	// Summary line.
	fmt.Fprintf(out, "%s%d tasks%s", colorBold, len(all), colorReset)
	if n := len(columns[board.StatusDone]); n > 0 {
		fmt.Fprintf(out, "  %s✓ %d done%s", colorGreen, n, colorReset)
	}
	if n := len(columns[board.StatusInProgress]); n > 0 {
		fmt.Fprintf(out, "  %s● %d in progress%s", colorBlue, n, colorReset)
	}
	if n := len(impeded); n > 0 {
		fmt.Fprintf(out, "  %s⚠ %d impeded%s", colorRed, n, colorReset)
	}
	s := a.tracker.Summary()
	fmt.Fprintf(out, "  %s★ %d pts (%s)%s\n", colorMagenta, s.Points, s.Tier.Name, colorReset)

	return nil
}

func priorityColor(p board.Priority) string {
	switch p {
	case board.PriorityUrgent:
		return colorRed + colorBold
	case board.PriorityHigh:
		return colorRed
	case board.PriorityMedium:
		return colorYellow
	case board.PriorityLow:
		return colorDim
	default:
		return ""
	}
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
