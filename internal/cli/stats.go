package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Points, tier and badges",
	RunE:  runStats,
}

var themeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Show or select the visual theme",
	Long:  "Without arguments lists themes and which are unlocked. With a name selects it; \"auto\" follows the current tier.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTheme,
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	s := a.tracker.Summary()

	fmt.Fprintf(out, "%s%d points%s  tier %s%s%s  theme %s\n",
		colorBold, s.Points, colorReset, colorMagenta+colorBold, s.Tier.Name, colorReset, s.Theme)
	if s.Next != nil {
		fmt.Fprintf(out, "  %s %d to %s\n", progressBar(s.Progress, 20), s.ToNext, s.Next.Name)
	} else {
		fmt.Fprintf(out, "  %s top tier\n", progressBar(1, 20))
	}
	fmt.Fprintln(out)

	// Board counts.
	cols := a.board.Columns()
	fmt.Fprintf(out, "%sTasks%s\n", colorBold, colorReset)
	fmt.Fprintf(out, "  %-14s %s%d%s\n", "todo:", colorWhite, len(cols[board.StatusTodo]), colorReset)
	fmt.Fprintf(out, "  %-14s %s%d%s\n", "in_progress:", colorBlue, len(cols[board.StatusInProgress]), colorReset)
	fmt.Fprintf(out, "  %-14s %s%d%s\n", "done:", colorGreen, len(cols[board.StatusDone]), colorReset)
	fmt.Fprintf(out, "  %-14s %d\n", "completed:", s.Completed)
	fmt.Fprintln(out)

	earned := map[string]bool{}
	for _, b := range s.Badges {
		earned[b.ID] = true
	}
	fmt.Fprintf(out, "%sBadges%s (%d/%d)\n", colorBold, colorReset, len(s.Badges), len(game.Catalog))
	for _, b := range s.Badges {
		fmt.Fprintf(out, "  %s🏅 %-12s%s %s  %s%s%s\n", colorYellow, b.Name, colorReset, b.Description,
			colorDim, b.EarnedAt.Local().Format("2006-01-02"), colorReset)
	}
	for _, def := range game.Catalog {
		if !earned[def.ID] {
			fmt.Fprintf(out, "  %s·  %-12s %s%s\n", colorDim, def.Name, def.Description, colorReset)
		}
	}
	return nil
}

func runTheme(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		name := strings.ToLower(args[0])
		if name == "auto" {
			name = ""
		}
		if err := a.tracker.SetTheme(name); err != nil {
			if errors.Is(err, game.ErrThemeLocked) {
				return fmt.Errorf("%w (reach the tier that unlocks it first)", err)
			}
			return err
		}
		if err := a.saved(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Theme: %s\n", a.tracker.Theme())
		return nil
	}

	points := a.tracker.Profile().Points
	active := a.tracker.Theme()
	for _, t := range a.tracker.Rules().Tiers {
		marker := "  "
		if t.Theme == active {
			marker = colorGreen + "▸ " + colorReset
		}
		state := colorGreen + "unlocked" + colorReset
		if !a.tracker.Rules().Unlocked(t.Theme, points) {
			state = fmt.Sprintf("%slocked (%d pts)%s", colorDim, t.MinPoints, colorReset)
		}
		fmt.Fprintf(out, "%s%-10s %-10s %s\n", marker, t.Theme, t.Name, state)
	}
	return nil
}

func progressBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return colorGreen + strings.Repeat("█", filled) + colorDim + strings.Repeat("░", width-filled) + colorReset
}
