package cli

import (
	"fmt"
	"sort"

	"github.com/imkarma/streak/internal/board"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recently touched tasks",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 10, "Number of tasks to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tasks := a.board.List(board.Filter{})
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	if logLimit > 0 && len(tasks) > logLimit {
		tasks = tasks[:logLimit]
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No activity yet.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(out, "  %s  %s  %-12s %s\n",
			t.UpdatedAt.Local().Format("2006-01-02 15:04:05"), shortID(t.ID), t.Status, t.Title)
	}
	return nil
}
