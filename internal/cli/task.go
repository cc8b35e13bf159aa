package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
	"github.com/spf13/cobra"
)

var (
	taskPriority    string
	taskFilterState string
	taskFilterPrio  string
	taskImpeded     bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
	Long:  "Create a new task or manage existing ones on the board. Task IDs may be shortened to any unique prefix.",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task to the todo column",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, most urgent first",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Move a task to in progress",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(board.StatusInProgress),
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [id]",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(board.StatusDone),
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen [id]",
	Short: "Move a task back to todo",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(board.StatusTodo),
}

var taskStatusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Set a task's status: todo, in_progress, done",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskStatus,
}

var taskPriorityCmd = &cobra.Command{
	Use:   "priority [id] [priority]",
	Short: "Set a task's priority: low, medium, high, urgent",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskPriority,
}

var taskBlockCmd = &cobra.Command{
	Use:   "block [id] [reason]",
	Short: "Flag a task as impeded",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskBlock,
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock [id]",
	Short: "Clear a task's impediment",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUnblock,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "medium", "Priority: low, medium, high, urgent")

	taskListCmd.Flags().StringVarP(&taskFilterState, "status", "s", "", "Only show tasks with this status")
	taskListCmd.Flags().StringVarP(&taskFilterPrio, "priority", "p", "", "Only show tasks with this priority")
	taskListCmd.Flags().BoolVar(&taskImpeded, "impeded", false, "Only show impeded tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskReopenCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskPriorityCmd)
	taskCmd.AddCommand(taskBlockCmd)
	taskCmd.AddCommand(taskUnblockCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := parsePriority(taskPriority)
	if err != nil {
		return err
	}
	task, err := a.board.Add(strings.Join(args, " "), p)
	if err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s [%s]\n", shortID(task.ID), task.Title, task.Priority)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var f board.Filter
	if taskFilterState != "" {
		if f.Status, err = parseStatus(taskFilterState); err != nil {
			return err
		}
	}
	if taskFilterPrio != "" {
		if f.Priority, err = parsePriority(taskFilterPrio); err != nil {
			return err
		}
	}
	f.ImpededOnly = taskImpeded

	out := cmd.OutOrStdout()
	tasks := a.board.List(f)
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	for _, t := range tasks {
		impeded := ""
		if t.Impeded {
			impeded = fmt.Sprintf(" IMPEDED: %q", t.ImpedimentReason)
		}
		fmt.Fprintf(out, "%s %-12s %s%-6s%s %s%s\n",
			shortID(t.ID), t.Status, priorityColor(t.Priority), t.Priority, colorReset, t.Title, impeded)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.resolve(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %s\n", t.ID)
	fmt.Fprintf(out, "  Title:    %s\n", t.Title)
	fmt.Fprintf(out, "  Status:   %s\n", t.Status)
	fmt.Fprintf(out, "  Priority: %s\n", t.Priority)
	if t.Impeded {
		fmt.Fprintf(out, "  Impeded:  %s\n", t.ImpedimentReason)
	}
	fmt.Fprintf(out, "  History:  %s\n", joinStatuses(t.StatusHistory))
	if t.StartedAt != nil {
		fmt.Fprintf(out, "  Started:  %s\n", t.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	if t.EndedAt != nil {
		fmt.Fprintf(out, "  Ended:    %s\n", t.EndedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "  Created:  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  Updated:  %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func statusSetter(s board.Status) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], s)
	}
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	s, err := parseStatus(args[1])
	if err != nil {
		return err
	}
	return setStatus(cmd, args[0], s)
}

func setStatus(cmd *cobra.Command, id string, s board.Status) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.resolve(id)
	if err != nil {
		return err
	}
	if t.Status == s {
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is already %s\n", shortID(t.ID), s)
		return nil
	}
	if t, err = a.board.SetStatus(t.ID, s); err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %s → %s\n", shortID(t.ID), t.Status)
	printAwards(out, a.awards)
	return nil
}

func runTaskPriority(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := parsePriority(args[1])
	if err != nil {
		return err
	}
	t, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if t, err = a.board.SetPriority(t.ID, p); err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Task %s priority: %s\n", shortID(t.ID), t.Priority)
	return nil
}

func runTaskBlock(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	reason := strings.Join(args[1:], " ")
	if t, err = a.board.SetImpediment(t.ID, reason); err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Task %s impeded: %s\n", shortID(t.ID), t.ImpedimentReason)
	return nil
}

func runTaskUnblock(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if !t.Impeded {
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is not impeded\n", shortID(t.ID))
		return nil
	}
	if t, err = a.board.ClearImpediment(t.ID); err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %s unblocked\n", shortID(t.ID))
	printAwards(out, a.awards)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	if err := a.board.Delete(t.ID); err != nil {
		return err
	}
	if err := a.saved(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %s\n", shortID(t.ID), t.Title)
	return nil
}

// printAwards reports points, badges and tier changes earned by a command.
func printAwards(out io.Writer, awards []game.Award) {
	for _, aw := range awards {
		if aw.Points > 0 {
			fmt.Fprintf(out, "  %s+%d points%s\n", colorGreen+colorBold, aw.Points, colorReset)
		}
		for _, b := range aw.NewBadges {
			fmt.Fprintf(out, "  %s🏅 Badge unlocked: %s%s — %s\n", colorYellow, b.Name, colorReset, b.Description)
		}
		if aw.TierUp != nil {
			fmt.Fprintf(out, "  %s★ Tier up: %s%s (theme %q unlocked)\n", colorMagenta+colorBold, aw.TierUp.Name, colorReset, aw.TierUp.Theme)
		}
	}
}

func joinStatuses(ss []board.Status) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}
