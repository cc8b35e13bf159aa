package cli

import (
	"fmt"
	"time"

	"github.com/imkarma/streak/internal/migrate"
	"github.com/imkarma/streak/internal/store"
	"github.com/spf13/cobra"
)

var (
	migrateForce        bool
	migrateRemoveSource bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy gamification data into the object store",
	Long: `Copies every "gamification:" key of the key-value file into the object
store's "gamification" namespace. Runs once; a completed run is not repeated
unless --force is given. Failed records are reported and left in place.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migrateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previous migration runs",
	Args:  cobra.NoArgs,
	RunE:  runMigrateHistory,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "Run even if a previous run completed")
	migrateCmd.Flags().BoolVar(&migrateRemoveSource, "remove-source", false, "Delete source keys once copied")
	migrateCmd.AddCommand(migrateHistoryCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := migrate.Run(cmd.Context(), a.kv, a.store, migrate.Options{
		Force:        migrateForce,
		RemoveSource: migrateRemoveSource,
		Logger:       logger,
		Progress: func(current, total int, key string) {
			logger.Debug("migrating", "record", current+1, "of", total, "key", key)
		},
	})
	if report == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.Skipped {
		fmt.Fprintf(out, "%sMigration %q already completed%s (run #%d, %s). Use --force to run again.\n",
			colorDim, report.Name, colorReset, report.Previous.ID, report.Previous.EndedAt.Local().Format("2006-01-02 15:04"))
		return nil
	}

	for _, r := range report.Results {
		if r.OK() {
			fmt.Fprintf(out, "  %s✓%s %-28s → %s/%s (%d bytes)\n",
				colorGreen, colorReset, r.SourceKey, migrate.DefaultNamespace, r.TargetKey, r.Bytes)
		} else {
			fmt.Fprintf(out, "  %s✗%s %-28s %s%v%s\n", colorRed, colorReset, r.SourceKey, colorRed, r.Err, colorReset)
		}
	}
	if len(report.Results) > 0 {
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%s%s%s: %d of %d records migrated",
		statusColor(report.Status)+colorBold, report.Status, colorReset, report.Migrated, report.Total)
	if report.Failed > 0 {
		fmt.Fprintf(out, ", %s%d failed%s", colorRed, report.Failed, colorReset)
	}
	if report.Removed > 0 {
		fmt.Fprintf(out, ", %d source keys removed", report.Removed)
	}
	fmt.Fprintf(out, " in %s\n", report.Duration().Round(time.Millisecond))

	return err
}

func runMigrateHistory(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No migrations have run.")
		return nil
	}
	for _, r := range runs {
		ended := "-"
		if !r.EndedAt.IsZero() {
			ended = r.EndedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "#%-4d %-18s %s%-11s%s %3d/%-3d failed %-3d %s\n",
			r.ID, r.Name, statusColor(r.Status), r.Status, colorReset, r.Migrated, r.Total, r.Failed, ended)
	}
	return nil
}

func statusColor(s store.RunStatus) string {
	switch s {
	case store.RunCompleted:
		return colorGreen
	case store.RunPartial, store.RunInterrupted:
		return colorYellow
	case store.RunFailed:
		return colorRed
	default:
		return colorDim
	}
}
