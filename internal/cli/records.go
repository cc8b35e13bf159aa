package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records [namespace]",
	Short: "List object store records",
	Long:  "Without a namespace lists namespaces and their record counts. With one lists its records.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecords,
}

func runRecords(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		namespaces, err := a.store.Namespaces(ctx)
		if err != nil {
			return err
		}
		if len(namespaces) == 0 {
			fmt.Fprintf(out, "Object store is empty. Run: %sstreak migrate%s\n", colorCyan, colorReset)
			return nil
		}
		for _, ns := range namespaces {
			n, err := a.store.Count(ctx, ns)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-20s %d records\n", ns, n)
		}
		return nil
	}

	records, err := a.store.List(ctx, args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No records in %q.\n", args[0])
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s%-20s%s %6d bytes  %s  %s\n",
			colorBold, r.Key, colorReset, len(r.Value),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"), truncate(string(r.Value), 60))
	}
	return nil
}
