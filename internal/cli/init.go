package cli

import (
	"fmt"
	"os"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize streak in the current directory",
	Long:  "Creates the data directory with a default config, an empty key-value file and the object store database.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := streakPath()

	// Check if already initialized.
	if _, err := os.Stat(streakPath(configFileName)); err == nil {
		return fmt.Errorf("streak already initialized (%s exists)", streakPath(configFileName))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	cfg := config.DefaultConfig()
	if err := config.Save(streakPath(configFileName), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening creates the database; touching the board writes the kv file.
	a, err := openApp(cfg)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer a.Close()
	_, ok, err := a.kv.Get(board.StorageKey)
	if err != nil {
		return fmt.Errorf("check key-value file: %w", err)
	}
	if !ok {
		if err := a.kv.Set(board.StorageKey, "[]"); err != nil {
			return fmt.Errorf("create key-value file: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized streak in %s/\n", dir)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Run: streak task add \"your first task\"")
	fmt.Fprintln(out, "  2. Run: streak board")
	fmt.Fprintln(out, "  3. Finish it: streak task done <id>")

	return nil
}
