package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const envPrefix = "STREAK"

var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "streak",
	Short: "Task board that keeps score",
	Long:  "streak — a personal kanban board with points, badges and unlockable themes.\nFinish tasks, climb tiers.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if viper.GetBool("no-color") || !term.IsTerminal(int(os.Stdout.Fd())) {
			disableColor()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("dir", defaultDirName, "data directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable ANSI colors")

	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(uiCmd)
}

// initConfig wires environment overrides. A .env file in the working
// directory is loaded first when present.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}
	viper.SetEnvPrefix(envPrefix) // STREAK_DIR, STREAK_VERBOSE
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogging() {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
