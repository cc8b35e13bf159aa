package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/config"
	"github.com/imkarma/streak/internal/game"
	"github.com/imkarma/streak/internal/kv"
	"github.com/imkarma/streak/internal/persist"
	"github.com/imkarma/streak/internal/store"
	"github.com/spf13/viper"
)

const (
	defaultDirName = ".streak"
	configFileName = "config.yaml"
)

// streakPath returns the path to a file inside the data directory.
func streakPath(parts ...string) string {
	dir := viper.GetString("dir")
	if dir == "" {
		dir = defaultDirName
	}
	elems := append([]string{dir}, parts...)
	return filepath.Join(elems...)
}

// app bundles everything a command needs: both storage tiers, the board and
// the score tracker wired together.
type app struct {
	cfg     *config.Config
	kv      *kv.FileStore
	store   *store.Store
	board   *board.Board
	tracker *game.Tracker
	awards  []game.Award
}

// mustApp opens the data directory, returning an error if streak is not
// initialized.
func mustApp() (*app, error) {
	cfgPath := streakPath(configFileName)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("streak not initialized. Run: streak init")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return openApp(cfg)
}

func openApp(cfg *config.Config) (*app, error) {
	var opts []kv.Option
	if cfg.Storage.QuotaBytes > 0 {
		opts = append(opts, kv.WithQuota(cfg.Storage.QuotaBytes))
	}

	s, err := store.New(streakPath(cfg.Storage.DBFile))
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	a := &app{
		cfg:   cfg,
		kv:    kv.OpenFile(streakPath(cfg.Storage.KVFile), opts...),
		store: s,
	}
	a.tracker = game.NewTracker(a.kv, cfg.Rules(), logger, game.WithNotifier(func(aw game.Award) {
		a.awards = append(a.awards, aw)
	}))
	a.board = board.New(a.kv, logger, board.WithListener(a.tracker))

	// Unreadable stored state falls back to defaults; it is reported, not fatal.
	for _, err := range []error{a.board.Load(), a.tracker.Load()} {
		var de *persist.DecodeError
		switch {
		case err == nil:
		case errors.As(err, &de):
			logger.Warn("ignoring unreadable stored state", "key", de.Key, "error", de.Err)
		default:
			logger.Warn("could not load stored state", "error", err)
		}
	}
	return a, nil
}

// Close releases the object store.
func (a *app) Close() error {
	return a.store.Close()
}

// saved reports an outstanding write failure of the board or the tracker.
// The process exits after every command, so an unsaved change is lost.
func (a *app) saved() error {
	if err := errors.Join(a.board.Err(), a.tracker.Err()); err != nil {
		return fmt.Errorf("not saved to %s: %w", a.kv.Path(), err)
	}
	return nil
}

// resolve finds a task by full id or unique prefix.
func (a *app) resolve(id string) (board.Task, error) {
	return a.board.Find(id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseStatus(s string) (board.Status, error) {
	st := board.Status(strings.ReplaceAll(strings.ToLower(s), "-", "_"))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q (todo, in_progress, done)", board.ErrInvalidStatus, s)
	}
	return st, nil
}

func parsePriority(s string) (board.Priority, error) {
	p := board.Priority(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q (low, medium, high, urgent)", board.ErrInvalidPriority, s)
	}
	return p, nil
}
