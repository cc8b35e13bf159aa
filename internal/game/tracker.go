// Package game is the gamification layer: points for completed tasks,
// badges, and tiers that unlock visual themes. All of its state lives in the
// key-value tier under the "gamification:" prefix.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/kv"
	"github.com/imkarma/streak/internal/persist"
)

// Storage keys.
const (
	KeyPrefix  = "gamification:"
	ProfileKey = KeyPrefix + "profile"
	BadgesKey  = KeyPrefix + "badges"
	ThemeKey   = KeyPrefix + "theme"
)

// ErrThemeLocked is returned when selecting a theme whose tier is not reached.
var ErrThemeLocked = errors.New("theme is locked")

// Tracker keeps score. It implements board.Listener.
type Tracker struct {
	rules   Rules
	profile *persist.State[Profile]
	badges  *persist.State[[]Badge]
	theme   *persist.State[string]
	notify  func(Award)
	now     func() time.Time
}

var _ board.Listener = (*Tracker)(nil)

// Option configures a Tracker.
type Option func(*Tracker)

// WithNotifier registers fn to receive every non-empty award.
func WithNotifier(fn func(Award)) Option {
	return func(t *Tracker) { t.notify = fn }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker over store. Call Load before use.
func NewTracker(store kv.Store, rules Rules, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "game")

	profileCodec := persist.JSONCodec[Profile]{Validate: func(p Profile) error {
		return persist.ValidateStruct(p)
	}}
	badgeCodec := persist.JSONCodec[[]Badge]{Validate: func(bs []Badge) error {
		for i, b := range bs {
			if err := persist.ValidateStruct(b); err != nil {
				return fmt.Errorf("badge %d: %w", i, err)
			}
		}
		return nil
	}}

	t := &Tracker{
		rules: rules,
		profile: persist.New(store, ProfileKey, Profile{},
			persist.WithCodec[Profile](profileCodec), persist.WithLogger[Profile](logger)),
		badges: persist.New(store, BadgesKey, []Badge{},
			persist.WithCodec[[]Badge](badgeCodec), persist.WithLogger[[]Badge](logger)),
		theme: persist.New(store, ThemeKey, "", persist.WithLogger[string](logger)),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load hydrates all gamification state. Every key is attempted; failures are
// joined.
func (t *Tracker) Load() error {
	return errors.Join(t.profile.Hydrate(), t.badges.Hydrate(), t.theme.Hydrate())
}

// Err returns the first outstanding persistence failure.
func (t *Tracker) Err() error {
	return errors.Join(t.profile.Err(), t.badges.Err(), t.theme.Err())
}

// Rules returns the active rules.
func (t *Tracker) Rules() Rules {
	return t.rules
}

// Profile returns the current score.
func (t *Tracker) Profile() Profile {
	return t.profile.Value()
}

// TaskCompleted pays out points for t the first time it is completed.
func (t *Tracker) TaskCompleted(task board.Task) {
	before := t.profile.Value()
	if before.Awarded[task.ID] {
		return
	}
	pts := t.rules.Points[task.Priority]

	t.profile.Update(func(p Profile) Profile {
		awarded := make(map[string]bool, len(p.Awarded)+1)
		for k, v := range p.Awarded {
			awarded[k] = v
		}
		awarded[task.ID] = true
		p.Awarded = awarded
		p.Points += pts
		p.Completed++
		if task.Priority == board.PriorityUrgent {
			p.UrgentCompleted++
		}
		return p
	})
	t.settle(Award{TaskID: task.ID, Points: pts}, before.Points)
}

// ImpedimentCleared counts a resolved impediment.
func (t *Tracker) ImpedimentCleared(task board.Task) {
	before := t.profile.Value()
	t.profile.Update(func(p Profile) Profile {
		p.ImpedimentsCleared++
		return p
	})
	t.settle(Award{TaskID: task.ID}, before.Points)
}

// settle unlocks newly earned badges, detects tier changes and notifies.
func (t *Tracker) settle(a Award, pointsBefore int) {
	p := t.profile.Value()

	have := map[string]bool{}
	for _, b := range t.badges.Value() {
		have[b.ID] = true
	}
	var earned []Badge
	now := t.now().UTC()
	for _, def := range Catalog {
		if !have[def.ID] && def.earned(p, t.rules) {
			earned = append(earned, Badge{ID: def.ID, EarnedAt: now})
			a.NewBadges = append(a.NewBadges, def)
		}
	}
	if len(earned) > 0 {
		t.badges.Update(func(bs []Badge) []Badge {
			out := append([]Badge(nil), bs...)
			return append(out, earned...)
		})
	}

	oldTier, _ := t.rules.TierFor(pointsBefore)
	newTier, _ := t.rules.TierFor(p.Points)
	if newTier.Name != oldTier.Name {
		a.TierUp = &newTier
	}

	if t.notify != nil && !a.Empty() {
		t.notify(a)
	}
}

// Badges returns earned badges in the order they were earned.
func (t *Tracker) Badges() []Badge {
	return t.badges.Value()
}

// Theme returns the active theme: the selected one if it is still unlocked,
// otherwise the theme of the current tier.
func (t *Tracker) Theme() string {
	p := t.profile.Value()
	if sel := t.theme.Value(); sel != "" && t.rules.Unlocked(sel, p.Points) {
		return sel
	}
	tier, _ := t.rules.TierFor(p.Points)
	return tier.Theme
}

// SetTheme selects a theme. An empty name follows the current tier.
func (t *Tracker) SetTheme(name string) error {
	if name != "" && !t.rules.Unlocked(name, t.profile.Value().Points) {
		return fmt.Errorf("%w: %s", ErrThemeLocked, name)
	}
	t.theme.Set(name)
	return nil
}

// Summary is a read-only snapshot for display.
type Summary struct {
	Points    int
	Completed int
	Tier      Tier
	Next      *Tier
	ToNext    int
	Progress  float64 // 0..1 through the current tier
	Theme     string
	Badges    []EarnedBadge
}

// EarnedBadge pairs a catalog entry with when it was earned.
type EarnedBadge struct {
	BadgeDef
	EarnedAt time.Time
}

// Summary returns the current standing.
func (t *Tracker) Summary() Summary {
	p := t.profile.Value()
	tier, next := t.rules.TierFor(p.Points)
	s := Summary{
		Points:    p.Points,
		Completed: p.Completed,
		Tier:      tier,
		Next:      next,
		Theme:     t.Theme(),
		Progress:  1,
	}
	if next != nil {
		s.ToNext = next.MinPoints - p.Points
		span := next.MinPoints - tier.MinPoints
		if span > 0 {
			s.Progress = float64(p.Points-tier.MinPoints) / float64(span)
		}
	}
	for _, b := range t.badges.Value() {
		def, ok := LookupBadge(b.ID)
		if !ok {
			def = BadgeDef{ID: b.ID, Name: b.ID}
		}
		s.Badges = append(s.Badges, EarnedBadge{BadgeDef: def, EarnedAt: b.EarnedAt})
	}
	return s
}
