package game

import (
	"time"

	"github.com/imkarma/streak/internal/board"
)

// Tier is an achievement level unlocked by total points. Each tier carries a
// visual theme.
type Tier struct {
	Name      string `yaml:"name" json:"name"`
	MinPoints int    `yaml:"min_points" json:"min_points"`
	Theme     string `yaml:"theme" json:"theme"`
}

// Rules decide how many points a completion is worth and where tiers start.
type Rules struct {
	Points map[board.Priority]int
	Tiers  []Tier // Ascending by MinPoints; the first starts at 0.
}

// DefaultRules returns the built-in points table and tiers.
func DefaultRules() Rules {
	return Rules{
		Points: map[board.Priority]int{
			board.PriorityLow:    5,
			board.PriorityMedium: 10,
			board.PriorityHigh:   20,
			board.PriorityUrgent: 40,
		},
		Tiers: []Tier{
			{Name: "bronze", MinPoints: 0, Theme: "meadow"},
			{Name: "silver", MinPoints: 100, Theme: "ocean"},
			{Name: "gold", MinPoints: 300, Theme: "ember"},
			{Name: "platinum", MinPoints: 1000, Theme: "aurora"},
		},
	}
}

// TierFor returns the highest tier reached with points, and the next one
// (nil at the top).
func (r Rules) TierFor(points int) (Tier, *Tier) {
	if len(r.Tiers) == 0 {
		return Tier{}, nil
	}
	idx := 0
	for i, t := range r.Tiers {
		if points >= t.MinPoints {
			idx = i
		}
	}
	if idx+1 < len(r.Tiers) {
		next := r.Tiers[idx+1]
		return r.Tiers[idx], &next
	}
	return r.Tiers[idx], nil
}

// Unlocked reports whether theme belongs to a tier reached with points.
func (r Rules) Unlocked(theme string, points int) bool {
	for _, t := range r.Tiers {
		if t.Theme == theme && points >= t.MinPoints {
			return true
		}
	}
	return false
}

// BadgeDef describes an unlockable badge.
type BadgeDef struct {
	ID          string
	Name        string
	Description string
	earned      func(p Profile, r Rules) bool
}

// Catalog lists every badge in display order.
var Catalog = []BadgeDef{
	{
		ID: "first-step", Name: "First Step", Description: "Complete a task",
		earned: func(p Profile, _ Rules) bool { return p.Completed >= 1 },
	},
	{
		ID: "steady", Name: "Steady", Description: "Complete 10 tasks",
		earned: func(p Profile, _ Rules) bool { return p.Completed >= 10 },
	},
	{
		ID: "centurion", Name: "Centurion", Description: "Complete 100 tasks",
		earned: func(p Profile, _ Rules) bool { return p.Completed >= 100 },
	},
	{
		ID: "firefighter", Name: "Firefighter", Description: "Complete an urgent task",
		earned: func(p Profile, _ Rules) bool { return p.UrgentCompleted >= 1 },
	},
	{
		ID: "unblocker", Name: "Unblocker", Description: "Clear an impediment",
		earned: func(p Profile, _ Rules) bool { return p.ImpedimentsCleared >= 1 },
	},
	{
		ID: "high-roller", Name: "High Roller", Description: "Reach the top tier",
		earned: func(p Profile, r Rules) bool {
			_, next := r.TierFor(p.Points)
			return len(r.Tiers) > 1 && next == nil
		},
	},
}

// LookupBadge returns the catalog entry for id.
func LookupBadge(id string) (BadgeDef, bool) {
	for _, d := range Catalog {
		if d.ID == id {
			return d, true
		}
	}
	return BadgeDef{}, false
}

// Profile is the running score.
type Profile struct {
	Points             int             `json:"points" validate:"gte=0"`
	Completed          int             `json:"completed" validate:"gte=0"`
	UrgentCompleted    int             `json:"urgent_completed" validate:"gte=0"`
	ImpedimentsCleared int             `json:"impediments_cleared" validate:"gte=0"`
	Awarded            map[string]bool `json:"awarded,omitempty"` // Task IDs already paid out
}

// Badge is an earned badge.
type Badge struct {
	ID       string    `json:"id" validate:"required"`
	EarnedAt time.Time `json:"earned_at" validate:"required"`
}

// Award describes what a single event paid out.
type Award struct {
	TaskID    string
	Points    int
	NewBadges []BadgeDef
	TierUp    *Tier
}

// Empty reports whether nothing was paid out.
func (a Award) Empty() bool {
	return a.Points == 0 && len(a.NewBadges) == 0 && a.TierUp == nil
}
