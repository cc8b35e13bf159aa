package board

import (
	"fmt"
	"time"

	"github.com/imkarma/streak/internal/persist"
)

// Status is where a task sits on the board.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Next returns the status one column to the right, or s when already done.
func (s Status) Next() Status {
	switch s {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	}
	return s
}

// Prev returns the status one column to the left, or s when already todo.
func (s Status) Prev() Status {
	switch s {
	case StatusDone:
		return StatusInProgress
	case StatusInProgress:
		return StatusTodo
	}
	return s
}

// Priority is one of four urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Cycle returns the next priority, wrapping from urgent back to low.
func (p Priority) Cycle() Priority {
	for i, v := range Priorities {
		if v == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityMedium
}

// Task is a unit of work on the board.
type Task struct {
	ID               string     `json:"id" validate:"required,uuid4"`
	Title            string     `json:"title" validate:"required,max=200"`
	StatusHistory    []Status   `json:"status_history" validate:"required,min=1,dive,oneof=todo in_progress done"`
	Status           Status     `json:"status" validate:"required,oneof=todo in_progress done"`
	Priority         Priority   `json:"priority" validate:"required,oneof=low medium high urgent"`
	Impeded          bool       `json:"impeded"`
	ImpedimentReason string     `json:"impediment_reason,omitempty" validate:"required_if=Impeded true"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// validateTasks checks tags on every task plus the history invariant.
func validateTasks(tasks []Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if err := persist.ValidateStruct(t); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		if last := t.StatusHistory[len(t.StatusHistory)-1]; last != t.Status {
			return fmt.Errorf("task %s: status %s does not match last history entry %s", t.ID, t.Status, last)
		}
		if seen[t.ID] {
			return fmt.Errorf("task %s: duplicate id", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
