// Package board holds the task list: the data model, its mutations, and the
// persisted state container that mirrors it into the key-value tier.
package board

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/imkarma/streak/internal/kv"
	"github.com/imkarma/streak/internal/persist"
)

// StorageKey is the key-value key the task list lives under.
const StorageKey = "tasks"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrAmbiguousID     = errors.New("id prefix matches more than one task")
	ErrInvalidTitle    = errors.New("title must be 1-200 characters")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrReasonRequired  = errors.New("impediment reason is required")
)

// Listener is told about task events that other parts of the app react to.
type Listener interface {
	TaskCompleted(t Task)
	ImpedimentCleared(t Task)
}

// Board is the task list and its persistence.
type Board struct {
	state     *persist.State[[]Task]
	listeners []Listener
	now       func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithListener registers l for task events.
func WithListener(l Listener) Option {
	return func(b *Board) { b.listeners = append(b.listeners, l) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// New creates a board over store. Call Load before use to hydrate it.
func New(store kv.Store, logger *slog.Logger, opts ...Option) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	codec := persist.JSONCodec[[]Task]{Validate: validateTasks}
	b := &Board{
		state: persist.New(store, StorageKey, []Task{},
			persist.WithCodec[[]Task](codec),
			persist.WithLogger[[]Task](logger.With("component", "board")),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load hydrates the board from the store.
func (b *Board) Load() error {
	return b.state.Hydrate()
}

// Loaded reports whether Load has completed.
func (b *Board) Loaded() bool {
	return b.state.Hydrated()
}

// Err returns the last persistence failure, if any.
func (b *Board) Err() error {
	return b.state.Err()
}

// Add creates a task in the todo column.
func (b *Board) Add(title string, p Priority) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > 200 {
		return Task{}, ErrInvalidTitle
	}
	if p == "" {
		p = PriorityMedium
	}
	if !p.Valid() {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, p)
	}

	now := b.now().UTC()
	t := Task{
		ID:            uuid.NewString(),
		Title:         title,
		StatusHistory: []Status{StatusTodo},
		Status:        StatusTodo,
		Priority:      p,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.state.Update(func(tasks []Task) []Task {
		return append(cloneTasks(tasks), t)
	})
	return t, nil
}

// SetStatus moves a task to s, appending to its history. Setting the current
// status again is a no-op.
func (b *Board) SetStatus(id string, s Status) (Task, error) {
	if !s.Valid() {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	var completed bool
	t, err := b.mutate(id, func(t *Task, now time.Time) bool {
		if t.Status == s {
			return false
		}
		t.Status = s
		t.StatusHistory = append(t.StatusHistory, s)
		switch s {
		case StatusInProgress:
			if t.StartedAt == nil {
				t.StartedAt = &now
			}
			t.EndedAt = nil
		case StatusDone:
			if t.StartedAt == nil {
				t.StartedAt = &now
			}
			t.EndedAt = &now
			completed = true
		case StatusTodo:
			t.EndedAt = nil
		}
		return true
	})
	if err != nil {
		return Task{}, err
	}
	if completed {
		for _, l := range b.listeners {
			l.TaskCompleted(t)
		}
	}
	return t, nil
}

// SetPriority changes a task's priority.
func (b *Board) SetPriority(id string, p Priority) (Task, error) {
	if !p.Valid() {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, p)
	}
	return b.mutate(id, func(t *Task, _ time.Time) bool {
		if t.Priority == p {
			return false
		}
		t.Priority = p
		return true
	})
}

// SetImpediment flags a task as impeded with a reason.
func (b *Board) SetImpediment(id, reason string) (Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Task{}, ErrReasonRequired
	}
	return b.mutate(id, func(t *Task, _ time.Time) bool {
		t.Impeded = true
		t.ImpedimentReason = reason
		return true
	})
}

// ClearImpediment removes a task's impediment flag.
func (b *Board) ClearImpediment(id string) (Task, error) {
	var cleared bool
	t, err := b.mutate(id, func(t *Task, _ time.Time) bool {
		if !t.Impeded {
			return false
		}
		t.Impeded = false
		t.ImpedimentReason = ""
		cleared = true
		return true
	})
	if err != nil {
		return Task{}, err
	}
	if cleared {
		for _, l := range b.listeners {
			l.ImpedimentCleared(t)
		}
	}
	return t, nil
}

// Delete removes a task.
func (b *Board) Delete(id string) error {
	if _, err := b.Get(id); err != nil {
		return err
	}
	b.state.Update(func(tasks []Task) []Task {
		out := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	})
	return nil
}

// Get returns the task with the exact id.
func (b *Board) Get(id string) (Task, error) {
	for _, t := range b.state.Value() {
		if t.ID == id {
			return t, nil
		}
	}
	return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Find resolves a full id or a unique id prefix.
func (b *Board) Find(prefix string) (Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Task{}, fmt.Errorf("%w: empty id", ErrTaskNotFound)
	}
	var match []Task
	for _, t := range b.state.Value() {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 0:
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, prefix)
	case 1:
		return match[0], nil
	}
	return Task{}, fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status      Status
	Priority    Priority
	ImpededOnly bool
}

func (f Filter) match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.ImpededOnly && !t.Impeded {
		return false
	}
	return true
}

// List returns matching tasks, most urgent first, then oldest first.
func (b *Board) List(f Filter) []Task {
	var out []Task
	for _, t := range b.state.Value() {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Columns groups tasks by status in board order.
func (b *Board) Columns() map[Status][]Task {
	cols := make(map[Status][]Task, len(Statuses))
	for _, s := range Statuses {
		cols[s] = b.List(Filter{Status: s})
	}
	return cols
}

// mutate applies fn to the task with id. fn reports whether it changed
// anything; unchanged tasks are not rewritten.
func (b *Board) mutate(id string, fn func(t *Task, now time.Time) bool) (Task, error) {
	if _, err := b.Get(id); err != nil {
		return Task{}, err
	}
	now := b.now().UTC()

	var result Task
	b.state.Update(func(tasks []Task) []Task {
		out := cloneTasks(tasks)
		for i := range out {
			if out[i].ID != id {
				continue
			}
			if fn(&out[i], now) {
				out[i].UpdatedAt = now
			}
			result = out[i]
		}
		return out
	})
	return result, nil
}

func priorityRank(p Priority) int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return -1
}

// cloneTasks deep-copies the slice so values handed out earlier are never
// mutated behind the caller's back.
func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		t.StatusHistory = append([]Status(nil), t.StatusHistory...)
		out[i] = t
	}
	return out
}
