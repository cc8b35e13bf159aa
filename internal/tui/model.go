package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
)

// screen represents which top-level view is shown.
type screen int

const (
	screenBoard screen = iota // Kanban board (main)
	screenStats               // Points, tier, badges
)

// popup represents which modal dialog is active (if any).
type popup int

const (
	popupNone popup = iota
	popupCreate
	popupImpediment
	popupConfirmDelete
)

var columnStatuses = [...]board.Status{
	board.StatusTodo,
	board.StatusInProgress,
	board.StatusDone,
}

const numColumns = len(columnStatuses)

var columnLabels = [numColumns]string{
	"TODO",
	"IN PROGRESS",
	"DONE",
}

// Model is the top-level bubbletea model.
type Model struct {
	board   *board.Board
	tracker *game.Tracker
	width   int
	height  int

	screen screen
	popup  popup

	// Board state.
	columns   [numColumns][]board.Task
	cursorCol int
	cursorRow int

	// Dialog state.
	textInput      textinput.Model
	createPriority board.Priority
	popupTaskID    string

	// Active theme and the styles derived from it.
	theme string
	st    styles

	statusMsg  string
	statusTime time.Time
	statusErr  bool

	quitting bool
}

// New creates a TUI model over a loaded board and tracker.
func New(b *board.Board, t *game.Tracker) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		board:          b,
		tracker:        t,
		screen:         screenBoard,
		textInput:      ti,
		createPriority: board.PriorityMedium,
	}
	m.applyTheme()
	m.rebuildColumns()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// applyTheme rebuilds styles when the tracker's active theme changed.
func (m *Model) applyTheme() {
	name := m.tracker.Theme()
	if name != "" && name == m.theme {
		return
	}
	m.theme = name
	m.st = newStyles(paletteFor(name))
}

func (m *Model) rebuildColumns() {
	cols := m.board.Columns()
	for i, s := range columnStatuses {
		m.columns[i] = cols[s]
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	m.cursorCol = min(max(m.cursorCol, 0), numColumns-1)
	col := m.columns[m.cursorCol]
	if m.cursorRow >= len(col) {
		m.cursorRow = len(col) - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
}

func (m *Model) selectedTask() *board.Task {
	col := m.columns[m.cursorCol]
	if m.cursorRow < len(col) {
		t := col[m.cursorRow]
		return &t
	}
	return nil
}

// follow moves the cursor onto the task with id after it changed column.
func (m *Model) follow(id string) {
	for c := range m.columns {
		for r, t := range m.columns[c] {
			if t.ID == id {
				m.cursorCol, m.cursorRow = c, r
				return
			}
		}
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTime = time.Now()
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.setStatus("Error: " + err.Error())
	m.statusErr = true
}
