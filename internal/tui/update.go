package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
)

// Update implements tea.Model. Every board mutation happens here, on the
// program's update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// Clear old status messages.
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.screen == screenBoard {
			m.quitting = true
			return m, tea.Quit
		}
		m.screen = screenBoard
		return m, nil

	case "esc":
		m.screen = screenBoard
		return m, nil
	}

	switch m.screen {
	case screenBoard:
		return m.handleBoardKey(msg)
	case screenStats:
		return m.handleStatsKey(msg)
	}
	return m, nil
}

// --- Board screen keys ---

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	// Navigation.
	case "h", "left":
		m.cursorCol--
		m.clampCursor()
	case "l", "right":
		m.cursorCol++
		m.clampCursor()
	case "k", "up":
		m.cursorRow--
		m.clampCursor()
	case "j", "down":
		m.cursorRow++
		m.clampCursor()

	// Actions.
	case "n", "c":
		m.textInput.Reset()
		m.textInput.Placeholder = "Task title..."
		m.textInput.Focus()
		m.createPriority = board.PriorityMedium
		m.popup = popupCreate
		return m, textinput.Blink

	case ">", ".", "enter", " ":
		if t := m.selectedTask(); t != nil {
			m.moveTask(t, t.Status.Next())
		}

	case "<", ",", "backspace":
		if t := m.selectedTask(); t != nil {
			m.moveTask(t, t.Status.Prev())
		}

	case "p":
		if t := m.selectedTask(); t != nil {
			m.mutate(func() (board.Task, error) {
				return m.board.SetPriority(t.ID, t.Priority.Cycle())
			}, "Priority")
		}

	case "b":
		t := m.selectedTask()
		if t == nil {
			break
		}
		if t.Impeded {
			m.mutate(func() (board.Task, error) {
				return m.board.ClearImpediment(t.ID)
			}, "Unblocked")
			break
		}
		m.popupTaskID = t.ID
		m.textInput.Reset()
		m.textInput.Placeholder = "What is in the way?"
		m.textInput.Focus()
		m.popup = popupImpediment
		return m, textinput.Blink

	case "d", "x":
		if t := m.selectedTask(); t != nil {
			m.popupTaskID = t.ID
			m.popup = popupConfirmDelete
		}

	case "t":
		m.cycleTheme()

	case "s":
		m.screen = screenStats
	}
	return m, nil
}

func (m Model) handleStatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "t":
		m.cycleTheme()
	case "s", "b":
		m.screen = screenBoard
	}
	return m, nil
}

// moveTask sets a task's status and keeps the cursor on it.
func (m *Model) moveTask(t *board.Task, to board.Status) {
	if to == t.Status {
		return
	}
	m.mutate(func() (board.Task, error) {
		return m.board.SetStatus(t.ID, to)
	}, "Moved")
}

// mutate runs fn, refreshes the columns and reports any score change.
func (m *Model) mutate(fn func() (board.Task, error), verb string) {
	before := m.tracker.Summary()
	t, err := fn()
	if err != nil {
		m.setError(err)
		return
	}
	m.rebuildColumns()
	m.follow(t.ID)

	msg := fmt.Sprintf("%s: %s", verb, t.Title)
	switch verb {
	case "Moved":
		msg = fmt.Sprintf("%s → %s", t.Title, t.Status)
	case "Priority":
		msg = fmt.Sprintf("%s priority: %s", t.Title, t.Priority)
	}
	if c := celebrate(before, m.tracker.Summary()); c != "" {
		msg += "  " + c
	}
	m.setStatus(msg)
	m.applyTheme()
	m.checkSaved()
}

// checkSaved replaces the status line with the outstanding write failure of
// the board or the tracker, if any.
func (m *Model) checkSaved() {
	if err := errors.Join(m.board.Err(), m.tracker.Err()); err != nil {
		m.setError(fmt.Errorf("not saved: %w", err))
	}
}

// celebrate describes what changed between two score snapshots.
func celebrate(before, after game.Summary) string {
	var parts []string
	if d := after.Points - before.Points; d > 0 {
		parts = append(parts, fmt.Sprintf("+%d pts", d))
	}
	if len(after.Badges) > len(before.Badges) {
		for _, b := range after.Badges[len(before.Badges):] {
			parts = append(parts, "🏅 "+b.Name)
		}
	}
	if after.Tier.Name != before.Tier.Name {
		parts = append(parts, "★ "+after.Tier.Name+" tier!")
	}
	return strings.Join(parts, "  ")
}

// cycleTheme selects the next unlocked theme.
func (m *Model) cycleTheme() {
	points := m.tracker.Profile().Points
	rules := m.tracker.Rules()
	var unlocked []string
	for _, t := range rules.Tiers {
		if rules.Unlocked(t.Theme, points) {
			unlocked = append(unlocked, t.Theme)
		}
	}
	if len(unlocked) < 2 {
		m.setStatus("No other themes unlocked yet")
		return
	}
	next := unlocked[0]
	for i, name := range unlocked {
		if name == m.theme {
			next = unlocked[(i+1)%len(unlocked)]
			break
		}
	}
	if err := m.tracker.SetTheme(next); err != nil {
		m.setError(err)
		return
	}
	m.applyTheme()
	m.setStatus("Theme: " + m.theme)
	m.checkSaved()
}

// --- Popup key handling ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupCreate:
		return m.handleCreatePopup(msg)
	case popupImpediment:
		return m.handleImpedimentPopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	}
	return m, nil
}

func (m Model) handleCreatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "ctrl+p", "tab":
		m.createPriority = m.createPriority.Cycle()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.textInput.Value())
		if title == "" {
			m.setStatus("Title cannot be empty")
			return m, nil
		}
		m.mutate(func() (board.Task, error) {
			return m.board.Add(title, m.createPriority)
		}, "Created")
		m.popup = popupNone
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) handleImpedimentPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "enter":
		reason := strings.TrimSpace(m.textInput.Value())
		if reason == "" {
			m.setStatus("Reason cannot be empty")
			return m, nil
		}
		id := m.popupTaskID
		m.mutate(func() (board.Task, error) {
			return m.board.SetImpediment(id, reason)
		}, "Impeded")
		m.popup = popupNone
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		t, err := m.board.Get(m.popupTaskID)
		if err == nil {
			err = m.board.Delete(t.ID)
		}
		if err != nil {
			m.setError(err)
		} else {
			m.rebuildColumns()
			m.setStatus("Deleted: " + t.Title)
			m.checkSaved()
		}
		m.popup = popupNone
	case "n", "esc":
		m.popup = popupNone
	}
	return m, nil
}
