// Package inbox is the Bubble Tea view of the synchronized inbox.
package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/recruit-inbox/internal/keys"
	"github.com/nhle/recruit-inbox/internal/model"
	appsync "github.com/nhle/recruit-inbox/internal/sync"
	"github.com/nhle/recruit-inbox/internal/ui"
)

// Engine is the part of the sync engine the view drives.
type Engine interface {
	Snapshot() appsync.Snapshot
	WaitForUpdate() tea.Cmd
	Trigger()
	SelectTab(ctx context.Context, tab model.Tab) error
	SelectThread(ctx context.Context, threadID string) error
	SendMessage(ctx context.Context, content string) error
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// actionResultMsg reports the outcome of a user command.
type actionResultMsg struct {
	action string
	err    error
}

// Model is the root inbox model.
type Model struct {
	ctx     context.Context
	engine  Engine
	keys    *keys.KeyMap
	layout  ui.Layout
	help    help.Model
	spinner spinner.Model
	input   textinput.Model

	snap         appsync.Snapshot
	threadCursor int
	notifCursor  int
	composing    bool
	showHelp     bool
	status       string
}

// New creates the inbox view for an attached engine.
func New(ctx context.Context, engine Engine, k *keys.KeyMap) Model {
	ti := textinput.New()
	ti.Placeholder = "Write a message..."
	ti.Prompt = "> "
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		engine:  engine,
		keys:    k,
		layout:  ui.NewLayout(80, 24),
		help:    help.New(),
		spinner: sp,
		input:   ti,
		snap:    engine.Snapshot(),
	}
}

// Init starts listening for engine updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.engine.WaitForUpdate(), m.spinner.Tick)
}

// Update handles messages for the inbox.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case appsync.UpdateMsg:
		m.snap = msg.Snapshot
		m.clampCursors()
		return m, m.engine.WaitForUpdate()

	case actionResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.composing {
			return m.handleComposeKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.SwitchTab):
		next := model.TabNotifications
		if m.snap.Selection.Tab == model.TabNotifications {
			next = model.TabMessages
		}
		m.snap.Selection.Tab = next
		return m, m.run("switch tab", func(ctx context.Context) error {
			return m.engine.SelectTab(ctx, next)
		})

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.engine.Trigger()
		return m, nil
	}

	if m.snap.Selection.Tab == model.TabNotifications {
		return m.handleNotificationKey(msg)
	}
	return m.handleThreadKey(msg)
}

func (m Model) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if m.threadCursor >= len(m.snap.Threads) {
			return m, nil
		}
		id := m.snap.Threads[m.threadCursor].ID
		return m, m.run("open thread", func(ctx context.Context) error {
			return m.engine.SelectThread(ctx, id)
		})

	case key.Matches(msg, m.keys.Back):
		if !m.snap.Selection.HasThread() {
			return m, nil
		}
		return m, m.run("close thread", func(ctx context.Context) error {
			return m.engine.SelectThread(ctx, "")
		})

	case key.Matches(msg, m.keys.Compose):
		if !m.snap.Selection.HasThread() {
			m.status = "open a thread to write a message"
			return m, nil
		}
		m.composing = true
		m.layout.InputHeight = 1
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleNotificationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.MarkRead), key.Matches(msg, m.keys.Select):
		if m.notifCursor >= len(m.snap.Notifications) {
			return m, nil
		}
		id := m.snap.Notifications[m.notifCursor].ID
		return m, m.run("mark read", func(ctx context.Context) error {
			return m.engine.MarkNotificationRead(ctx, id)
		})

	case key.Matches(msg, m.keys.MarkAll):
		return m, m.run("mark all read", m.engine.MarkAllRead)
	}
	return m, nil
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.stopComposing()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		m.stopComposing()
		return m, m.run("send", func(ctx context.Context) error {
			return m.engine.SendMessage(ctx, content)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopComposing() {
	m.composing = false
	m.layout.InputHeight = 0
	m.input.Reset()
	m.input.Blur()
}

// run executes a blocking engine command off the UI goroutine.
func (m Model) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionResultMsg{action: action, err: fn(ctx)}
	}
}

func (m *Model) moveCursor(delta int) {
	if m.snap.Selection.Tab == model.TabNotifications {
		m.notifCursor = clamp(m.notifCursor+delta, len(m.snap.Notifications))
		return
	}
	m.threadCursor = clamp(m.threadCursor+delta, len(m.snap.Threads))
}

func (m *Model) clampCursors() {
	m.threadCursor = clamp(m.threadCursor, len(m.snap.Threads))
	m.notifCursor = clamp(m.notifCursor, len(m.snap.Notifications))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
