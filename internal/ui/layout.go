package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/recruit-inbox/internal/theme"
)

// Layout manages the terminal layout dimensions of the inbox.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	InputHeight     int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for lists and panes.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight - l.InputHeight
	if h < 1 {
		return 1
	}
	return h
}

// ListWidth is the width of the thread list when a thread pane is shown.
func (l Layout) ListWidth() int {
	w := l.Width / 3
	if w < 24 {
		w = 24
	}
	if w > l.Width {
		w = l.Width
	}
	return w
}

// PaneWidth is the width left for the message pane next to the list.
func (l Layout) PaneWidth() int {
	w := l.Width - l.ListWidth()
	if w < 0 {
		return 0
	}
	return w
}

// RenderHeader renders the title on the left and right on the right.
func (l Layout) RenderHeader(title, right string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	rightRendered := lipgloss.NewStyle().Padding(0, 1).Render(right)

	gap := l.Width - lipgloss.Width(titleRendered) - lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		lipgloss.NewStyle().Width(gap).Render(""),
		rightRendered,
	)
}

// RenderStatusBar renders the bottom status bar, padded to full width.
func (l Layout) RenderStatusBar(text string) string {
	width := l.Width
	if width < 1 {
		width = 1
	}
	return theme.StatusBarStyle.Width(width).MaxHeight(1).Render(text)
}

// RenderWithFrame composes a full terminal view.
func (l Layout) RenderWithFrame(parts ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
