package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/recruit-inbox/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// ActiveTabStyle marks the open tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	Underline(true).
	Padding(0, 1)

// TabStyle is an inactive tab.
var TabStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// WarningStyle renders soft refresh failures in the status bar.
var WarningStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Bold(true)

// ErrorStyle renders failed user actions in the status bar.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// PanelStyle wraps the message pane.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// UnreadStyle emphasizes unread threads and notifications.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// DimmedStyle is used for read items and timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// BadgeStyle renders unread counters.
var BadgeStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorRed).
	Padding(0, 1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// OwnMessageStyle is a message the viewer sent.
var OwnMessageStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// OtherMessageStyle is a message from the other party.
var OtherMessageStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// SystemMessageStyle is a centered platform announcement.
var SystemMessageStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// MessageStyle returns the style for m as seen by the viewer.
func MessageStyle(m model.Message) lipgloss.Style {
	switch {
	case m.IsSystem():
		return SystemMessageStyle
	case m.IsMine:
		return OwnMessageStyle
	default:
		return OtherMessageStyle
	}
}

// NotificationTypeStyle returns a color-coded style for a notification type.
func NotificationTypeStyle(t model.NotificationType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch t {
	case model.NotificationInterviewScheduled:
		return base.Foreground(ColorMagenta)
	case model.NotificationMessageReceived:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// NotificationTypeLabel is the short label shown next to a notification.
func NotificationTypeLabel(t model.NotificationType) string {
	switch t {
	case model.NotificationInterviewScheduled:
		return "interview"
	case model.NotificationMessageReceived:
		return "message"
	default:
		return "info"
	}
}
