package inbox

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/theme"
)

const timeFormat = "Jan 2 15:04"

// View renders the inbox.
func (m Model) View() string {
	header := m.layout.RenderHeader("recruit inbox", m.renderTabs())

	var content string
	if m.snap.Selection.Tab == model.TabNotifications {
		content = m.renderNotifications(m.layout.Width)
	} else {
		content = m.renderThreadsAndMessages()
	}
	content = lipgloss.NewStyle().
		Height(m.layout.ContentHeight()).
		MaxHeight(m.layout.ContentHeight()).
		Render(content)

	parts := []string{header, content}
	if m.composing {
		parts = append(parts, m.input.View())
	}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	parts = append(parts, m.layout.RenderStatusBar(m.statusText()))

	return m.layout.RenderWithFrame(parts...)
}

func (m Model) renderTabs() string {
	tab := func(label string, unread int, active bool) string {
		text := label
		if unread > 0 {
			text += " " + theme.BadgeStyle.Render(fmt.Sprint(unread))
		}
		if active {
			return theme.ActiveTabStyle.Render(text)
		}
		return theme.TabStyle.Render(text)
	}

	onNotifications := m.snap.Selection.Tab == model.TabNotifications
	return lipgloss.JoinHorizontal(lipgloss.Top,
		tab("Messages", m.snap.UnreadThreadCount, !onNotifications),
		tab("Notifications", m.snap.UnreadNotificationCount, onNotifications),
	)
}

func (m Model) renderThreadsAndMessages() string {
	if !m.snap.Selection.HasThread() {
		return m.renderThreads(m.layout.Width)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderThreads(m.layout.ListWidth()),
		m.renderMessages(m.layout.PaneWidth()),
	)
}

func (m Model) renderThreads(width int) string {
	if len(m.snap.Threads) == 0 {
		return theme.DimmedStyle.Render("  No conversations yet.")
	}

	var b strings.Builder
	for i, t := range m.snap.Threads {
		line := fmt.Sprintf("%s  %s", t.OtherParty.Name, t.Subject)
		if t.OtherParty.Name == "" {
			line = t.Subject
		}
		if !t.LastMessageAt.IsZero() {
			line += theme.DimmedStyle.Render("  " + t.LastMessageAt.Local().Format(timeFormat))
		}
		if t.HasUnread {
			line = theme.UnreadStyle.Render("● " + line)
		}

		style := theme.ListItemStyle
		if i == m.threadCursor {
			style = theme.SelectedItemStyle
		}
		b.WriteString(style.MaxWidth(width).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessages(width int) string {
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	var title string
	if t, ok := m.snap.SelectedThread(); ok {
		title = theme.UnreadStyle.Render(t.Subject)
	}

	var body string
	switch {
	case m.snap.MessagesLoading:
		body = m.spinner.View() + " Loading messages..."
	case len(m.snap.Messages) == 0:
		body = theme.DimmedStyle.Render("No messages.")
	default:
		lines := make([]string, 0, len(m.snap.Messages))
		for _, msg := range m.snap.Messages {
			lines = append(lines, renderMessage(msg, inner))
		}
		body = strings.Join(lines, "\n")
	}

	return theme.PanelStyle.Width(width - 2).Render(title + "\n\n" + body)
}

// renderMessage aligns system announcements to the center and the
// viewer's own messages to the right.
func renderMessage(msg model.Message, width int) string {
	text := theme.MessageStyle(msg).Render(msg.Content)
	stamp := theme.DimmedStyle.Render(msg.SentAt.Local().Format(timeFormat))

	switch {
	case msg.IsSystem():
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, text)
	case msg.IsMine:
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, text+"  "+stamp)
	default:
		return lipgloss.PlaceHorizontal(width, lipgloss.Left, stamp+"  "+text)
	}
}

func (m Model) renderNotifications(width int) string {
	if len(m.snap.Notifications) == 0 {
		return theme.DimmedStyle.Render("  No notifications.")
	}

	var b strings.Builder
	for i, n := range m.snap.Notifications {
		label := theme.NotificationTypeStyle(n.Type).Render(theme.NotificationTypeLabel(n.Type))
		text := n.Title
		if n.Message != "" {
			text += ": " + n.Message
		}
		if n.IsRead {
			text = theme.DimmedStyle.Render(text)
		} else {
			text = theme.UnreadStyle.Render(text)
		}
		line := label + " " + text + theme.DimmedStyle.Render("  "+n.CreatedAt.Local().Format(timeFormat))

		style := theme.ListItemStyle
		if i == m.notifCursor {
			style = theme.SelectedItemStyle
		}
		b.WriteString(style.MaxWidth(width).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusText() string {
	switch {
	case m.status != "":
		return theme.ErrorStyle.Render(m.status)
	case m.snap.Warning != "":
		return theme.WarningStyle.Render(m.snap.Warning)
	}

	var parts []string
	if m.snap.FromCache {
		parts = append(parts, "cached")
	}
	if !m.snap.LastSync.IsZero() {
		parts = append(parts, "synced "+m.snap.LastSync.Local().Format("15:04:05"))
	}
	parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	return strings.Join(parts, " · ")
}
