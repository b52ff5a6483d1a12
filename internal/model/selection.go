package model

import (
	"fmt"
	"strings"
)

// Tab is the top-level view the viewer has open.
type Tab int

const (
	TabMessages Tab = iota
	TabNotifications
)

func (t Tab) String() string {
	switch t {
	case TabMessages:
		return "messages"
	case TabNotifications:
		return "notifications"
	default:
		return fmt.Sprintf("tab(%d)", int(t))
	}
}

// ParseTab converts a tab name into a Tab.
func ParseTab(s string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "messages", "":
		return TabMessages, nil
	case "notifications":
		return TabNotifications, nil
	default:
		return TabMessages, fmt.Errorf("unknown tab %q", s)
	}
}

// Selection is the viewer's navigation context. Every fetch is stamped
// with the Selection active when it was dispatched.
type Selection struct {
	// Tab is the active tab.
	Tab Tab

	// ThreadID is the open thread, or empty when none is open.
	ThreadID string

	// Session is the attach generation. It changes on every Attach and
	// Detach so responses from an earlier session never land.
	Session uint64
}

// HasThread reports whether a thread is open.
func (s Selection) HasThread() bool {
	return s.ThreadID != ""
}
