package sync

import "github.com/nhle/recruit-inbox/internal/model"

// FetchTag stamps an outbound fetch with the selection context active
// when it was dispatched. Responses are checked against the context
// active when they land.
type FetchTag struct {
	// Session is the attach generation at dispatch.
	Session uint64

	// ThreadID is the thread selected at dispatch.
	ThreadID string

	// Seq is the mutation sequence at dispatch. A snapshot only counts
	// toward retiring a pending mutation issued at or before Seq.
	Seq uint64
}

// acceptsMessages reports whether a message list fetched under t may
// replace the messages of the current selection. Thread identity is
// compared, not request identity: re-selecting the same thread before a
// slow response lands keeps that response valid.
func (t FetchTag) acceptsMessages(current model.Selection) bool {
	return t.acceptsList(current) &&
		t.ThreadID != "" &&
		t.ThreadID == current.ThreadID
}

// acceptsList reports whether a thread or notification list fetched under
// t may be applied. Lists do not depend on the selected thread, only on
// the viewer session still being attached.
func (t FetchTag) acceptsList(current model.Selection) bool {
	return current.Session != 0 && t.Session == current.Session
}
