// Package sync keeps a local view of conversation threads, the open
// thread's messages, and notifications consistent with a remote service
// that is polled rather than pushed.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/recruit-inbox/internal/metrics"
	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/remote"
)

// DefaultMaxReconcilePasses bounds how long an optimistic mutation can
// outvote disagreeing snapshots.
const DefaultMaxReconcilePasses = 10

var (
	ErrNotAttached      = errors.New("engine is not attached")
	ErrNoThreadSelected = errors.New("no thread selected")
	ErrEmptyMessage     = errors.New("message is empty")
)

// SnapshotCache persists the last reconciled lists between runs.
type SnapshotCache interface {
	SaveThreads(ctx context.Context, threads []model.Thread) error
	SaveNotifications(ctx context.Context, ns []model.Notification) error
	LoadThreads(ctx context.Context) ([]model.Thread, error)
	LoadNotifications(ctx context.Context) ([]model.Notification, error)
}

// Options configures an Engine.
type Options struct {
	Viewer model.Viewer

	// PollInterval defaults to model.DefaultPollInterval.
	PollInterval time.Duration

	// FetchTimeout bounds each poll tick. Defaults to 30s.
	FetchTimeout time.Duration

	// MaxReconcilePasses defaults to DefaultMaxReconcilePasses.
	MaxReconcilePasses int

	// Cache is optional.
	Cache SnapshotCache

	Logger zerolog.Logger
}

// UpdateMsg is delivered to a Bubble Tea program whenever the state
// changes.
type UpdateMsg struct {
	Snapshot Snapshot
}

// Engine is the command surface of the synchronization layer. All
// methods are safe for concurrent use; commands block until the remote
// calls they issue complete.
type Engine struct {
	svc       remote.Service
	opts      Options
	log       zerolog.Logger
	state     *State
	scheduler *Scheduler

	mu       gosync.Mutex
	attached bool
}

// New creates a detached engine backed by svc.
func New(svc remote.Service, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = model.DefaultPollInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.MaxReconcilePasses <= 0 {
		opts.MaxReconcilePasses = DefaultMaxReconcilePasses
	}

	e := &Engine{
		svc:   svc,
		opts:  opts,
		log:   opts.Logger,
		state: NewState(opts.Viewer, opts.MaxReconcilePasses),
	}
	e.scheduler = NewScheduler(e.Refresh, SchedulerOptions{
		Timeout: opts.FetchTimeout,
		Logger:  opts.Logger,
	})
	return e
}

// Attach starts a session: the state is primed from the cache, both
// lists are loaded, and polling starts. The engine stays attached when
// the initial load fails; the failure is returned and shown as a warning.
func (e *Engine) Attach(ctx context.Context) error {
	e.mu.Lock()
	if e.attached {
		e.mu.Unlock()
		return nil
	}
	e.attached = true
	e.mu.Unlock()

	sel := e.state.Attach()
	e.log.Debug().Uint64("session", sel.Session).Msg("attached")

	e.primeFromCache(ctx)

	tag := e.state.Tag()
	err := e.run(
		func() error { return e.fetchThreads(ctx, tag) },
		func() error { return e.fetchNotifications(ctx, tag) },
	)
	e.reportRefresh(err)

	e.scheduler.Start(e.opts.PollInterval)
	return err
}

// Detach stops polling and ends the session. Responses still in flight
// are discarded when they land.
func (e *Engine) Detach() {
	e.mu.Lock()
	if !e.attached {
		e.mu.Unlock()
		return
	}
	e.attached = false
	e.mu.Unlock()

	e.scheduler.Stop()
	e.state.Detach()
	e.log.Debug().Msg("detached")
}

// Attached reports whether a session is active.
func (e *Engine) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	return e.state.Snapshot()
}

// Updates signals state changes. Signals coalesce.
func (e *Engine) Updates() <-chan struct{} {
	return e.state.Updates()
}

// WaitForUpdate returns a tea.Cmd that blocks until the next state change
// and delivers it as an UpdateMsg. Call it again after handling each
// message to keep listening.
func (e *Engine) WaitForUpdate() tea.Cmd {
	updates := e.state.Updates()
	return func() tea.Msg {
		<-updates
		return UpdateMsg{Snapshot: e.state.Snapshot()}
	}
}

// Status returns the poll scheduler status.
func (e *Engine) Status() SyncStatus {
	return e.scheduler.Status()
}

// Pending returns the optimistic mutations awaiting reconciliation.
func (e *Engine) Pending() []PendingMutation {
	return e.state.Pending()
}

// Trigger requests an immediate poll tick.
func (e *Engine) Trigger() {
	e.scheduler.Trigger()
}

// SelectTab switches tabs and loads the tab's list.
func (e *Engine) SelectTab(ctx context.Context, tab model.Tab) error {
	if !e.Attached() {
		return ErrNotAttached
	}

	tag := e.state.SelectTab(tab)
	var err error
	switch tab {
	case model.TabNotifications:
		err = e.fetchNotifications(ctx, tag)
	default:
		err = e.fetchThreads(ctx, tag)
	}
	if err != nil {
		e.state.SetWarning(warningFor(err))
	}
	return err
}

// SelectThread opens threadID, marks it read locally, and loads its
// messages. An empty threadID closes the open thread.
func (e *Engine) SelectThread(ctx context.Context, threadID string) error {
	if !e.Attached() {
		return ErrNotAttached
	}
	if threadID == "" {
		e.state.ClearSelection()
		return nil
	}

	tag := e.state.SelectThread(threadID)
	if err := e.fetchMessages(ctx, tag); err != nil {
		e.state.SetWarning(warningFor(err))
		return err
	}
	return nil
}

// ClearSelection closes the open thread.
func (e *Engine) ClearSelection() {
	e.state.ClearSelection()
}

// SendMessage posts content to the open thread.
func (e *Engine) SendMessage(ctx context.Context, content string) error {
	sel := e.state.Selection()
	if !sel.HasThread() {
		return ErrNoThreadSelected
	}
	return e.SendMessageTo(ctx, sel.ThreadID, content)
}

// SendMessageTo posts content to threadID. The send is attempted exactly
// once. Nothing is added to the message list locally; on success the
// thread's messages (if open) and the thread list are refetched.
func (e *Engine) SendMessageTo(ctx context.Context, threadID, content string) error {
	if !e.Attached() {
		return ErrNotAttached
	}
	if threadID == "" {
		return ErrNoThreadSelected
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	if err := e.svc.SendMessage(ctx, threadID, content); err != nil {
		metrics.MutationsTotal.WithLabelValues(MessageSent.String(), "error").Inc()
		e.log.Error().Err(err).Str("thread", threadID).Msg("send message failed")
		return asMutationError("send message", err)
	}
	metrics.MutationsTotal.WithLabelValues(MessageSent.String(), "ok").Inc()
	e.state.ApplyOptimistic(Mutation{Kind: MessageSent, TargetID: threadID})

	tag := e.state.Tag()
	jobs := []func() error{
		func() error { return e.fetchThreads(ctx, tag) },
	}
	if tag.ThreadID == threadID {
		jobs = append(jobs, func() error { return e.fetchMessages(ctx, tag) })
	}
	if err := e.run(jobs...); err != nil {
		// The message was delivered; only the follow-up refresh failed.
		e.log.Warn().Err(err).Str("thread", threadID).Msg("refresh after send failed")
		e.state.SetWarning(warningFor(err))
	}
	return nil
}

// MarkNotificationRead marks one notification read, locally first.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	if !e.Attached() {
		return ErrNotAttached
	}

	m := Mutation{Kind: MarkNotificationRead, TargetID: id}
	e.state.ApplyOptimistic(m)
	return e.mutate(m, func() error { return e.svc.MarkNotificationRead(ctx, id) })
}

// MarkAllRead marks every known notification read, locally first.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	if !e.Attached() {
		return ErrNotAttached
	}

	m := Mutation{Kind: MarkAllNotificationsRead}
	e.state.ApplyOptimistic(m)
	return e.mutate(m, func() error { return e.svc.MarkAllNotificationsRead(ctx) })
}

func (e *Engine) mutate(m Mutation, call func() error) error {
	if err := call(); err != nil {
		metrics.MutationsTotal.WithLabelValues(m.Kind.String(), "error").Inc()
		e.log.Error().Err(err).Str("kind", m.Kind.String()).Str("target", m.TargetID).Msg("mutation failed")
		return asMutationError(strings.ReplaceAll(m.Kind.String(), "_", " "), err)
	}
	metrics.MutationsTotal.WithLabelValues(m.Kind.String(), "ok").Inc()
	return nil
}

// Refresh performs one poll tick for the current selection. Refreshes
// run concurrently; every failure is collected. A failed refresh leaves
// a warning on the snapshot, a successful one clears it.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.Attached() {
		return ErrNotAttached
	}

	tag := e.state.Tag()
	sel := e.state.Selection()

	var jobs []func() error
	switch sel.Tab {
	case model.TabNotifications:
		jobs = append(jobs, func() error { return e.fetchNotifications(ctx, tag) })
	default:
		jobs = append(jobs, func() error { return e.fetchThreads(ctx, tag) })
	}
	if tag.ThreadID != "" {
		jobs = append(jobs, func() error { return e.fetchMessages(ctx, tag) })
	}

	err := e.run(jobs...)
	e.reportRefresh(err)
	return err
}

// run executes jobs concurrently and joins their errors. One failing job
// does not cancel the others.
func (e *Engine) run(jobs ...func() error) error {
	errs := make([]error, len(jobs))

	var g errgroup.Group
	for i, job := range jobs {
		g.Go(func() error {
			errs[i] = job()
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (e *Engine) reportRefresh(err error) {
	if err != nil {
		e.state.SetWarning(warningFor(err))
		return
	}
	e.state.SetWarning("")
}

func (e *Engine) fetchThreads(ctx context.Context, tag FetchTag) error {
	start := time.Now()
	threads, err := e.svc.ListThreads(ctx)
	metrics.FetchDuration.WithLabelValues(string(remote.ResourceThreads)).Observe(time.Since(start).Seconds())
	if err != nil {
		return asFetchError(remote.ResourceThreads, err)
	}

	merged, ok := e.state.ApplyThreads(tag, threads)
	if !ok {
		e.log.Debug().Uint64("session", tag.Session).Msg("discarded stale thread list")
		return nil
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.SaveThreads(ctx, merged); err != nil {
			e.log.Warn().Err(err).Msg("caching threads failed")
		}
	}
	return nil
}

func (e *Engine) fetchNotifications(ctx context.Context, tag FetchTag) error {
	start := time.Now()
	ns, err := e.svc.ListNotifications(ctx)
	metrics.FetchDuration.WithLabelValues(string(remote.ResourceNotifications)).Observe(time.Since(start).Seconds())
	if err != nil {
		return asFetchError(remote.ResourceNotifications, err)
	}

	merged, ok := e.state.ApplyNotifications(tag, ns)
	if !ok {
		e.log.Debug().Uint64("session", tag.Session).Msg("discarded stale notification list")
		return nil
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.SaveNotifications(ctx, merged); err != nil {
			e.log.Warn().Err(err).Msg("caching notifications failed")
		}
	}
	return nil
}

func (e *Engine) fetchMessages(ctx context.Context, tag FetchTag) error {
	start := time.Now()
	msgs, err := e.svc.ListMessages(ctx, tag.ThreadID)
	metrics.FetchDuration.WithLabelValues(string(remote.ResourceMessages)).Observe(time.Since(start).Seconds())
	if err != nil {
		e.state.FailMessages(tag)
		return asFetchError(remote.ResourceMessages, err)
	}

	if !e.state.ApplyMessages(tag, msgs) {
		e.log.Debug().Str("thread", tag.ThreadID).Msg("discarded stale messages")
	}
	return nil
}

func (e *Engine) primeFromCache(ctx context.Context) {
	if e.opts.Cache == nil {
		return
	}

	threads, err := e.opts.Cache.LoadThreads(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("loading cached threads failed")
	}
	ns, err := e.opts.Cache.LoadNotifications(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("loading cached notifications failed")
	}
	e.state.PrimeFromCache(threads, ns)
}

func asFetchError(res remote.Resource, err error) error {
	var fe *remote.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &remote.FetchError{Resource: res, Err: err}
}

func asMutationError(op string, err error) error {
	var me *remote.MutationError
	if errors.As(err, &me) {
		return err
	}
	return &remote.MutationError{Op: op, Err: err}
}

// warningFor renders err as a one-line status message.
func warningFor(err error) string {
	if remote.IsAuthError(err) {
		return "authentication failed: run `inbox login`"
	}
	var fe *remote.FetchError
	if errors.As(err, &fe) {
		return fmt.Sprintf("could not refresh %s; retrying", fe.Resource)
	}
	return fmt.Sprintf("refresh failed: %v", err)
}
