package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/recruit-inbox/internal/model"
)

// timeLayout is used for every stored timestamp.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases intact and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

type threadRow struct {
	ID            string `db:"id"`
	Subject       string `db:"subject"`
	PartyName     string `db:"party_name"`
	PartyAvatar   string `db:"party_avatar"`
	LastMessageAt string `db:"last_message_at"`
	HasUnread     bool   `db:"has_unread"`
	Position      int    `db:"position"`
}

type notificationRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	CreatedAt string `db:"created_at"`
	IsRead    bool   `db:"is_read"`
	Position  int    `db:"position"`
}

// SaveThreads replaces the cached thread list in one transaction.
func (s *SQLiteStore) SaveThreads(ctx context.Context, threads []model.Thread) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM threads"); err != nil {
		return fmt.Errorf("clearing threads: %w", err)
	}

	const query = `
		INSERT INTO threads (
			id, subject, party_name, party_avatar,
			last_message_at, has_unread, position
		) VALUES (
			:id, :subject, :party_name, :party_avatar,
			:last_message_at, :has_unread, :position
		)`

	for i, t := range threads {
		row := threadRow{
			ID:            t.ID,
			Subject:       t.Subject,
			PartyName:     t.OtherParty.Name,
			PartyAvatar:   t.OtherParty.AvatarURL,
			LastMessageAt: formatTime(t.LastMessageAt),
			HasUnread:     t.HasUnread,
			Position:      i,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("saving thread %s: %w", t.ID, err)
		}
	}

	if err := touch(ctx, tx, ResourceThreads); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadThreads returns the cached threads, newest activity first.
func (s *SQLiteStore) LoadThreads(ctx context.Context) ([]model.Thread, error) {
	var rows []threadRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM threads ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("loading threads: %w", err)
	}

	threads := make([]model.Thread, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.LastMessageAt)
		if err != nil {
			return nil, fmt.Errorf("parsing thread %s last_message_at: %w", r.ID, err)
		}
		threads = append(threads, model.Thread{
			ID:      r.ID,
			Subject: r.Subject,
			OtherParty: model.Party{
				Name:      r.PartyName,
				AvatarURL: r.PartyAvatar,
			},
			LastMessageAt: at,
			HasUnread:     r.HasUnread,
		})
	}
	model.SortThreads(threads)

	return threads, nil
}

// SaveNotifications replaces the cached notification list in one
// transaction.
func (s *SQLiteStore) SaveNotifications(ctx context.Context, ns []model.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	const query = `
		INSERT INTO notifications (
			id, type, title, message, created_at, is_read, position
		) VALUES (
			:id, :type, :title, :message, :created_at, :is_read, :position
		)`

	for i, n := range ns {
		row := notificationRow{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: formatTime(n.CreatedAt),
			IsRead:    n.IsRead,
			Position:  i,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("saving notification %s: %w", n.ID, err)
		}
	}

	if err := touch(ctx, tx, ResourceNotifications); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadNotifications returns the cached notifications, newest first.
func (s *SQLiteStore) LoadNotifications(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM notifications ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("loading notifications: %w", err)
	}

	ns := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing notification %s created_at: %w", r.ID, err)
		}
		ns = append(ns, model.Notification{
			ID:        r.ID,
			Type:      model.ParseNotificationType(r.Type),
			Title:     r.Title,
			Message:   r.Message,
			CreatedAt: at,
			IsRead:    r.IsRead,
		})
	}
	model.SortNotifications(ns)

	return ns, nil
}

// SavedAt returns when resource was last saved.
func (s *SQLiteStore) SavedAt(ctx context.Context, resource string) (time.Time, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT saved_at FROM snapshot_meta WHERE resource = ?", resource)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading %s save time: %w", resource, err)
	}
	return parseTime(raw)
}

func touch(ctx context.Context, tx *sqlx.Tx, resource string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshot_meta (resource, saved_at) VALUES (?, ?)",
		resource, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("recording %s save time: %w", resource, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
