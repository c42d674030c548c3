package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mail-triage/internal/model"
)

// Logical state keys. All four are written and cleared together on
// login/logout transitions.
const (
	keyAuthenticated  = "authenticated"
	keyAccessToken    = "access_token"
	keyTokenExpiresAt = "token_expires_at"
	keyNextPageToken  = "next_page_token"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
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

// setState writes one state key inside an existing transaction.
func setState(ctx context.Context, tx *sqlx.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("writing state key %q: %w", key, err)
	}
	return nil
}

// getState reads one state key, returning "" when the key is absent.
func (s *SQLiteStore) getState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM app_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading state key %q: %w", key, err)
	}
	return value, nil
}

// SaveCredential persists the token, expiry (epoch millis), and
// authenticated flag in one transaction.
func (s *SQLiteStore) SaveCredential(ctx context.Context, cred model.Credential) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	millis := strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10)
	if err := setState(ctx, tx, keyAuthenticated, "true"); err != nil {
		return err
	}
	if err := setState(ctx, tx, keyAccessToken, cred.AccessToken); err != nil {
		return err
	}
	if err := setState(ctx, tx, keyTokenExpiresAt, millis); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing credential: %w", err)
	}
	return nil
}

// LoadCredential returns the persisted credential, or nil when the
// authenticated flag is unset or the token is missing.
func (s *SQLiteStore) LoadCredential(ctx context.Context) (*model.Credential, error) {
	flag, err := s.getState(ctx, keyAuthenticated)
	if err != nil {
		return nil, err
	}
	token, err := s.getState(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	if flag != "true" || token == "" {
		return nil, nil
	}

	rawExpiry, err := s.getState(ctx, keyTokenExpiresAt)
	if err != nil {
		return nil, err
	}
	millis, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		// Corrupt expiry: treat the credential as absent rather than
		// handing out a token with unknown lifetime.
		return nil, nil
	}

	return &model.Credential{
		AccessToken: token,
		ExpiresAt:   time.UnixMilli(millis),
	}, nil
}

// ClearCredential removes the token, expiry, and flag in one transaction.
func (s *SQLiteStore) ClearCredential(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM app_state WHERE key IN (?, ?, ?)",
		keyAuthenticated, keyAccessToken, keyTokenExpiresAt)
	if err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

const insertEmailQuery = `
	INSERT OR REPLACE INTO emails (
		id, position, subject, sender, snippet, body,
		timestamp, category, summary, action_items, summarized
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceEmails overwrites the whole persisted collection.
func (s *SQLiteStore) ReplaceEmails(ctx context.Context, emails []model.Email) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM emails"); err != nil {
		return fmt.Errorf("clearing emails: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertEmailQuery)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range emails {
		category := e.Category
		if category == "" {
			category = model.CategoryUncategorized
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, i, e.Subject, e.From, e.Snippet, e.Body,
			e.Timestamp, category, e.Summary, e.ActionItems, boolToInt(e.Summarized))
		if err != nil {
			return fmt.Errorf("inserting email %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing emails: %w", err)
	}
	return nil
}

// UpdateEmail rewrites one record's durable fields, keeping its position.
func (s *SQLiteStore) UpdateEmail(ctx context.Context, email model.Email) error {
	category := email.Category
	if category == "" {
		category = model.CategoryUncategorized
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE emails SET
			subject = ?, sender = ?, snippet = ?, body = ?,
			timestamp = ?, category = ?, summary = ?, action_items = ?, summarized = ?
		WHERE id = ?`,
		email.Subject, email.From, email.Snippet, email.Body,
		email.Timestamp, category, email.Summary, email.ActionItems,
		boolToInt(email.Summarized), email.ID)
	if err != nil {
		return fmt.Errorf("updating email %s: %w", email.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating email %s: no such record", email.ID)
	}
	return nil
}

// emailRow mirrors the emails table schema.
type emailRow struct {
	ID          string `db:"id"`
	Position    int    `db:"position"`
	Subject     string `db:"subject"`
	Sender      string `db:"sender"`
	Snippet     string `db:"snippet"`
	Body        string `db:"body"`
	Timestamp   string `db:"timestamp"`
	Category    string `db:"category"`
	Summary     string `db:"summary"`
	ActionItems string `db:"action_items"`
	Summarized  int    `db:"summarized"`
}

// LoadEmails returns the persisted collection in fetch order.
func (s *SQLiteStore) LoadEmails(ctx context.Context) ([]model.Email, error) {
	var rows []emailRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM emails ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("loading emails: %w", err)
	}

	emails := make([]model.Email, 0, len(rows))
	for _, r := range rows {
		emails = append(emails, model.Email{
			ID:          r.ID,
			Subject:     r.Subject,
			From:        r.Sender,
			Snippet:     r.Snippet,
			Body:        r.Body,
			Timestamp:   r.Timestamp,
			Category:    r.Category,
			Summary:     r.Summary,
			ActionItems: r.ActionItems,
			Summarized:  r.Summarized != 0,
		})
	}
	return emails, nil
}

// SaveNextPageToken persists the mailbox continuation token.
func (s *SQLiteStore) SaveNextPageToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)",
		keyNextPageToken, token)
	if err != nil {
		return fmt.Errorf("writing next page token: %w", err)
	}
	return nil
}

// LoadNextPageToken returns the persisted continuation token.
func (s *SQLiteStore) LoadNextPageToken(ctx context.Context) (string, error) {
	return s.getState(ctx, keyNextPageToken)
}

// Clear removes all state keys and the collection in one transaction.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM app_state"); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM emails"); err != nil {
		return fmt.Errorf("clearing emails: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
