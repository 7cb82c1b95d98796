package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump it when schema.sql
// changes; older databases are refused rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLite{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// inTx runs fn in a transaction, retrying the whole transaction while the
// database is busy.
func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (s *SQLite) Create(ctx context.Context, author string, payload []byte, at time.Time) (id string, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "create", start, err) }(time.Now())
	if err := perrors.ValidateIdentifier("user id", author); err != nil {
		return "", err
	}

	id = uuid.NewString()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO letters (letter_id, author, created_at, content) VALUES (?, ?, ?, ?)",
			id, author, at.UnixNano(), payload,
		); err != nil {
			return fmt.Errorf("insert letter: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO letter_recipients (letter_id, user_id, read, received_at) VALUES (?, ?, 1, ?)",
			id, author, at.UnixNano(),
		); err != nil {
			return fmt.Errorf("insert author delivery: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLite) Send(ctx context.Context, author, id string, recipients []string, at time.Time) (err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "send", start, err) }(time.Now())
	if err := validateUsers(author, recipients); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, "SELECT author FROM letters WHERE letter_id = ?", id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("look up letter: %w", err)
		}
		if owner != author {
			return errNotAuthor(id)
		}
		for _, r := range recipients {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO letter_recipients (letter_id, user_id, read, received_at) VALUES (?, ?, 0, ?)",
				id, r, at.UnixNano(),
			); err != nil {
				return fmt.Errorf("deliver to %s: %w", r, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Get(ctx context.Context, recipient, id string) (letter *Letter, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "get", start, err) }(time.Now())

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			author  string
			payload []byte
		)
		err := tx.QueryRowContext(ctx, "SELECT author, content FROM letters WHERE letter_id = ?", id).Scan(&author, &payload)
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("load letter: %w", err)
		}

		var (
			read       bool
			receivedAt int64
		)
		err = tx.QueryRowContext(ctx,
			"SELECT read, received_at FROM letter_recipients WHERE letter_id = ? AND user_id = ?",
			id, recipient,
		).Scan(&read, &receivedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return errNotRecipient(id)
		}
		if err != nil {
			return fmt.Errorf("load delivery: %w", err)
		}

		if !read {
			if _, err := tx.ExecContext(ctx,
				"UPDATE letter_recipients SET read = 1 WHERE letter_id = ? AND user_id = ?",
				id, recipient,
			); err != nil {
				return fmt.Errorf("mark read: %w", err)
			}
		}
		letter = &Letter{
			Summary: Summary{
				ID:     id,
				Author: author,
				At:     time.Unix(0, receivedAt).UTC(),
				Read:   read,
				Own:    author == recipient,
			},
			Payload: payload,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return letter, nil
}

func (s *SQLite) List(ctx context.Context, recipient string) (out []Summary, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "list", start, err) }(time.Now())

	err = retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT l.letter_id, l.author, r.received_at, r.read
			FROM letter_recipients r
			JOIN letters l ON l.letter_id = r.letter_id
			WHERE r.user_id = ?
			ORDER BY r.received_at DESC, l.letter_id ASC`,
			recipient,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = []Summary{}
		for rows.Next() {
			var (
				sum        Summary
				receivedAt int64
			)
			if err := rows.Scan(&sum.ID, &sum.Author, &receivedAt, &sum.Read); err != nil {
				return err
			}
			sum.At = time.Unix(0, receivedAt).UTC()
			sum.Own = sum.Author == recipient
			out = append(out, sum)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
