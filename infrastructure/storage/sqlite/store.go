// Package sqlite provides a SQLite-backed implementation of the participant
// and message repositories.
package sqlite

import (
	"batepapo-uol-api/errors"
	"batepapo-uol-api/repositories"
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	name      TEXT PRIMARY KEY,
	last_seen INTEGER NOT NULL,
	joined_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	from_name  TEXT NOT NULL,
	to_name    TEXT NOT NULL,
	text       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Store persists participants and messages in SQLite.
type Store struct {
	sqlDB *sql.DB
	log   *slog.Logger
}

var (
	_ repositories.IParticipantRepository = (*Store)(nil)
	_ repositories.IMessageRepository     = (*Store)(nil)
)

func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// Open opens a SQLite store and creates the schema when missing.
func Open(path string, log *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection keeps SQLite from returning SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, log: log}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) CreateParticipant(ctx context.Context, participant repositories.DiskParticipant) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO participants (name, last_seen, joined_at) VALUES (?, ?, ?)`,
		participant.Name, toNanos(participant.LastSeen), toNanos(participant.JoinedAt),
	)
	if isConstraintError(err) {
		return errors.ErrParticipantAlreadyExists
	}
	return err
}

func (s *Store) GetParticipant(ctx context.Context, name string) (repositories.DiskParticipant, error) {
	var lastSeen, joinedAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT last_seen, joined_at FROM participants WHERE name = ?`, name,
	).Scan(&lastSeen, &joinedAt)
	if goerrors.Is(err, sql.ErrNoRows) {
		return repositories.DiskParticipant{}, errors.ErrParticipantNotFound
	}
	if err != nil {
		return repositories.DiskParticipant{}, err
	}
	return repositories.DiskParticipant{Name: name, LastSeen: fromNanos(lastSeen), JoinedAt: fromNanos(joinedAt)}, nil
}

func (s *Store) UpdateLastSeen(ctx context.Context, name string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE participants SET last_seen = ? WHERE name = ?`, toNanos(at), name,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]repositories.DiskParticipant, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, last_seen, joined_at FROM participants ORDER BY joined_at, rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []repositories.DiskParticipant
	for rows.Next() {
		var (
			name               string
			lastSeen, joinedAt int64
		)
		if err := rows.Scan(&name, &lastSeen, &joinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, repositories.DiskParticipant{
			Name:     name,
			LastSeen: fromNanos(lastSeen),
			JoinedAt: fromNanos(joinedAt),
		})
	}
	return participants, rows.Err()
}

func (s *Store) DeleteParticipants(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE name = ?`, name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StoreMessage inserts a message; the AUTOINCREMENT rowid is the append order key.
func (s *Store) StoreMessage(ctx context.Context, message repositories.DiskMessage) (repositories.DiskMessage, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (id, from_name, to_name, text, kind, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID.String(), message.From, message.To, message.Text, message.Kind, toNanos(message.At),
	)
	if err != nil {
		return repositories.DiskMessage{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return repositories.DiskMessage{}, err
	}
	message.Seq = uint64(seq)
	return message, nil
}

func (s *Store) GetMessages(ctx context.Context) ([]repositories.DiskMessage, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, id, from_name, to_name, text, kind, created_at FROM messages ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []repositories.DiskMessage
	for rows.Next() {
		var (
			seq       int64
			id        string
			message   repositories.DiskMessage
			createdAt int64
		)
		if err := rows.Scan(&seq, &id, &message.From, &message.To, &message.Text, &message.Kind, &createdAt); err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			s.log.Warn("Skipping message with malformed id", "seq", seq, "id", id)
			continue
		}
		message.Seq = uint64(seq)
		message.ID = parsedID
		message.At = fromNanos(createdAt)
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if goerrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
