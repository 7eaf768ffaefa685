package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"city_bot/internal/model"
	"city_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RegisterUser inserts the user if it is unknown and updates its names.
// RegisteredAt is only written on insert; LastActiveAt always.
func (s *SQLite) RegisterUser(ctx context.Context, u *model.User) (bool, error) {
	registered := u.RegisteredAt
	if registered.IsZero() {
		registered = time.Now()
	}
	active := u.LastActiveAt
	if active.IsZero() {
		active = registered
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, username, first_name, last_name, registration_date, last_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FirstName, u.LastName, formatTime(registered), formatTime(active),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	created := n > 0

	if !created {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = ?, first_name = ?, last_name = ?, last_active = ? WHERE user_id = ?`,
			u.Username, u.FirstName, u.LastName, formatTime(active), u.ID,
		)
		if err != nil {
			return false, fmt.Errorf("update user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// GetUser returns a single user by ID.
func (s *SQLite) GetUser(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, first_name, last_name, registration_date, last_active
		 FROM users WHERE user_id = ?`, id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by ID.
func (s *SQLite) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, first_name, last_name, registration_date, last_active
		 FROM users ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// TouchUser records user activity.
func (s *SQLite) TouchUser(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active = ? WHERE user_id = ?`, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// SaveState replaces the dialog state of a chat.
func (s *SQLite) SaveState(ctx context.Context, chatID int64, state string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_states (chat_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		chatID, state, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// GetState returns the dialog state of a chat.
func (s *SQLite) GetState(ctx context.Context, chatID int64) (string, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM user_states WHERE chat_id = ?`, chatID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	return state, nil
}

// ClearState removes the dialog state of a chat.
func (s *SQLite) ClearState(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_states WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var registered, active string
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &registered, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.RegisteredAt, _ = time.Parse(timeLayout, registered)
	u.LastActiveAt, _ = time.Parse(timeLayout, active)
	return &u, nil
}
