package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user row.
//
// The UNIQUE constraint on username is the source of truth for duplicates:
// rather than SELECT-then-INSERT (racy), we attempt the insert and translate
// the constraint violation into a Conflict error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, paid, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Username,
		user.PasswordHash,
		user.Paid,
		user.IsAdmin,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Username, err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}

	return nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, paid, is_admin, created_at
		 FROM users
		 WHERE username = ?`,
		username,
	).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Paid,
		&user.IsAdmin,
		&user.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}

	return &user, nil
}

// SetPaid flips the paid flag for a username. RowsAffected distinguishes
// "updated" from "no such user".
func (db *DB) SetPaid(ctx context.Context, username string, paid bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET paid = ? WHERE username = ?`,
		paid, username,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting paid flag for %s: %w", username, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", username)
	}

	return nil
}

// UpsertAdmin provisions the admin account from configuration at startup.
// Re-running with new credentials rotates the stored hash; the account is
// never baked into the schema as a literal.
func (db *DB) UpsertAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin, created_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash, is_admin = 1`,
		username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: provisioning admin %s: %w", username, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite does not export a typed error for this, so we
// match on the stable "UNIQUE constraint failed" message prefix the engine
// produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
