package userstore

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/internal/config"
)

// Store provides lookup and upsert of user mail credentials. It
// implements config.UserLookup.
type Store struct {
	db     *DB
	logger *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(db *DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// GetUserByID returns the user record, or (nil, nil) when no such user
// exists.
func (s *Store) GetUserByID(id string) (*config.UserRecord, error) {
	query := `
		SELECT id, email, smtp_host, smtp_user, smtp_password, smtp_enabled
		FROM users
		WHERE id = ?
	`
	var rec config.UserRecord
	var enabled int
	err := s.db.DB().QueryRow(query, id).Scan(
		&rec.ID,
		&rec.Email,
		&rec.SMTPHost,
		&rec.SMTPUser,
		&rec.SMTPPassword,
		&enabled,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	rec.SMTPEnabled = enabled != 0

	return &rec, nil
}

// UpsertUser inserts or updates a user record.
func (s *Store) UpsertUser(rec *config.UserRecord) error {
	enabled := 0
	if rec.SMTPEnabled {
		enabled = 1
	}

	query := `
		INSERT INTO users (id, email, smtp_host, smtp_user, smtp_password, smtp_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			smtp_host = excluded.smtp_host,
			smtp_user = excluded.smtp_user,
			smtp_password = excluded.smtp_password,
			smtp_enabled = excluded.smtp_enabled,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.DB().Exec(query, rec.ID, rec.Email, rec.SMTPHost, rec.SMTPUser, rec.SMTPPassword, enabled); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}
