package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mosquedir/mosqueadmin/pkg/session"
)

// SaveSession replaces the stored session.
func (d *DB) SaveSession(ctx context.Context, s *session.Session) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO sessions(id, token, user_id, name, email, role, mosque_id, issued_at, expires_at)
VALUES(1,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET token=excluded.token, user_id=excluded.user_id, name=excluded.name, email=excluded.email,
  role=excluded.role, mosque_id=excluded.mosque_id, issued_at=excluded.issued_at, expires_at=excluded.expires_at`,
		s.Token, nullIfEmpty(s.UserID), nullIfEmpty(s.Name), nullIfEmpty(s.Email), nullIfEmpty(s.Role), nullIfEmpty(s.MosqueID),
		formatTime(s.IssuedAt), formatTime(s.ExpiresAt))
	return err
}

// LoadSession returns the stored session, or nil if there is none.
func (d *DB) LoadSession(ctx context.Context) (*session.Session, error) {
	var (
		s                   session.Session
		userID, name, email sql.NullString
		role, mosqueID      sql.NullString
		issuedAt, expiresAt string
	)
	err := d.sql.QueryRowContext(ctx, `SELECT token, user_id, name, email, role, mosque_id, issued_at, expires_at FROM sessions WHERE id = 1`).
		Scan(&s.Token, &userID, &name, &email, &role, &mosqueID, &issuedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.UserID = userID.String
	s.Name = name.String
	s.Email = email.String
	s.Role = role.String
	s.MosqueID = mosqueID.String
	s.IssuedAt = parseTime(issuedAt)
	s.ExpiresAt = parseTime(expiresAt)
	return &s, nil
}

func (d *DB) DeleteSession(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1`)
	return err
}
