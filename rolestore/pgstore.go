package rolestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PGStore persists assignments in a Postgres user_roles table, mirroring the
// shape used by hosted identity backends (one row per subject, UUID primary
// key, role as text).
type PGStore struct {
	db *sql.DB
}

// Open connects to Postgres via lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the user_roles table when missing. Role policy checks
// (who may write which rows) belong to database policy, not this client.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_roles (
			id      UUID PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			role    TEXT NOT NULL
		)
	`)
	return err
}

// Find implements Store.
func (s *PGStore) Find(ctx context.Context, subjectID string) (*Assignment, error) {
	var a Assignment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role
		FROM user_roles
		WHERE user_id = $1
	`, subjectID).Scan(&a.RecordID, &a.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rolestore: find: %w", err)
	}
	a.SubjectID = subjectID
	return &a, nil
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, subjectID string, role Role) (*Assignment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	a := &Assignment{
		RecordID:  uuid.NewString(),
		SubjectID: subjectID,
		Role:      role,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (id, user_id, role)
		VALUES ($1, $2, $3)
	`, a.RecordID, subjectID, string(role))
	if err != nil {
		return nil, fmt.Errorf("rolestore: insert: %w", err)
	}
	return a, nil
}

// Update implements Store.
func (s *PGStore) Update(ctx context.Context, recordID string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_roles
		SET role = $1
		WHERE id = $2
	`, string(role), recordID)
	if err != nil {
		return fmt.Errorf("rolestore: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
