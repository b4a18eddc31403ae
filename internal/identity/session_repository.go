package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	SetActiveOrganization(ctx context.Context, sessionID, organizationID string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a new session. The ID is generated if empty.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = NewSessionID()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	session.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	session.UpdatedAt = session.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, active_organization_id, ip_address, user_agent, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.TokenHash,
		nullString(session.ActiveOrganizationID),
		nullString(session.IPAddress), nullString(session.UserAgent),
		session.ExpiresAt.UTC().Format(time.RFC3339), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	return r.getSession(ctx,
		`SELECT id, user_id, token_hash, active_organization_id, ip_address, user_agent, expires_at, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
}

// GetByTokenHash retrieves a session by the SHA-256 hash of its raw token.
func (r *SQLiteSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	return r.getSession(ctx,
		`SELECT id, user_id, token_hash, active_organization_id, ip_address, user_agent, expires_at, created_at, updated_at
		 FROM sessions WHERE token_hash = ?`, tokenHash)
}

// SetActiveOrganization updates the session's active organization.
// An empty organizationID clears the active organization.
func (r *SQLiteSessionRepository) SetActiveOrganization(ctx context.Context, sessionID, organizationID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET active_organization_id = ?, updated_at = ? WHERE id = ?",
		nullString(organizationID), now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("setting active organization: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session by ID.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry time, freeing storage.
// Returns the number of deleted rows.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// getSession executes a query and scans a single session result.
func (r *SQLiteSessionRepository) getSession(ctx context.Context, query string, args ...any) (*Session, error) {
	var s Session
	var activeOrg, ipAddress, userAgent sql.NullString
	var expiresAt, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &activeOrg,
		&ipAddress, &userAgent, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if activeOrg.Valid {
		s.ActiveOrganizationID = activeOrg.String
	}
	if ipAddress.Valid {
		s.IPAddress = ipAddress.String
	}
	if userAgent.Valid {
		s.UserAgent = userAgent.String
	}

	s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &s, nil
}
