package identity

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the identity schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "identity-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			logo TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			image TEXT,
			email_verified INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE members (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (organization_id, user_id)
		) STRICT;

		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			active_organization_id TEXT REFERENCES organizations(id) ON DELETE SET NULL,
			ip_address TEXT,
			user_agent TEXT,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying identity migration: %v", err)
	}

	return db
}

// seedUser inserts a test user and returns it.
func seedUser(t *testing.T, db *sql.DB, email string) *User {
	t.Helper()

	repo := NewUserRepository(db)
	user := &User{
		Email: email,
		Name:  email,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// seedOrganization inserts a test organization and returns it.
func seedOrganization(t *testing.T, db *sql.DB, slug string) *Organization {
	t.Helper()

	repo := NewOrganizationRepository(db)
	org := &Organization{
		Name: slug,
		Slug: slug,
	}
	if err := repo.Create(context.Background(), org); err != nil {
		t.Fatalf("creating test organization %s: %v", slug, err)
	}
	return org
}

// seedMember adds a user to an organization with the given role.
func seedMember(t *testing.T, db *sql.DB, orgID, userID, role string) *Member {
	t.Helper()

	repo := NewOrganizationRepository(db)
	member := &Member{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := repo.AddMember(context.Background(), member); err != nil {
		t.Fatalf("adding test member: %v", err)
	}
	return member
}

// seedSession inserts a session for a user and returns the session plus raw token.
func seedSession(t *testing.T, db *sql.DB, userID, activeOrgID string, expiresAt time.Time) (*Session, string) {
	t.Helper()

	raw, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("generating session token: %v", err)
	}

	repo := NewSessionRepository(db)
	session := &Session{
		UserID:               userID,
		TokenHash:            HashToken(raw),
		ActiveOrganizationID: activeOrgID,
		ExpiresAt:            expiresAt,
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("creating test session: %v", err)
	}
	return session, raw
}
