package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OrganizationRepository defines the interface for tenant and membership persistence.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, organizationID, userID string) (*Member, error)
	ListMembers(ctx context.Context, organizationID string) ([]Member, error)
	RemoveMember(ctx context.Context, organizationID, userID string) error
}

// SQLiteOrganizationRepository implements OrganizationRepository using SQLite.
type SQLiteOrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new SQLite-backed organization repository.
func NewOrganizationRepository(db *sql.DB) *SQLiteOrganizationRepository {
	return &SQLiteOrganizationRepository{db: db}
}

// Create inserts a new organization. The ID is generated if empty.
func (r *SQLiteOrganizationRepository) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = NewOrganizationID()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	org.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	org.UpdatedAt = org.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, logo, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Slug, nullString(org.Logo), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("creating organization: %w", err)
	}

	return nil
}

// GetByID retrieves an organization by its unique ID.
func (r *SQLiteOrganizationRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	return r.getOrganization(ctx,
		"SELECT id, name, slug, logo, created_at, updated_at FROM organizations WHERE id = ?", id)
}

// GetBySlug retrieves an organization by its slug.
func (r *SQLiteOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return r.getOrganization(ctx,
		"SELECT id, name, slug, logo, created_at, updated_at FROM organizations WHERE slug = ?", slug)
}

// AddMember inserts a membership row. The ID is generated if empty.
// A user can hold at most one membership per organization.
func (r *SQLiteOrganizationRepository) AddMember(ctx context.Context, member *Member) error {
	if member.ID == "" {
		member.ID = NewMemberID()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	member.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, organization_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		member.ID, member.OrganizationID, member.UserID, member.Role, now,
	)
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}

	return nil
}

// GetMember retrieves the membership of a user within an organization.
// Returns ErrMemberNotFound when the user is not a member.
func (r *SQLiteOrganizationRepository) GetMember(ctx context.Context, organizationID, userID string) (*Member, error) {
	var m Member
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, organization_id, user_id, role, created_at
		 FROM members WHERE organization_id = ? AND user_id = ?`,
		organizationID, userID,
	).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("getting member: %w", err)
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &m, nil
}

// ListMembers returns all members of an organization ordered by join date.
func (r *SQLiteOrganizationRepository) ListMembers(ctx context.Context, organizationID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, organization_id, user_id, role, created_at
		 FROM members WHERE organization_id = ? ORDER BY created_at ASC`,
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var createdAt string
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// RemoveMember deletes a membership row.
func (r *SQLiteOrganizationRepository) RemoveMember(ctx context.Context, organizationID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM members WHERE organization_id = ? AND user_id = ?",
		organizationID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// getOrganization executes a query and scans a single organization result.
func (r *SQLiteOrganizationRepository) getOrganization(ctx context.Context, query string, args ...any) (*Organization, error) {
	var o Organization
	var logo sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&o.ID, &o.Name, &o.Slug, &logo, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("getting organization: %w", err)
	}

	if logo.Valid {
		o.Logo = logo.String
	}

	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &o, nil
}
