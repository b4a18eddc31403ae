package incident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for incident persistence.
type Repository interface {
	Create(ctx context.Context, inc *Incident) error
	GetByID(ctx context.Context, id string) (*Incident, error)
	GetOwner(ctx context.Context, id string) (string, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Update(ctx context.Context, inc *Incident) error
	ChangeStatus(ctx context.Context, id string, to Status, changedBy string) (*Incident, error)
	ListAudit(ctx context.Context, incidentID string) ([]AuditEntry, error)
	Summary(ctx context.Context, organizationID string) (*Summary, error)
	ListAnalyzed(ctx context.Context, organizationID string, limit, offset int) (*ListResult, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed incident repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const incidentColumns = `id, organization_id, user_id, status, user_description,
	analyst_note, category, created_at, updated_at`

// Create inserts a new incident. The ID is generated if empty and the
// status is forced to pending.
func (r *SQLiteRepository) Create(ctx context.Context, inc *Incident) error {
	if inc.ID == "" {
		inc.ID = NewIncidentID()
	}
	inc.Status = StatusPending

	now := time.Now().UTC().Format(time.RFC3339)
	inc.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	inc.UpdatedAt = inc.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incidents (id, organization_id, user_id, status, user_description,
		 analyst_note, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.OrganizationID, inc.UserID, string(inc.Status), inc.UserDescription,
		nullString(inc.AnalystNote), nullString(string(inc.Category)), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating incident: %w", err)
	}
	return nil
}

// GetByID retrieves an incident by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Incident, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+incidentColumns+" FROM incidents WHERE id = ?", id)
	return scanIncidentFrom(row)
}

// GetOwner returns the reporter's user ID for an incident, or an empty
// string if the incident does not exist.
func (r *SQLiteRepository) GetOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM incidents WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving incident owner: %w", err)
	}
	return owner, nil
}

// List returns incidents matching the filter, newest first, with the
// total count for pagination.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.OrganizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	conditions := []string{"organization_id = ?"}
	args := []any{filter.OrganizationID}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		if !IsValidStatus(filter.Status) {
			return nil, ErrInvalidStatus
		}
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	//nolint:gosec // conditions are built from fixed strings, values are bound
	countQuery := "SELECT COUNT(*) FROM incidents " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting incidents: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	//nolint:gosec // conditions are built from fixed strings, values are bound
	query := "SELECT " + incidentColumns + " FROM incidents " + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	incidents, err := r.queryIncidents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &ListResult{Incidents: incidents, Total: total, Limit: limit, Offset: offset}, nil
}

// Update persists analyst-editable fields: the analyst note and the
// severity category. Status changes go through ChangeStatus so the audit
// trail stays complete.
func (r *SQLiteRepository) Update(ctx context.Context, inc *Incident) error {
	if inc.Category != "" && !IsValidCategory(inc.Category) {
		return ErrInvalidCategory
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE incidents SET analyst_note = ?, category = ?, updated_at = ? WHERE id = ?`,
		nullString(inc.AnalystNote), nullString(string(inc.Category)), now, inc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating incident: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrIncidentNotFound
	}

	inc.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	return nil
}

// ChangeStatus moves an incident to a new status and records the
// transition in the audit log, atomically. Invalid transitions are
// rejected before any write.
func (r *SQLiteRepository) ChangeStatus(ctx context.Context, id string, to Status, changedBy string) (*Incident, error) {
	if !IsValidStatus(to) {
		return nil, ErrInvalidStatus
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		"SELECT "+incidentColumns+" FROM incidents WHERE id = ?", id)
	inc, err := scanIncidentFrom(row)
	if err != nil {
		return nil, err
	}

	if !CanTransition(inc.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inc.Status, to)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		"UPDATE incidents SET status = ?, updated_at = ? WHERE id = ?",
		string(to), now, id,
	); err != nil {
		return nil, fmt.Errorf("updating incident status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO incident_audit_log (incident_id, changed_by, old_status, new_status, changed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, changedBy, string(inc.Status), string(to), now,
	); err != nil {
		return nil, fmt.Errorf("recording status transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status change: %w", err)
	}

	inc.Status = to
	inc.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	return inc, nil
}

// ListAudit returns the status transitions of an incident in
// chronological order.
func (r *SQLiteRepository) ListAudit(ctx context.Context, incidentID string) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, incident_id, changed_by, old_status, new_status, changed_at
		 FROM incident_audit_log WHERE incident_id = ? ORDER BY id ASC`,
		incidentID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var changedAt string
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.ChangedBy,
			&e.OldStatus, &e.NewStatus, &changedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.ChangedAt, _ = time.Parse(time.RFC3339, changedAt) //nolint:errcheck // format is controlled
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

// Summary aggregates an organization's incidents by status and category.
func (r *SQLiteRepository) Summary(ctx context.Context, organizationID string) (*Summary, error) {
	summary := &Summary{
		ByStatus:   make(map[Status]int),
		ByCategory: make(map[Category]int),
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM incidents WHERE organization_id = ? GROUP BY status",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("aggregating incident statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status aggregate: %w", err)
		}
		summary.ByStatus[Status(status)] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status aggregates: %w", err)
	}

	catRows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM incidents
		 WHERE organization_id = ? AND category IS NOT NULL GROUP BY category`,
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("aggregating incident categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var category string
		var count int
		if err := catRows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scanning category aggregate: %w", err)
		}
		summary.ByCategory[Category(category)] = count
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category aggregates: %w", err)
	}

	return summary, nil
}

// ListAnalyzed returns incidents that reached a terminal state, newest
// first. This backs the reports view.
func (r *SQLiteRepository) ListAnalyzed(ctx context.Context, organizationID string, limit, offset int) (*ListResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM incidents WHERE organization_id = ? AND status IN (?, ?)",
		organizationID, string(StatusResolved), string(StatusRejected),
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting analyzed incidents: %w", err)
	}

	incidents, err := r.queryIncidents(ctx,
		"SELECT "+incidentColumns+` FROM incidents
		 WHERE organization_id = ? AND status IN (?, ?)
		 ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		organizationID, string(StatusResolved), string(StatusRejected), limit, offset)
	if err != nil {
		return nil, err
	}

	return &ListResult{Incidents: incidents, Total: total, Limit: limit, Offset: offset}, nil
}

// queryIncidents executes a query and scans all incident rows.
func (r *SQLiteRepository) queryIncidents(ctx context.Context, query string, args ...any) ([]Incident, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying incidents: %w", err)
	}
	defer rows.Close()

	incidents := []Incident{}
	for rows.Next() {
		inc, err := scanIncidentFrom(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incidents: %w", err)
	}
	return incidents, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanIncidentFrom scans an incident from any scanner (Row or Rows).
func scanIncidentFrom(s scanner) (*Incident, error) {
	var inc Incident
	var analystNote, category sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&inc.ID, &inc.OrganizationID, &inc.UserID, &inc.Status,
		&inc.UserDescription, &analystNote, &category, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("scanning incident: %w", err)
	}

	if analystNote.Valid {
		inc.AnalystNote = analystNote.String
	}
	if category.Valid {
		inc.Category = Category(category.String)
	}

	inc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	inc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &inc, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
