package identity

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// emailPattern is a pragmatic format check, not full RFC 5322 validation.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// User represents an authenticated human account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Image         string    `json:"image,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session represents a stored authentication session.
// The raw token is held by the client; only its SHA-256 hash is stored.
type Session struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	TokenHash            string    `json:"-"` // never serialised
	ActiveOrganizationID string    `json:"active_organization_id,omitempty"`
	IPAddress            string    `json:"ip_address,omitempty"`
	UserAgent            string    `json:"user_agent,omitempty"`
	ExpiresAt            time.Time `json:"expires_at"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Expired returns true if the session has passed its expiry time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Organization represents a tenant.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Logo      string    `json:"logo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member represents a user's membership in an organization.
// A user holds at most one membership per organization.
type Member struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionData is the resolved identity for a request: the session row
// plus the user it belongs to.
type SessionData struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

// OrganizationContext is the resolved active organization for a session.
type OrganizationContext struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ID prefixes for the entities owned by this package.
const (
	userIDPrefix         = "usr-"
	sessionIDPrefix      = "ses-"
	organizationIDPrefix = "org-"
	memberIDPrefix       = "mem-"
)

// idSuffixLength is the number of UUID characters kept after the prefix.
const idSuffixLength = 16

// NewUserID generates a prefixed identifier for a user.
func NewUserID() string { return userIDPrefix + uuid.NewString()[:idSuffixLength] }

// NewSessionID generates a prefixed identifier for a session.
func NewSessionID() string { return sessionIDPrefix + uuid.NewString()[:idSuffixLength] }

// NewOrganizationID generates a prefixed identifier for an organization.
func NewOrganizationID() string { return organizationIDPrefix + uuid.NewString()[:idSuffixLength] }

// NewMemberID generates a prefixed identifier for a membership.
func NewMemberID() string { return memberIDPrefix + uuid.NewString()[:idSuffixLength] }

// Sentinel errors for identity operations.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrSlugExists           = errors.New("organization slug already exists")
	ErrTokenInvalid         = errors.New("invalid token")
)
