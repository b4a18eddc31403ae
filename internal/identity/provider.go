package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider resolves request credentials into identity data.
//
// The contract distinguishes "no identity" from "cannot tell":
// absent, malformed, or expired credentials resolve to (nil, nil);
// a non-nil error means the lookup itself failed (storage fault) and
// callers must fail closed rather than treat the request as anonymous.
type Provider interface {
	// ResolveSession resolves the request's bearer token or session cookie
	// into the session and its user. Returns (nil, nil) for anonymous requests.
	ResolveSession(ctx context.Context, r *http.Request) (*SessionData, error)

	// ActiveOrganization resolves the session's active organization.
	// Returns (nil, nil) when the session has none.
	ActiveOrganization(ctx context.Context, data *SessionData) (*OrganizationContext, error)

	// Membership resolves the user's membership in an organization.
	// Returns (nil, nil) when the user is not a member.
	Membership(ctx context.Context, organizationID, userID string) (*Member, error)
}

// Service is the SQLite-backed Provider implementation.
type Service struct {
	sessions   SessionRepository
	users      UserRepository
	orgs       OrganizationRepository
	cookieName string
	jwtSecret  string
	now        func() time.Time
}

// ServiceConfig contains the collaborators and settings for a Service.
type ServiceConfig struct {
	Sessions      SessionRepository
	Users         UserRepository
	Organizations OrganizationRepository

	// CookieName is the cookie carrying the opaque session token.
	CookieName string

	// JWTSecret verifies signed access tokens.
	JWTSecret string
}

// NewService creates a Provider backed by the identity repositories.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		sessions:   cfg.Sessions,
		users:      cfg.Users,
		orgs:       cfg.Organizations,
		cookieName: cfg.CookieName,
		jwtSecret:  cfg.JWTSecret,
		now:        time.Now,
	}
}

// ResolveSession implements Provider.
//
// Token extraction order: Authorization bearer header, then session cookie.
// Signed access tokens are recognised by their JWT shape and verified by
// signature; the referenced session row is still loaded so that deleting
// a session invalidates outstanding access tokens.
func (s *Service) ResolveSession(ctx context.Context, r *http.Request) (*SessionData, error) {
	token := s.extractToken(r)
	if token == "" {
		return nil, nil
	}

	session, err := s.lookupSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Expired(s.now()) {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Session row outlived its user; treat as anonymous.
			return nil, nil
		}
		return nil, fmt.Errorf("loading session user: %w", err)
	}

	return &SessionData{User: *user, Session: *session}, nil
}

// ActiveOrganization implements Provider.
func (s *Service) ActiveOrganization(ctx context.Context, data *SessionData) (*OrganizationContext, error) {
	if data == nil || data.Session.ActiveOrganizationID == "" {
		return nil, nil
	}

	org, err := s.orgs.GetByID(ctx, data.Session.ActiveOrganizationID)
	if err != nil {
		if errors.Is(err, ErrOrganizationNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading active organization: %w", err)
	}

	return &OrganizationContext{ID: org.ID, Name: org.Name, Slug: org.Slug}, nil
}

// Membership implements Provider.
func (s *Service) Membership(ctx context.Context, organizationID, userID string) (*Member, error) {
	member, err := s.orgs.GetMember(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	return member, nil
}

// extractToken pulls the raw credential from the request.
func (s *Service) extractToken(r *http.Request) string {
	const bearerPrefix = "Bearer "

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix)); token != "" {
			return token
		}
	}

	if s.cookieName != "" {
		if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	return ""
}

// lookupSession finds the session for a raw credential.
// JWT-shaped tokens take the claims path; everything else is treated
// as an opaque session token and matched by hash.
func (s *Service) lookupSession(ctx context.Context, token string) (*Session, error) {
	if strings.Count(token, ".") == 2 {
		claims, err := ParseAccessToken(token, s.jwtSecret)
		if err != nil {
			// Forged or expired JWT: anonymous, not a fault.
			return nil, nil
		}

		session, err := s.sessions.GetByID(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("loading session by id: %w", err)
		}

		// The token must belong to the session it names.
		if session.UserID != claims.Subject {
			return nil, nil
		}
		return session, nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session by token: %w", err)
	}
	return session, nil
}
