package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/sentinelops/incident-core/internal/authz"
	"github.com/sentinelops/incident-core/internal/identity"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// sessionResponse is the body for GET /auth/session.
type sessionResponse struct {
	Authenticated bool                          `json:"authenticated"`
	User          *identity.User                `json:"user,omitempty"`
	Session       *sessionInfo                  `json:"session,omitempty"`
	Organization  *identity.OrganizationContext `json:"organization,omitempty"`
}

// sessionInfo is the client-safe subset of a session.
type sessionInfo struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenResponse is the body for POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleSession reports who the caller is. Anonymous callers get a 200
// with authenticated=false rather than a 401, so clients can probe their
// state without error handling.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	data := authz.SessionFrom(r.Context())
	if data == nil {
		writeSuccess(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	resp := sessionResponse{
		Authenticated: true,
		User:          &data.User,
		Session: &sessionInfo{
			ID:        data.Session.ID,
			ExpiresAt: data.Session.ExpiresAt,
		},
	}

	org, err := s.provider.ActiveOrganization(r.Context(), data)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	resp.Organization = org

	writeSuccess(w, http.StatusOK, resp)
}

// handleToken exchanges the caller's session for a short-lived JWT access
// token bound to that session. The token is only honoured while the
// backing session exists, so revoking the session revokes the token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	data := authz.SessionFrom(r.Context())

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	signed, err := identity.GenerateAccessToken(data.User.ID, data.Session.ID, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("access token generation failed", "error", err, "user_id", data.User.ID)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to generate token")
		return
	}

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	writeSuccess(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing its credentials in the URL. The ticket captures the
// caller's identity and active organization at issue time.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	data := authz.SessionFrom(r.Context())

	org, err := s.provider.ActiveOrganization(r.Context(), data)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	entry := ticketEntry{
		userID:    data.User.ID,
		expiresAt: time.Now().Add(ticketTTL),
	}
	if org != nil {
		entry.organizationID = org.ID
	}
	ticket := s.tickets.issue(entry)

	writeSuccess(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	userID         string
	organizationID string
	expiresAt      time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue stores a new ticket and returns its opaque value.
func (t *ticketStore) issue(entry ticketEntry) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = entry
	t.mu.Unlock()
	return ticket
}

// validate checks if a ticket is valid and consumes it (single-use).
func (t *ticketStore) validate(ticket string) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(t.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// clean removes expired tickets from the store.
func (t *ticketStore) clean() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// cleanLoop runs clean periodically until the context is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.clean()
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
