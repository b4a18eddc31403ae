package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sentinelops/incident-core/internal/identity"
)

func TestSessionEndpoint_Anonymous(t *testing.T) {
	router, _, _, _ := testServer(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/auth/session", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (anonymous probes are not errors)", rec.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	if resp.Authenticated {
		t.Error("authenticated = true for anonymous caller")
	}
	if resp.User != nil || resp.Organization != nil {
		t.Error("anonymous response leaked user or organization")
	}
}

func TestSessionEndpoint_Authenticated(t *testing.T) {
	router, provider, _, _ := testServer(t)
	token := provider.addUser("usr-rep", "org-a", "pracownik")

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/auth/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	if !resp.Authenticated {
		t.Fatal("authenticated = false for valid session")
	}
	if resp.User == nil || resp.User.ID != "usr-rep" {
		t.Errorf("user = %+v, want usr-rep", resp.User)
	}
	if resp.Session == nil || resp.Session.ID != "ses-usr-rep" {
		t.Errorf("session = %+v", resp.Session)
	}
	if resp.Organization == nil || resp.Organization.ID != "org-a" {
		t.Errorf("organization = %+v, want org-a", resp.Organization)
	}
}

func TestTokenEndpoint(t *testing.T) {
	router, provider, _, _ := testServer(t)
	token := provider.addUser("usr-rep", "org-a", "pracownik")

	// Anonymous callers cannot mint tokens.
	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/token", "", nil)
	expectDenied(t, rec, env, http.StatusUnauthorized, "UNAUTHORIZED")

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/auth/token", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decoding token response: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want 900", resp.ExpiresIn)
	}

	// The minted token carries the caller's identity and session binding.
	claims, err := identity.ParseAccessToken(resp.AccessToken, testJWTSecret)
	if err != nil {
		t.Fatalf("parsing minted token: %v", err)
	}
	if claims.Subject != "usr-rep" {
		t.Errorf("subject = %q, want usr-rep", claims.Subject)
	}
	if claims.SessionID != "ses-usr-rep" {
		t.Errorf("session id = %q, want ses-usr-rep", claims.SessionID)
	}
}

func TestWSTicketEndpoint(t *testing.T) {
	router, provider, _, _, srv := testServerFull(t)
	token := provider.addUser("usr-rep", "org-a", "pracownik")

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/auth/ws-ticket", "", nil)
	expectDenied(t, rec, env, http.StatusUnauthorized, "UNAUTHORIZED")

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/auth/ws-ticket", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decoding ticket response: %v", err)
	}
	if resp.Ticket == "" {
		t.Fatal("empty ticket")
	}
	if resp.ExpiresIn != int(ticketTTL.Seconds()) {
		t.Errorf("expires_in = %d, want %d", resp.ExpiresIn, int(ticketTTL.Seconds()))
	}

	// The ticket pins the identity and organization captured at issue time,
	// and is consumed on first use.
	entry, ok := srv.tickets.validate(resp.Ticket)
	if !ok {
		t.Fatal("freshly issued ticket did not validate")
	}
	if entry.userID != "usr-rep" || entry.organizationID != "org-a" {
		t.Errorf("entry = %+v", entry)
	}
	if _, ok := srv.tickets.validate(resp.Ticket); ok {
		t.Error("ticket validated twice, want single use")
	}
}

func TestTicketStore_Expiry(t *testing.T) {
	store := newTicketStore()

	ticket := store.issue(ticketEntry{
		userID:    "usr-1",
		expiresAt: time.Now().Add(-time.Second),
	})
	if _, ok := store.validate(ticket); ok {
		t.Error("expired ticket validated")
	}

	// clean drops expired tickets without consuming live ones.
	live := store.issue(ticketEntry{userID: "usr-2", expiresAt: time.Now().Add(time.Minute)})
	store.issue(ticketEntry{userID: "usr-3", expiresAt: time.Now().Add(-time.Minute)})
	store.clean()
	if _, ok := store.validate(live); !ok {
		t.Error("clean consumed a live ticket")
	}
}
