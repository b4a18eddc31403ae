package identity

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testCookieName = "incident_session"

func testService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		Sessions:      NewSessionRepository(db),
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		CookieName:    testCookieName,
		JWTSecret:     testSecret,
	})
}

func requestWithBearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func requestWithCookie(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	return r
}

func TestService_ResolveSession_Bearer(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "bearer@example.com")
	_, raw := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	data, err := svc.ResolveSession(context.Background(), requestWithBearer(raw))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data == nil {
		t.Fatal("ResolveSession() = nil, want session data")
	}
	if data.User.ID != user.ID {
		t.Errorf("User.ID = %q, want %q", data.User.ID, user.ID)
	}
}

func TestService_ResolveSession_Cookie(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "cookie@example.com")
	_, raw := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	data, err := svc.ResolveSession(context.Background(), requestWithCookie(raw))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data == nil || data.User.ID != user.ID {
		t.Fatal("cookie session did not resolve")
	}
}

func TestService_ResolveSession_Anonymous(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	data, err := svc.ResolveSession(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data != nil {
		t.Error("ResolveSession() without credentials should be nil")
	}
}

func TestService_ResolveSession_UnknownToken(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	data, err := svc.ResolveSession(context.Background(), requestWithBearer("deadbeef"))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data != nil {
		t.Error("unknown token should resolve to nil, not error")
	}
}

func TestService_ResolveSession_Expired(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "expired@example.com")
	_, raw := seedSession(t, db, user.ID, "", time.Now().Add(-time.Minute))

	data, err := svc.ResolveSession(context.Background(), requestWithBearer(raw))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data != nil {
		t.Error("expired session should resolve to nil")
	}
}

func TestService_ResolveSession_AccessToken(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "jwt@example.com")
	session, _ := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	signed, err := GenerateAccessToken(user.ID, session.ID, testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	data, err := svc.ResolveSession(context.Background(), requestWithBearer(signed))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data == nil {
		t.Fatal("access token did not resolve")
	}
	if data.Session.ID != session.ID {
		t.Errorf("Session.ID = %q, want %q", data.Session.ID, session.ID)
	}
}

func TestService_ResolveSession_AccessTokenUserMismatch(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "victim@example.com")
	session, _ := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	// Token claims a different subject than the session's owner.
	signed, err := GenerateAccessToken("usr-attacker", session.ID, testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	data, err := svc.ResolveSession(context.Background(), requestWithBearer(signed))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data != nil {
		t.Error("mismatched subject should resolve to nil")
	}
}

func TestService_ResolveSession_ForgedAccessToken(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "forged@example.com")
	session, _ := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	forged, err := GenerateAccessToken(user.ID, session.ID, "wrong-secret-that-is-long-enough!!!!", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	data, err := svc.ResolveSession(context.Background(), requestWithBearer(forged))
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if data != nil {
		t.Error("forged token should resolve to nil")
	}
}

func TestService_ResolveSession_StorageFault(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "fault@example.com")
	_, raw := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))

	// Closing the database forces a storage error, which must surface
	// as an error rather than an anonymous resolution.
	db.Close()

	_, err := svc.ResolveSession(context.Background(), requestWithBearer(raw))
	if err == nil {
		t.Error("storage fault should return an error")
	}
}

func TestService_ActiveOrganization(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	user := seedUser(t, db, "active@example.com")
	org := seedOrganization(t, db, "acme")

	t.Run("no active organization", func(t *testing.T) {
		session, _ := seedSession(t, db, user.ID, "", time.Now().Add(time.Hour))
		octx, err := svc.ActiveOrganization(context.Background(), &SessionData{User: *user, Session: *session})
		if err != nil {
			t.Fatalf("ActiveOrganization() error = %v", err)
		}
		if octx != nil {
			t.Error("expected nil organization context")
		}
	})

	t.Run("resolves active organization", func(t *testing.T) {
		session, _ := seedSession(t, db, user.ID, org.ID, time.Now().Add(time.Hour))
		octx, err := svc.ActiveOrganization(context.Background(), &SessionData{User: *user, Session: *session})
		if err != nil {
			t.Fatalf("ActiveOrganization() error = %v", err)
		}
		if octx == nil {
			t.Fatal("expected organization context")
		}
		if octx.ID != org.ID || octx.Slug != "acme" {
			t.Errorf("context = %+v, want org %s", octx, org.ID)
		}
	})
}

func TestService_Membership(t *testing.T) {
	db := testDB(t)
	svc := testService(t, db)

	org := seedOrganization(t, db, "acme")
	member := seedUser(t, db, "member@example.com")
	outsider := seedUser(t, db, "outsider@example.com")
	seedMember(t, db, org.ID, member.ID, "analityk")

	m, err := svc.Membership(context.Background(), org.ID, member.ID)
	if err != nil {
		t.Fatalf("Membership() error = %v", err)
	}
	if m == nil || m.Role != "analityk" {
		t.Errorf("Membership() = %+v, want analityk role", m)
	}

	m, err = svc.Membership(context.Background(), org.ID, outsider.ID)
	if err != nil {
		t.Fatalf("Membership() error = %v", err)
	}
	if m != nil {
		t.Error("non-member should resolve to nil, not error")
	}
}
