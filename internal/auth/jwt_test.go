package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/papertrade-be/internal/models"
)

func testSession(expires time.Time) models.Session {
	return models.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Username:  "alice",
		CreatedAt: time.Now().Add(-time.Minute),
		ExpiresAt: expires,
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret")
	token, err := s.Sign(testSession(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.ID != "sess-1" || claims.Subject != "user-1" || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSignerRejects(t *testing.T) {
	s := NewSigner("secret")

	expired, err := s.Sign(testSession(time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Parse(expired); err == nil {
		t.Error("expected expired token to be rejected")
	}
	if claims, err := s.ParseIgnoringExpiry(expired); err != nil || claims.ID != "sess-1" {
		t.Errorf("ParseIgnoringExpiry() = %v, %v", claims, err)
	}

	other, err := NewSigner("other").Sign(testSession(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Parse(other); err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
	if _, err := s.ParseIgnoringExpiry(other); err == nil {
		t.Error("expected bad signature to be rejected even when ignoring expiry")
	}

	if _, err := s.Parse("not-a-token"); err == nil {
		t.Error("expected garbage to be rejected")
	}
}

type stubValidator struct {
	sessions map[string]models.Session
}

func (v stubValidator) Validate(_ context.Context, token string) (models.Session, error) {
	if s, ok := v.sessions[token]; ok {
		return s, nil
	}
	return models.Session{}, errors.New("unknown session")
}

func TestRequireSession(t *testing.T) {
	v := stubValidator{sessions: map[string]models.Session{"good": testSession(time.Now().Add(time.Hour))}}
	var seen models.Session
	protected := RequireSession(v, "/login", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		cookie      string
		bearer      string
		wantStatus  int
		wantCleared bool
	}{
		{"no token", "", "", http.StatusSeeOther, false},
		{"bad cookie", "bad", "", http.StatusSeeOther, true},
		{"good cookie", "good", "", http.StatusOK, false},
		{"good bearer", "", "good", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = models.Session{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusSeeOther {
				if loc := rec.Header().Get("Location"); loc != "/login" {
					t.Errorf("Location = %q, want /login", loc)
				}
			} else if seen.UserID != "user-1" {
				t.Errorf("session not propagated, got %+v", seen)
			}
			cleared := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == CookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			if cleared != tt.wantCleared {
				t.Errorf("cookie cleared = %v, want %v", cleared, tt.wantCleared)
			}
		})
	}
}
