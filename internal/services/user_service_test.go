package services

import (
	"context"
	"errors"
	"testing"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewEventService(db)
	s := newTestUserService(db, events)

	u, err := s.Register(ctx, "alice", "hunter2", "hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == "" || u.Username != "alice" || u.PasswordHash != "" {
		t.Errorf("Register() = %+v", u)
	}
	if !u.Cash.Equal(dec("10000")) {
		t.Errorf("starting cash = %s, want 10000", u.Cash)
	}

	var stored string
	if err := db.QueryRow("SELECT password_hash FROM users WHERE id = ?", u.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored == "" || stored == "hunter2" {
		t.Errorf("password stored as %q, want a hash", stored)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil || got.Username != "alice" {
		t.Errorf("GetUserByID() = %+v, %v", got, err)
	}
	got, err = s.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID || got.PasswordHash != "" {
		t.Errorf("GetUserByUsername() = %+v, %v", got, err)
	}

	recent, err := events.GetRecentEvents(ctx, u.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Type != "user.register" {
		t.Errorf("events = %+v, want one user.register", recent)
	}
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := newTestUserService(db, nil)
	if _, err := s.Register(ctx, "taken", "pw", "pw"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name                      string
		username, password, again string
		wantErr                   error
		wantMsg                   string
	}{
		{"blank username", "", "pw", "pw", ErrMissingField, "must provide username"},
		{"blank password", "bob", "", "pw", ErrMissingField, "must provide password"},
		{"blank confirmation", "bob", "pw", "", ErrMissingField, "must provide password confirmation"},
		{"mismatch", "bob", "pw", "other", ErrPasswordMismatch, "passwords do not match"},
		{"taken", "taken", "pw", "pw", ErrUsernameTaken, "username already in use"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.username, tt.password, tt.again)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("%d users stored, want 1", n)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewEventService(db)
	s := newTestUserService(db, events)
	u, err := s.Register(ctx, "alice", "hunter2", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Authenticate(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "" {
		t.Errorf("Authenticate() = %+v", got)
	}

	tests := []struct {
		name               string
		username, password string
		wantErr            error
	}{
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unknown user", "mallory", "hunter2", ErrInvalidCredentials},
		{"case matters", "Alice", "hunter2", ErrInvalidCredentials},
		{"blank username", "", "hunter2", ErrMissingField},
		{"blank password", "alice", "", ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Authenticate(ctx, tt.username, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	recent, err := events.GetRecentEvents(ctx, u.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	var fails int
	for _, e := range recent {
		if e.Type == "user.login.fail" {
			fails++
			if e.Level != "warn" {
				t.Errorf("failed login logged at %q", e.Level)
			}
		}
	}
	if fails != 1 {
		t.Errorf("%d failed logins recorded, want 1", fails)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestUserService(newTestDB(t), nil)
	if _, err := s.GetUserByID(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByUsername(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
}
