package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/models"
)

// SessionServiceProvider defines the interface for session services.
type SessionServiceProvider interface {
	Issue(ctx context.Context, user models.User) (token string, expiresAt time.Time, err error)
	Validate(ctx context.Context, token string) (models.Session, error)
	Revoke(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionService keeps login sessions in the database. The token handed to
// the browser is a signed JWT whose jti names the session row, so a
// session dies with its row even while the token is unexpired.
type SessionService struct {
	db     *database.DB
	signer *auth.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *database.DB, signer *auth.Signer, ttl time.Duration) *SessionService {
	return &SessionService{db: db, signer: signer, ttl: ttl, now: time.Now}
}

// Issue starts a session for user and returns its token.
func (s *SessionService) Issue(ctx context.Context, user models.User) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)"),
		session.ID, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	if err != nil {
		return "", time.Time{}, storeErr("insert session", err)
	}

	token, err := s.signer.Sign(session)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, session.ExpiresAt, nil
}

// Validate resolves token to its live session.
func (s *SessionService) Validate(ctx context.Context, token string) (models.Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	var (
		session            models.Session
		created, expiresAt int64
	)
	err = s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT s.id, s.user_id, u.username, s.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`), claims.ID).
		Scan(&session.ID, &session.UserID, &session.Username, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, fmt.Errorf("%w: revoked", ErrSessionInvalid)
	}
	if err != nil {
		return models.Session{}, storeErr("get session", err)
	}
	session.CreatedAt = time.Unix(created, 0).UTC()
	session.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	if session.UserID != claims.Subject {
		return models.Session{}, fmt.Errorf("%w: subject mismatch", ErrSessionInvalid)
	}
	if !s.now().Before(session.ExpiresAt) {
		return models.Session{}, fmt.Errorf("%w: expired", ErrSessionInvalid)
	}
	return session, nil
}

// Revoke ends the session named by token. Unparseable tokens are ignored.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	claims, err := s.signer.ParseIgnoringExpiry(token)
	if err != nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE id = ?"), claims.ID); err != nil {
		return storeErr("delete session", err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired at or before now.
func (s *SessionService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.Unix())
	if err != nil {
		return 0, storeErr("purge sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("purge sessions", err)
	}
	return n, nil
}
