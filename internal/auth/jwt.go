package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/rs/zerolog/log"
)

// CookieName is the cookie carrying the session token.
const CookieName = "session"

// Claims defines the JWT claims structure. ID is the session id, Subject the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Signer signs and verifies session tokens with an HMAC key.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer from a shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign creates a token for the given session.
func (s *Signer) Sign(session models.Session) (string, error) {
	claims := &Claims{
		Username: session.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Parse verifies the signature and registered claims of tokenStr.
func (s *Signer) Parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("token without session")
	}
	return claims, nil
}

// ParseIgnoringExpiry verifies the signature only, for revoking stale tokens.
func (s *Signer) ParseIgnoringExpiry(tokenStr string) (*Claims, error) {
	return s.Parse(tokenStr, jwt.WithoutClaimsValidation())
}

// SessionValidator resolves a token to a live server-side session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (models.Session, error)
}

type contextKey string

const sessionKey = contextKey("session")

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey).(models.Session)
	return s, ok
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// TokenFrom reads the token from the Authorization header or the session cookie.
func TokenFrom(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

// RequireSession protects routes; requests without a live session are
// redirected to loginPath and their stale cookie is cleared.
func RequireSession(v SessionValidator, loginPath string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFrom(r)
			if tokenStr == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			session, err := v.Validate(r.Context(), tokenStr)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session")
				ClearCookie(w, secure)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
