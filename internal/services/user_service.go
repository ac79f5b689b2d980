package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, password, confirmation string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// UserService provides account registration and credential checks.
type UserService struct {
	db           *database.DB
	events       EventServiceProvider
	startingCash decimal.Decimal
	cost         int
}

// NewUserService creates a new UserService. New accounts start with startingCash.
func NewUserService(db *database.DB, events EventServiceProvider, startingCash decimal.Decimal) *UserService {
	return &UserService{
		db:           db,
		events:       events,
		startingCash: startingCash,
		cost:         bcrypt.DefaultCost,
	}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id, username, cash, created_at FROM users WHERE id = ?"), id)
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Cash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, storeErr("get user", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by their exact username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	users, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if len(users) == 0 {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	users[0].PasswordHash = ""
	return users[0], nil
}

func (s *UserService) findByUsername(ctx context.Context, username string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind("SELECT id, username, password_hash, cash, created_at FROM users WHERE username = ?"), username)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Cash, &u.CreatedAt); err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate users", err)
	}
	return users, nil
}

func (s *UserService) usernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT COUNT(*) FROM users WHERE username = ?"), username).Scan(&n)
	if err != nil {
		return false, storeErr("check username", err)
	}
	return n > 0, nil
}

// Register creates a new account, hashing its password.
func (s *UserService) Register(ctx context.Context, username, password, confirmation string) (models.User, error) {
	switch {
	case username == "":
		return models.User{}, missing("username")
	case password == "":
		return models.User{}, missing("password")
	case confirmation == "":
		return models.User{}, missing("password confirmation")
	case password != confirmation:
		return models.User{}, ErrPasswordMismatch
	}

	taken, err := s.usernameTaken(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if taken {
		return models.User{}, ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		Cash:         s.startingCash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO users (id, username, password_hash, cash, created_at) VALUES (?, ?, ?, ?, ?)"),
		user.ID, user.Username, user.PasswordHash, user.Cash, user.CreatedAt)
	if err != nil {
		// The UNIQUE constraint decides races between two registrations.
		if taken, checkErr := s.usernameTaken(ctx, username); checkErr == nil && taken {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, storeErr("insert user", err)
	}

	s.audit(ctx, "user.register", fmt.Sprintf("Account %q registered.", user.Username), user.ID)

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	switch {
	case username == "":
		return models.User{}, missing("username")
	case password == "":
		return models.User{}, missing("password")
	}

	users, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if len(users) != 1 {
		return models.User{}, ErrInvalidCredentials
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.audit(ctx, "user.login.fail", "Failed login attempt.", user.ID)
		return models.User{}, ErrInvalidCredentials
	}

	s.audit(ctx, "user.login", "Logged in.", user.ID)

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) audit(ctx context.Context, eventType, message, userID string) {
	if s.events == nil {
		return
	}
	level := "info"
	if eventType == "user.login.fail" {
		level = "warn"
	}
	if err := s.events.CreateEvent(ctx, eventType, level, message, &userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event", eventType).Msg("Failed to record event")
	}
}
