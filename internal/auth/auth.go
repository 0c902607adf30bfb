// Package auth is the account service: sign-up, sign-in, sessions and
// password reset, stored in SQLite.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/storage"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("Invalid account, please signup.")
	ErrEmailInUse         = errors.New("email address is already in use")
	ErrInvalidEmail       = errors.New("email address is invalid")
	ErrWeakPassword       = fmt.Errorf("password should be at least %d characters", minPasswordLength)
	ErrUnauthenticated    = errors.New("not signed in")
	ErrInvalidResetToken  = errors.New("password reset link is invalid or has expired")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at INTEGER NOT NULL
	)`,
}

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is the account service.
type Service struct {
	db         *sql.DB
	bus        *events.Bus
	mailer     Mailer
	sessionTTL time.Duration
	resetTTL   time.Duration
	resetURL   string
	hashCost   int
	now        func() time.Time
}

// New migrates the account tables and returns the service. A nil mailer
// falls back to LogMailer.
func New(db *sql.DB, bus *events.Bus, cfg config.AuthConfig, mailer Mailer) (*Service, error) {
	if err := storage.Migrate(db, schema...); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{
		db:         db,
		bus:        bus,
		mailer:     mailer,
		sessionTTL: cfg.SessionTTL.Duration(),
		resetTTL:   cfg.ResetTTL.Duration(),
		resetURL:   cfg.ResetURL,
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
	}, nil
}

// Mailer returns the mailer delivering reset links.
func (s *Service) Mailer() Mailer { return s.mailer }

// SignUp creates an account and signs it in. name may be empty.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLength {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		CreatedAt: s.now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(hash), u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, "", ErrEmailInUse
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	slog.Info("account created", "user", u.ID)

	token, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// SignIn checks the credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.TrimSpace(email)

	var (
		u    User
		hash string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &hash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	u.CreatedAt = time.Unix(0, ts)

	token, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return &u, token, nil
}

// SignOut closes the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.publish(token, "")
	}
	return nil
}

// UserForToken returns the user signed in with token.
func (s *Service) UserForToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var (
		u         User
		ts, expAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at, s.expires_at
		FROM auth_sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token,
	).Scan(&u.ID, &u.Name, &u.Email, &ts, &expAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if s.now().UnixNano() > expAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
		return nil, ErrUnauthenticated
	}
	u.CreatedAt = time.Unix(0, ts)
	return &u, nil
}

// UpdateName changes the display name of a user.
func (s *Service) UpdateName(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, strings.TrimSpace(name), userID)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a reset link when the email belongs to an
// account. Unknown emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	var userID string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	token := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, s.now().Add(s.resetTTL).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, email, s.resetLink(token)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token and signs out
// every session of the account. It returns the account's user id.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if len(newPassword) < minPasswordLength {
		return "", ErrWeakPassword
	}

	var (
		userID string
		expAt  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM password_resets WHERE token = ?`, token,
	).Scan(&userID, &expAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", fmt.Errorf("lookup reset token: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM password_resets WHERE token = ?`, token); err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	if s.now().UnixNano() > expAt {
		return "", ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(hash), userID); err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}

	tokens, err := s.sessionTokens(ctx, userID)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = ?`, userID); err != nil {
		return "", fmt.Errorf("revoke sessions: %w", err)
	}
	for _, t := range tokens {
		s.publish(t, "")
	}
	slog.Info("password reset", "user", userID, "revoked_sessions", len(tokens))
	return userID, nil
}

func (s *Service) createSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, s.now().Add(s.sessionTTL).UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.publish(token, userID)
	return token, nil
}

func (s *Service) sessionTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM auth_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Service) resetLink(token string) string {
	if s.resetURL == "" {
		return token
	}
	sep := "?"
	if strings.Contains(s.resetURL, "?") {
		sep = "&"
	}
	return s.resetURL + sep + "token=" + token
}

func (s *Service) publish(token, userID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTypedEventForUser(events.SourceAuth,
		events.AuthChangedPayload{Token: token, UserID: userID}, userID))
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
