// Package auth implements demonstration-grade accounts: bcrypt password
// hashes and opaque random session tokens held in a SessionStore.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32
	// TokenQueryParam is the query parameter that may carry a session token.
	TokenQueryParam = "session_token"
)

// Registration is the payload of a sign-up request. bcrypt hashes at most 72
// bytes of a password.
type Registration struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// Credentials is the payload of a login request.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Service issues and resolves sessions for registered users.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	validate *validator.Validate
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

// NewService returns a Service. A zero ttl issues sessions that never expire.
func NewService(users storage.UserStore, sessions storage.SessionStore, ttl time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		validate: common.NewValidator(),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Register creates an account and opens a session for it. Emails are unique
// case-insensitively; a taken email yields common.ErrConflict.
func (s *Service) Register(reg Registration) (storage.User, storage.Session, error) {
	reg.Email = normalizeEmail(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	if err := common.CheckStruct(s.validate, reg, "invalid registration"); err != nil {
		return storage.User{}, storage.Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return storage.User{}, storage.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(user); err != nil {
		return storage.User{}, storage.Session{}, err
	}

	sess, err := s.openSession(user.ID)
	if err != nil {
		return storage.User{}, storage.Session{}, err
	}
	log.Info().Str("user_id", user.ID).Msg("User registered")
	return user, sess, nil
}

// Login checks the credentials and opens a new session. Unknown emails and
// wrong passwords both yield common.ErrUnauthorized.
func (s *Service) Login(c Credentials) (storage.User, storage.Session, error) {
	if err := common.CheckStruct(s.validate, c, "invalid credentials"); err != nil {
		return storage.User{}, storage.Session{}, err
	}

	user, err := s.users.UserByEmail(normalizeEmail(c.Email))
	if errors.Is(err, common.ErrNotFound) {
		return storage.User{}, storage.Session{}, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}
	if err != nil {
		return storage.User{}, storage.Session{}, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(c.Password)) != nil {
		return storage.User{}, storage.Session{}, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}

	sess, err := s.openSession(user.ID)
	if err != nil {
		return storage.User{}, storage.Session{}, err
	}
	return user, sess, nil
}

// Logout ends the session. Unknown tokens are ignored.
func (s *Service) Logout(token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(token)
}

// Resolve returns the user that owns token.
func (s *Service) Resolve(token string) (storage.User, error) {
	if token == "" {
		return storage.User{}, fmt.Errorf("no session: %w", common.ErrUnauthorized)
	}
	sess, err := s.sessions.GetSession(token)
	if errors.Is(err, common.ErrNotFound) {
		return storage.User{}, fmt.Errorf("unknown session: %w", common.ErrUnauthorized)
	}
	if err != nil {
		return storage.User{}, err
	}

	user, err := s.users.UserByID(sess.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return storage.User{}, fmt.Errorf("session owner gone: %w", common.ErrUnauthorized)
	}
	return user, err
}

func (s *Service) openSession(userID string) (storage.Session, error) {
	token, err := newToken()
	if err != nil {
		return storage.Session{}, err
	}
	now := s.now()
	sess := storage.Session{Token: token, UserID: userID, CreatedAt: now}
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}
	if err := s.sessions.CreateSession(sess); err != nil {
		return storage.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenFromRequest returns the session token of r: the Bearer value of the
// Authorization header, or else the session_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get(TokenQueryParam)
}
