// Package storage keeps everything the service persists between requests:
// search history, accounts, sessions, per-user settings and feedback.
//
// Each concern sits behind its own interface so that the HTTP layer does not
// care whether records live in memory, in a BoltDB file, or (for sessions)
// in Redis.
package storage

import (
	"time"

	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/ml"
)

// SearchResult is the outcome stored with a search.
type SearchResult struct {
	Label      bool    `json:"habitable"`
	Confidence float64 `json:"confidence"`
	Analysis   string  `json:"analysis"`
}

// SearchRecord is one classified observation. It outlives the request that
// produced it.
type SearchRecord struct {
	ID          string               `json:"search_id"`
	Timestamp   time.Time            `json:"timestamp"`
	UserID      string               `json:"user_id,omitempty"`
	Language    string               `json:"language"`
	Parameters  features.Observation `json:"parameters"`
	Result      SearchResult         `json:"result"`
	Attribution *ml.Attribution      `json:"shap,omitempty"`
	OutOfRange  []string             `json:"out_of_range,omitempty"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	RegisteredAt time.Time `json:"registration_date"`
	SearchCount  int       `json:"searches_count"`
}

// Session binds an opaque token to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether s is past its expiry. A zero expiry never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Settings are the preferences of an anonymous or registered user id.
type Settings struct {
	UserID    string    `json:"user_id"`
	Language  string    `json:"language"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Feedback is a message left through the help form.
type Feedback struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
}

// HistoryStore is the append-only search log.
type HistoryStore interface {
	AppendSearch(rec SearchRecord) error
	GetSearch(id string) (SearchRecord, error)
	// RecentSearches returns up to limit records, oldest first.
	RecentSearches(limit int) ([]SearchRecord, error)
	// SearchesByOwner returns up to limit of userID's records, oldest first.
	SearchesByOwner(userID string, limit int) ([]SearchRecord, error)
	CountSearches() (int, error)
}

// UserStore keeps accounts, unique by email.
type UserStore interface {
	CreateUser(u User) error
	UserByEmail(email string) (User, error)
	UserByID(id string) (User, error)
	IncrementSearchCount(id string) error
}

// SessionStore keeps login sessions.
type SessionStore interface {
	CreateSession(s Session) error
	GetSession(token string) (Session, error)
	DeleteSession(token string) error
}

// SettingsStore keeps preferences per user id.
type SettingsStore interface {
	PutSettings(s Settings) error
	GetSettings(userID string) (Settings, error)
}

// FeedbackStore keeps help-form messages.
type FeedbackStore interface {
	AddFeedback(f Feedback) error
	// FeedbackStats returns the total count and the latest n messages,
	// oldest first.
	FeedbackStats(n int) (int, []Feedback, error)
}

// Store bundles every concern for backends that implement all of them.
type Store interface {
	HistoryStore
	UserStore
	SessionStore
	SettingsStore
	FeedbackStore
	Close() error
}

// tail returns the last n elements of s.
func tail[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
