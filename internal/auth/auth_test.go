package auth

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(ttl time.Duration) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	svc := NewService(store, store, ttl)
	svc.cost = bcrypt.MinCost
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newTestService(time.Hour)

	user, sess, err := svc.Register(Registration{Username: " vera ", Email: "Vera@Example.com ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "vera", user.Username)
	assert.Equal(t, "vera@example.com", user.Email)
	assert.NotEqual(t, []byte("s3cret"), user.PasswordHash)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, user.ID, sess.UserID)
	assert.True(t, sess.ExpiresAt.After(sess.CreatedAt))

	stored, err := store.UserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, stored.Email)

	loggedIn, sess2, err := svc.Login(Credentials{Email: "VERA@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEqual(t, sess.Token, sess2.Token)

	resolved, err := svc.Resolve(sess2.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(0)

	_, _, err := svc.Register(Registration{Username: "a", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, _, err = svc.Register(Registration{Username: "b", Email: "A@EXAMPLE.COM", Password: "pw"})
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(0)

	tests := []struct {
		name   string
		reg    Registration
		fields []string
	}{
		{"empty", Registration{}, []string{"username", "email", "password"}},
		{"bad email", Registration{Username: "a", Email: "nope", Password: "pw"}, []string{"email"}},
		{"long password", Registration{Username: "a", Email: "a@example.com", Password: string(make([]byte, 73))}, []string{"password"}},
		{"multibyte password", Registration{Username: "a", Email: "a@example.com", Password: strings.Repeat("ж", 40)}, []string{"password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(tt.reg)
			require.Error(t, err)
			var verr *common.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.ElementsMatch(t, tt.fields, verr.Fields)
		})
	}

	// 24 runes, 48 bytes
	_, _, err := svc.Register(Registration{Username: "a", Email: "ru@example.com", Password: strings.Repeat("ж", 24)})
	assert.NoError(t, err)
}

func TestLogin_Failures(t *testing.T) {
	svc, _ := newTestService(0)
	_, _, err := svc.Register(Registration{Username: "a", Email: "a@example.com", Password: "right"})
	require.NoError(t, err)

	_, _, err = svc.Login(Credentials{Email: "a@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, common.ErrUnauthorized))

	_, _, err = svc.Login(Credentials{Email: "b@example.com", Password: "right"})
	assert.True(t, errors.Is(err, common.ErrUnauthorized))

	_, _, err = svc.Login(Credentials{Email: "a@example.com"})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestLogoutAndExpiry(t *testing.T) {
	svc, _ := newTestService(time.Hour)
	_, sess, err := svc.Register(Registration{Username: "a", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(sess.Token))
	_, err = svc.Resolve(sess.Token)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))

	assert.NoError(t, svc.Logout(""))
	assert.NoError(t, svc.Logout("unknown"))

	// a session issued two hours ago with a one hour ttl
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, old, err := svc.Login(Credentials{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Resolve(old.Token)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestResolve_Empty(t *testing.T) {
	svc, _ := newTestService(0)
	_, err := svc.Resolve("")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/me?session_token=fromquery", nil)
	assert.Equal(t, "fromquery", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer fromheader")
	assert.Equal(t, "fromheader", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "fromquery", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/me", nil)
	assert.Empty(t, TokenFromRequest(r))
}

func TestProfiles(t *testing.T) {
	u := storage.User{
		Username:     "vera",
		Email:        "vera@example.com",
		SearchCount:  3,
		RegisteredAt: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
	}
	p := UserProfile(u, "en")
	assert.Equal(t, "2025-03-14", p.MemberSince)
	assert.Equal(t, 3, p.SearchesCount)
	assert.Equal(t, "en", p.Preferences.Language)
	assert.False(t, p.Guest)

	g := GuestProfile(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), "ru")
	assert.True(t, g.Guest)
	assert.Regexp(t, `^Guest_Researcher_[0-9a-f]{8}$`, g.Username)
	assert.Equal(t, "2025-10-01", g.MemberSince)
	assert.Equal(t, "Kelvin", g.Preferences.TemperatureUnit)
}
