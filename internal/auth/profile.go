package auth

import (
	"fmt"
	"time"

	"exoplanet-ai/internal/storage"

	"github.com/google/uuid"
)

// Preferences are the display units and language shown on a profile.
type Preferences struct {
	TemperatureUnit string `json:"temperature_unit"`
	MassUnit        string `json:"mass_unit"`
	Language        string `json:"language"`
}

// Profile is the public view of an account, or of a guest.
type Profile struct {
	Username      string      `json:"username"`
	Email         string      `json:"email,omitempty"`
	SearchesCount int         `json:"searches_count"`
	MemberSince   string      `json:"member_since"`
	Preferences   Preferences `json:"preferences"`
	Guest         bool        `json:"guest"`
}

func defaultPreferences(language string) Preferences {
	return Preferences{
		TemperatureUnit: "Kelvin",
		MassUnit:        "Earth masses",
		Language:        language,
	}
}

// UserProfile describes a registered user.
func UserProfile(u storage.User, language string) Profile {
	return Profile{
		Username:      u.Username,
		Email:         u.Email,
		SearchesCount: u.SearchCount,
		MemberSince:   u.RegisteredAt.Format(time.DateOnly),
		Preferences:   defaultPreferences(language),
	}
}

// GuestProfile describes an anonymous visitor under a fresh temporary name.
func GuestProfile(now time.Time, language string) Profile {
	return Profile{
		Username:    fmt.Sprintf("Guest_Researcher_%s", uuid.NewString()[:8]),
		MemberSince: now.Format(time.DateOnly),
		Preferences: defaultPreferences(language),
		Guest:       true,
	}
}
