// Package narrative turns a classification into a sentence for the user.
package narrative

import (
	"fmt"
	"strings"
)

// Locale selects the language of generated text.
type Locale string

const (
	English Locale = "en"
	Russian Locale = "ru"

	// DefaultLocale is used for anything not listed in Locales.
	DefaultLocale = Russian
)

// Locales lists the supported locales.
var Locales = []Locale{English, Russian}

type template struct {
	positive string
	negative string
}

var templates = map[Locale]template{
	English: {
		positive: "Planet in %s system is an exoplanet! Analysis confidence: %.1f%%. Further study recommended.",
		negative: "Planet in %s system is not an exoplanet! Analysis confidence: %.1f%%.",
	},
	Russian: {
		positive: "Планета в системе %s является экзопланетой! Уверенность анализа: %.1f%%. Рекомендуется дальнейшее изучение.",
		negative: "Планета в системе %s не является экзопланетой! Уверенность анализа: %.1f%%.",
	},
}

// ParseLocale normalizes s ("EN", "ru-RU", ...) and falls back to
// DefaultLocale.
func ParseLocale(s string) Locale {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	if _, ok := templates[Locale(s)]; ok {
		return Locale(s)
	}
	return DefaultLocale
}

// Supported reports whether s names a supported locale exactly.
func Supported(s string) bool {
	_, ok := templates[Locale(s)]
	return ok
}

// Generate renders the verdict for starSystem. Confidence is printed with
// one decimal.
func Generate(label bool, confidence float64, starSystem string, locale string) string {
	t := templates[ParseLocale(locale)]
	if label {
		return fmt.Sprintf(t.positive, starSystem, confidence)
	}
	return fmt.Sprintf(t.negative, starSystem, confidence)
}
