package content

import (
	"errors"
	"testing"

	"exoplanet-ai/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	en, err := Lookup("methods", "en")
	require.NoError(t, err)
	assert.Equal(t, "Exoplanet Detection Methods", en.Title)
	assert.Contains(t, en.Content, "Transit method")

	ru, err := Lookup("habitability", "xx")
	require.NoError(t, err)
	assert.Equal(t, "Что делает планету обитаемой?", ru.Title)

	_, err = Lookup("dark-matter", "en")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestTopics_SameInEveryLocale(t *testing.T) {
	assert.Equal(t, []string{"habitability", "methods"}, Topics())
	for locale, byTopic := range topics {
		for _, name := range Topics() {
			_, ok := byTopic[name]
			assert.True(t, ok, "%s missing in %s", name, locale)
		}
	}
}
