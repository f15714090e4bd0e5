// Package content serves the static educational articles shown next to the
// classifier.
package content

import (
	"fmt"
	"sort"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/narrative"
)

// Topic is one article. Content is an HTML fragment.
type Topic struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var topics = map[narrative.Locale]map[string]Topic{
	narrative.Russian: {
		"habitability": {
			Title: "Что делает планету обитаемой?",
			Content: `<h3>Ключевые факторы обитаемости планет:</h3>
<ul>
<li><strong>Зона обитаемости</strong> - расстояние от звезды, где возможна жидкая вода</li>
<li><strong>Атмосфера</strong> - наличие защитного газового слоя</li>
<li><strong>Магнитное поле</strong> - защита от звездной радиации</li>
<li><strong>Стабильность орбиты</strong> - предсказуемые климатические условия</li>
<li><strong>Состав планеты</strong> - наличие необходимых химических элементов</li>
</ul>`,
		},
		"methods": {
			Title: "Методы обнаружения экзопланет",
			Content: `<h3>Основные методы поиска экзопланет:</h3>
<ul>
<li><strong>Транзитный метод</strong> - обнаружение по затемнению звезды</li>
<li><strong>Метод Доплера</strong> - измерение колебаний звезды</li>
<li><strong>Прямое наблюдение</strong> - использование коронографов</li>
<li><strong>Гравитационное микролинзирование</strong> - использование эффекта линзы</li>
</ul>`,
		},
	},
	narrative.English: {
		"habitability": {
			Title: "What Makes a Planet Habitable?",
			Content: `<h3>Key factors for planetary habitability:</h3>
<ul>
<li><strong>Habitable zone</strong> - distance from star allowing liquid water</li>
<li><strong>Atmosphere</strong> - presence of protective gas layer</li>
<li><strong>Magnetic field</strong> - protection from stellar radiation</li>
<li><strong>Orbital stability</strong> - predictable climate conditions</li>
<li><strong>Planetary composition</strong> - availability of necessary elements</li>
</ul>`,
		},
		"methods": {
			Title: "Exoplanet Detection Methods",
			Content: `<h3>Main methods for exoplanet discovery:</h3>
<ul>
<li><strong>Transit method</strong> - detection via star dimming</li>
<li><strong>Doppler method</strong> - measuring star wobbles</li>
<li><strong>Direct imaging</strong> - using coronagraphs</li>
<li><strong>Gravitational microlensing</strong> - using lensing effect</li>
</ul>`,
		},
	},
}

// Lookup returns topic in language, falling back to the default locale for
// unknown languages. Unknown topics wrap common.ErrNotFound.
func Lookup(topic, language string) (Topic, error) {
	t, ok := topics[narrative.ParseLocale(language)][topic]
	if !ok {
		return Topic{}, fmt.Errorf("educational topic %q: %w", topic, common.ErrNotFound)
	}
	return t, nil
}

// Topics lists the available topic keys.
func Topics() []string {
	out := make([]string, 0, len(topics[narrative.DefaultLocale]))
	for k := range topics[narrative.DefaultLocale] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
