package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTaxonomyJSON = `{
  "categories": {
    "Elektronik": {
      "subcategories": {
        "Notebooks": ["laptop", "macbook"],
        "Handy & Telefon": ["handy", "iphone"]
      }
    },
    "Haus & Garten": {
      "subcategories": {
        "Wohnzimmer": ["sofa", "regal"],
        "Küche & Esszimmer": ["topf"]
      }
    },
    "Haustiere": {
      "subcategories": {}
    },
    "Sonstiges": {
      "subcategories": {
        "Weiteres Sonstiges": []
      }
    }
  },
  "keywords": {
    "Elektronik": ["laptop", "handy", "monitor"],
    "Haus & Garten": ["sofa", "tisch", "lampe"],
    "Haustiere": ["katze"]
  }
}`

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	taxonomy, err := ParseTaxonomy([]byte(testTaxonomyJSON))
	require.NoError(t, err)
	return NewMapper(taxonomy)
}

func strPtr(s string) *string { return &s }

func TestMapKeywordMatch(t *testing.T) {
	m := newTestMapper(t)

	cat, sub := m.Map("Laptop Dell XPS", "", nil)
	assert.Equal(t, "Elektronik", cat)
	require.NotNil(t, sub)
	assert.Equal(t, "Notebooks", *sub)
}

func TestMapHigherKeywordCountWins(t *testing.T) {
	m := newTestMapper(t)

	// One Elektronik keyword (laptop), two Haus & Garten keywords (sofa, lampe).
	cat, _ := m.Map("Sofa mit Lampe", "passt neben jeden Laptop", nil)
	assert.Equal(t, "Haus & Garten", cat)
}

func TestMapTieBrokenByTaxonomyOrder(t *testing.T) {
	m := newTestMapper(t)

	// One keyword each; Elektronik comes first in the taxonomy.
	cat, _ := m.Map("Handy neben dem Sofa", "", nil)
	assert.Equal(t, "Elektronik", cat)
}

func TestMapFallsBackToSentinel(t *testing.T) {
	m := newTestMapper(t)

	cat, sub := m.Map("Gartenzwerg", "aus Ton", nil)
	assert.Equal(t, FallbackCategory, cat)
	require.NotNil(t, sub)
	assert.Equal(t, "Weiteres Sonstiges", *sub)
}

func TestMapHintOverridesKeywords(t *testing.T) {
	m := newTestMapper(t)

	// The text scores for Haus & Garten, but the hint wins.
	cat, _ := m.Map("Sofa", "mit Tisch", strPtr("elektronik"))
	assert.Equal(t, "Elektronik", cat)
}

func TestMapHintSubstringBothDirections(t *testing.T) {
	m := newTestMapper(t)

	tests := map[string]struct {
		hint string
		want string
	}{
		"hint contained in category": {"Haus", "Haus & Garten"},
		"category contained in hint": {"Elektronik und Technik", "Elektronik"},
		"case-insensitive":           {"HAUSTIERE", "Haustiere"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cat, _ := m.Map("Gartenzwerg", "", strPtr(tt.hint))
			assert.Equal(t, tt.want, cat)
		})
	}
}

func TestMapUnmatchedHintFallsThroughToKeywords(t *testing.T) {
	m := newTestMapper(t)

	cat, _ := m.Map("Laptop", "", strPtr("Fahrzeuge"))
	assert.Equal(t, "Elektronik", cat)
}

func TestMapSubcategoryByItemMatch(t *testing.T) {
	m := newTestMapper(t)

	cat, sub := m.Map("iPhone 13", "kaum benutzt, mit Ladekabel und Handyhülle", nil)
	assert.Equal(t, "Elektronik", cat)
	require.NotNil(t, sub)
	assert.Equal(t, "Handy & Telefon", *sub)
}

func TestMapSubcategoryDefaultsToFirst(t *testing.T) {
	m := newTestMapper(t)

	// "monitor" scores for Elektronik but matches no subcategory item.
	cat, sub := m.Map("Monitor", "", nil)
	assert.Equal(t, "Elektronik", cat)
	require.NotNil(t, sub)
	assert.Equal(t, "Notebooks", *sub)
}

func TestMapNoSubcategories(t *testing.T) {
	m := newTestMapper(t)

	cat, sub := m.Map("Katze", "", nil)
	assert.Equal(t, "Haustiere", cat)
	assert.Nil(t, sub)
}
