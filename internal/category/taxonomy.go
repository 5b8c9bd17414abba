// Package category maps free-text product descriptions to the fixed
// kleinanzeigen.de category taxonomy using keyword matching.
package category

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed categories.json
var embeddedTaxonomy []byte

// Taxonomy is the static category table: categories with their subcategories
// and example terms, plus per-category keyword lists used for scoring.
// It is loaded once at startup and read-only afterwards.
type Taxonomy struct {
	// Categories maps category name to subcategory name to example terms.
	Categories map[string]CategoryEntry `json:"categories"`
	// Keywords maps category name to its keyword list.
	Keywords map[string][]string `json:"keywords"`

	// categoryOrder preserves the JSON object order of categories, which is
	// the tie-break order for keyword scoring.
	categoryOrder    []string
	subcategoryOrder map[string][]string
}

// CategoryEntry holds the subcategories of a single category.
type CategoryEntry struct {
	Subcategories map[string][]string `json:"subcategories"`
}

// LoadTaxonomy reads a taxonomy from a JSON file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	t, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("malformed taxonomy file %s: %w", path, err)
	}
	return t, nil
}

// DefaultTaxonomy returns the taxonomy embedded in the binary.
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(embeddedTaxonomy)
	if err != nil {
		// The embedded file is validated by tests; this cannot happen at runtime.
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// ParseTaxonomy parses taxonomy JSON. Object key order is preserved for
// categories and subcategories since it is the tie-break order for matching.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy contains no categories")
	}

	order, err := objectKeyOrder(data, "categories")
	if err != nil {
		return nil, err
	}
	t.categoryOrder = order

	t.subcategoryOrder = make(map[string][]string, len(t.Categories))
	for _, name := range order {
		subOrder, err := subcategoryKeyOrder(data, name)
		if err != nil {
			return nil, err
		}
		t.subcategoryOrder[name] = subOrder
	}

	return &t, nil
}

// CategoryNames returns category names in taxonomy order.
func (t *Taxonomy) CategoryNames() []string {
	return t.categoryOrder
}

// SubcategoryNames returns subcategory names of a category in taxonomy order.
func (t *Taxonomy) SubcategoryNames(category string) []string {
	return t.subcategoryOrder[category]
}

// objectKeyOrder returns the key order of the top-level object under key,
// using a json.Decoder token walk since map unmarshalling loses order.
func objectKeyOrder(data []byte, key string) ([]string, error) {
	raw, err := rawSection(data, key)
	if err != nil {
		return nil, err
	}
	return topLevelKeys(raw)
}

func subcategoryKeyOrder(data []byte, category string) ([]string, error) {
	categories, err := rawSection(data, "categories")
	if err != nil {
		return nil, err
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(categories, &entries); err != nil {
		return nil, err
	}
	entry, ok := entries[category]
	if !ok {
		return nil, nil
	}
	sub, err := rawSection(entry, "subcategories")
	if err != nil {
		return nil, err
	}
	return topLevelKeys(sub)
}

func rawSection(data []byte, key string) (json.RawMessage, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}
	raw, ok := sections[key]
	if !ok {
		return nil, fmt.Errorf("taxonomy is missing %q section", key)
	}
	return raw, nil
}

func topLevelKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))

		// Skip the value belonging to this key.
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if _, ok := tok.(json.Delim); !ok {
		return nil
	}
	// Consume tokens until the matching close delimiter.
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
