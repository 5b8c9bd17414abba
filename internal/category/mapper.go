package category

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// FallbackCategory is the sentinel category used when nothing matches.
const FallbackCategory = "Sonstiges"

// Mapper resolves a category and subcategory for a product from noisy text.
// It is deterministic: ties are broken by taxonomy order.
type Mapper struct {
	taxonomy *Taxonomy
}

// NewMapper creates a Mapper over the given taxonomy.
func NewMapper(taxonomy *Taxonomy) *Mapper {
	return &Mapper{taxonomy: taxonomy}
}

// Map resolves the category and subcategory for a product. detectedCategory
// is an optional hint from vision analysis and takes precedence over keyword
// scoring when it matches a taxonomy category. An unmatched input is not an
// error; it maps to the fallback category.
func (m *Mapper) Map(name, description string, detectedCategory *string) (string, *string) {
	combined := strings.ToLower(name + " " + description)

	cat := ""
	if detectedCategory != nil && *detectedCategory != "" {
		cat = m.matchHint(*detectedCategory)
	}
	if cat == "" {
		cat = m.matchKeywords(combined)
	}
	if cat == "" {
		cat = FallbackCategory
		log.Warn().
			Str("name", name).
			Msg("could not determine category, using fallback")
	}

	sub := m.findSubcategory(cat, combined)

	logEvent := log.Info().Str("category", cat)
	if sub != nil {
		logEvent = logEvent.Str("subcategory", *sub)
	}
	logEvent.Msg("mapped product to category")

	return cat, sub
}

// matchHint matches the detected category hint against taxonomy category
// names, case-insensitively and as a substring in either direction.
func (m *Mapper) matchHint(hint string) string {
	hintLower := strings.ToLower(hint)
	for _, name := range m.taxonomy.CategoryNames() {
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, hintLower) || strings.Contains(hintLower, nameLower) {
			return name
		}
	}
	return ""
}

// matchKeywords scores every category by how many of its keywords occur in
// the text. Only a strictly greater count replaces the current best, so the
// first category in taxonomy order keeps the lead on ties.
func (m *Mapper) matchKeywords(textLower string) string {
	best := ""
	bestCount := 0
	for _, name := range m.taxonomy.CategoryNames() {
		count := 0
		for _, kw := range m.taxonomy.Keywords[name] {
			if strings.Contains(textLower, strings.ToLower(kw)) {
				count++
			}
		}
		if count > bestCount {
			best = name
			bestCount = count
		}
	}
	return best
}

// findSubcategory returns the first subcategory whose name or any of whose
// example items occurs in the text. Falls back to the category's first
// subcategory, or nil when the category has none.
func (m *Mapper) findSubcategory(category, textLower string) *string {
	entry, ok := m.taxonomy.Categories[category]
	if !ok {
		return nil
	}

	names := m.taxonomy.SubcategoryNames(category)
	for _, sub := range names {
		if strings.Contains(textLower, strings.ToLower(sub)) {
			s := sub
			return &s
		}
		for _, item := range entry.Subcategories[sub] {
			if strings.Contains(textLower, strings.ToLower(item)) {
				s := sub
				return &s
			}
		}
	}

	if len(names) > 0 {
		s := names[0]
		return &s
	}
	return nil
}
