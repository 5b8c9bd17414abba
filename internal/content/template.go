package content

import (
	"context"
	"strings"

	"github.com/trichling/Kleinanzeiger/internal/ad"
)

// TemplateEnhancer assembles a description without any LLM call. Identical
// input always produces identical output, which is what makes it usable as
// the universal fallback.
type TemplateEnhancer struct{}

// NewTemplateEnhancer creates the template-based enhancer.
func NewTemplateEnhancer() *TemplateEnhancer {
	return &TemplateEnhancer{}
}

func (t *TemplateEnhancer) Name() string { return BackendTemplate }

// Enhance builds the description from the original text, a details block and
// a bulleted features list. Absent optional fields produce no line at all.
func (t *TemplateEnhancer) Enhance(_ context.Context, info ad.ProductInfo) (string, error) {
	var b strings.Builder

	if info.Description != "" {
		b.WriteString(info.Description)
	}

	var details []string
	if info.Brand != nil && *info.Brand != "" {
		details = append(details, "Marke: "+*info.Brand)
	}
	if info.Color != nil && *info.Color != "" {
		details = append(details, "Farbe: "+*info.Color)
	}
	if info.Condition != "" {
		details = append(details, "Zustand: "+info.Condition)
	}
	if len(details) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Details:\n")
		b.WriteString(strings.Join(details, "\n"))
	}

	if len(info.Features) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Merkmale:\n")
		for i, feature := range info.Features {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + feature)
		}
	}

	return b.String(), nil
}
