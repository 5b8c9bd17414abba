// Package content turns a ProductInfo into a validated, postable AdRecord.
// Description text can be rewritten by a pluggable LLM backend; the
// deterministic template backend needs no credentials and doubles as the
// fallback when an LLM call fails.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trichling/Kleinanzeiger/internal/ad"
)

const enhancePrompt = `Erstelle eine ansprechende Kleinanzeigen-Beschreibung für folgendes Produkt:

Produkt: %s
Zustand: %s
Marke: %s
Farbe: %s
Merkmale: %s

Originalbeschreibung:
%s

Erstelle eine verbesserte Beschreibung die:
- Ehrlich den Zustand beschreibt
- Wichtige Merkmale hervorhebt
- Freundlich und professionell klingt
- Typisch für deutsche Kleinanzeigen ist
- Zwischen 100-300 Wörtern lang ist

Schreibe nur die Beschreibung, ohne zusätzliche Erklärungen.`

// ErrUnparseableOutput marks an enhancer failure caused by the backend
// returning output that could not be used, as opposed to the call itself
// failing. Both degrade to the template, but they are logged apart.
var ErrUnparseableOutput = errors.New("enhancer returned unusable output")

// Enhancer rewrites a product description for the listing.
type Enhancer interface {
	// Enhance returns a marketplace-ready description for the product.
	Enhance(ctx context.Context, info ad.ProductInfo) (string, error)

	// Name returns the backend name for logging.
	Name() string
}

// Backend names accepted by NewEnhancer.
const (
	BackendTemplate = "template"
	BackendGemini   = "gemini"
	BackendOpenAI   = "openai"
)

// NewEnhancer creates the enhancer for the given backend name. The empty
// string selects the template backend, which is always available. API
// backends read their credentials from the environment.
func NewEnhancer(ctx context.Context, backend string) (Enhancer, error) {
	switch strings.ToLower(backend) {
	case "", BackendTemplate:
		return NewTemplateEnhancer(), nil
	case BackendGemini:
		return NewGeminiEnhancer(ctx)
	case BackendOpenAI:
		return NewOpenAIEnhancer(), nil
	default:
		return nil, fmt.Errorf("unsupported content backend: %s (available: %s, %s, %s)",
			backend, BackendTemplate, BackendGemini, BackendOpenAI)
	}
}
