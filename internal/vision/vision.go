// Package vision extracts structured product information from photos using
// a configurable multimodal LLM backend.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors for the two fatal input conditions. A partial or
// low-confidence analysis is not an error and still returns a best-effort
// ProductInfo.
var (
	ErrNoImageFolder = errors.New("image folder not found")
	ErrNoImages      = errors.New("no supported images found")
)

// Analyzer can analyze a folder of product images.
type Analyzer interface {
	// AnalyzeFolder selects up to maxImages supported images from dir in
	// lexicographic filename order and returns the extracted product info.
	AnalyzeFolder(ctx context.Context, dir string, maxImages int) (*ad.ProductInfo, error)
}

// Backend names accepted by NewAnalyzer.
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// NewAnalyzer creates the vision analyzer for the given backend name.
// API credentials are read from the environment.
func NewAnalyzer(ctx context.Context, backend string) (Analyzer, error) {
	switch strings.ToLower(backend) {
	case "", BackendGemini:
		return NewGeminiAnalyzer(ctx)
	case BackendOpenAI:
		return NewOpenAIAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unsupported vision backend: %s (available: %s, %s)",
			backend, BackendGemini, BackendOpenAI)
	}
}

const visionPrompt = `Analysiere diese Produktbilder und extrahiere folgende Informationen:

1. Produktname (kurz und präzise)
2. Detaillierte Produktbeschreibung (Zustand, Eigenschaften, Besonderheiten)
3. Zustand (Neu, Wie neu, Gebraucht, Defekt)
4. Kategorie (z.B. Elektronik, Möbel, Kleidung, Sport, Haushalt)
5. Marke/Hersteller (falls erkennbar)
6. Farbe (falls relevant)
7. Wichtige Merkmale (Liste)
8. Preisvorschlag in EUR (realistisch für deutschen Gebrauchtmarkt)

Antworte im folgenden JSON-Format:
{
    "name": "Produktname",
    "description": "Detaillierte Beschreibung...",
    "condition": "Gebraucht",
    "category": "Kategorie",
    "brand": "Marke",
    "color": "Farbe",
    "features": ["Merkmal 1", "Merkmal 2"],
    "suggested_price": 50.00
}

Sei präzise und beschreibe den Zustand ehrlich basierend auf den Bildern.
Antworte NUR mit dem JSON-Objekt, ohne Markdown oder weiteren Text.`

var supportedFormats = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// findImages lists the supported images in dir, sorted lexicographically by
// filename, limited to maxImages. The order is stable because it determines
// the upload order of the listing photos.
func findImages(dir string, maxImages int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoImageFolder, dir)
		}
		return nil, fmt.Errorf("failed to read image folder %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedFormats[ext]; ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	if len(paths) > maxImages {
		paths = paths[:maxImages]
	}
	return paths, nil
}

// readImages loads image files concurrently while preserving path order.
func readImages(ctx context.Context, paths []string) ([][]byte, error) {
	images := make([][]byte, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(paths[i])
			if err != nil {
				return fmt.Errorf("failed to read image %s: %w", paths[i], err)
			}
			images[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func mimeType(path string) string {
	if mt, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/jpeg"
}

// productJSON is the wire format the models are asked to respond in.
type productJSON struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Condition      string   `json:"condition"`
	Category       *string  `json:"category"`
	Brand          *string  `json:"brand"`
	Color          *string  `json:"color"`
	Features       []string `json:"features"`
	SuggestedPrice *float64 `json:"suggested_price"`
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// parseProductInfo parses a model response into a ProductInfo. Empty strings
// for optional fields become nil so that downstream logic can distinguish
// "not detected" from "empty".
func parseProductInfo(text string, imagePaths []string) (*ad.ProductInfo, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var p productJSON
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	if p.Name == "" {
		p.Name = "Unbekanntes Produkt"
	}

	price := p.SuggestedPrice
	if price != nil && *price < 0 {
		log.Warn().Float64("suggestedPrice", *price).Msg("model suggested a negative price, ignoring it")
		price = nil
	}

	return &ad.ProductInfo{
		Name:           p.Name,
		Description:    p.Description,
		Condition:      normalizeCondition(p.Condition),
		Category:       emptyToNil(p.Category),
		Brand:          emptyToNil(p.Brand),
		Color:          emptyToNil(p.Color),
		Features:       p.Features,
		SuggestedPrice: price,
		ImagePaths:     imagePaths,
	}, nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// normalizeCondition maps free-text condition labels (German or English) to
// the condition values the posting form accepts.
func normalizeCondition(condition string) string {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "neu", "new":
		return "Neu"
	case "wie neu", "like new":
		return "Wie neu"
	case "defekt", "defective", "broken":
		return "Defekt"
	case "":
		return ad.DefaultCondition
	default:
		return ad.DefaultCondition
	}
}
