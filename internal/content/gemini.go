package content

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash-lite"

// Gemini 2.5 Flash Lite pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.075
	geminiOutputPricePerMillion = 0.30
)

// GeminiEnhancer rewrites descriptions using Google's Gemini API.
type GeminiEnhancer struct {
	client *genai.Client
}

// NewGeminiEnhancer creates a new Gemini-based enhancer.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiEnhancer(ctx context.Context) (*GeminiEnhancer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEnhancer{client: client}, nil
}

func (g *GeminiEnhancer) Name() string { return BackendGemini }

// Enhance implements the Enhancer interface using Gemini.
func (g *GeminiEnhancer) Enhance(ctx context.Context, info ad.ProductInfo) (string, error) {
	prompt := fmt.Sprintf(enhancePrompt,
		info.Name,
		info.Condition,
		orFallback(info.Brand, "Unbekannt"),
		orFallback(info.Color, "Nicht spezifiziert"),
		featuresLine(info.Features),
		info.Description,
	)

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini enhance call failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from gemini", ErrUnparseableOutput)
	}

	text := stripCodeFences(result.Text())
	if text == "" {
		return "", fmt.Errorf("%w: blank response from gemini", ErrUnparseableOutput)
	}

	// Log usage and cost
	if result.UsageMetadata != nil {
		cost := calculateCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
			geminiInputPricePerMillion,
			geminiOutputPricePerMillion,
		)
		log.Info().
			Str("model", geminiModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Msg("description enhance llm call")
	}

	return text, nil
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// stripCodeFences removes markdown code blocks the LLM may wrap around
// plain-text output.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func orFallback(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

func featuresLine(features []string) string {
	if len(features) == 0 {
		return "Keine besonderen Merkmale"
	}
	return strings.Join(features, ", ")
}
