package vision

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"google.golang.org/genai"
)

const geminiModel = "gemini-3-flash-preview"

// Gemini 3.0 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.50 // $0.50 per 1M input tokens (text/image/video)
	geminiOutputPricePerMillion = 3.00 // $3.00 per 1M output tokens (including thinking)
)

// GeminiAnalyzer uses Google's Gemini API for image analysis.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiAnalyzer(ctx context.Context) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// AnalyzeFolder implements the Analyzer interface using Gemini.
func (g *GeminiAnalyzer) AnalyzeFolder(ctx context.Context, dir string, maxImages int) (*ad.ProductInfo, error) {
	paths, err := findImages(dir, maxImages)
	if err != nil {
		return nil, err
	}
	images, err := readImages(ctx, paths)
	if err != nil {
		return nil, err
	}
	log.Info().Int("imageCount", len(paths)).Str("dir", dir).Msg("analyzing images with gemini")

	// Build parts: prompt first, then all images
	parts := []*genai.Part{
		genai.NewPartFromText(visionPrompt),
	}
	for i, imgData := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: imgData, MIMEType: mimeType(paths[i])},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini vision call failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	info, err := parseProductInfo(result.Text(), paths)
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
		)
		log.Info().
			Str("model", geminiModel).
			Int("imageCount", len(paths)).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Msg("vision llm call")
	}

	log.Info().Str("name", info.Name).Msg("product analyzed")
	return info, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
