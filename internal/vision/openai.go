package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
)

const openaiModel = "gpt-4o"

// GPT-4o pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 2.50
	openaiOutputPricePerMillion = 10.00
)

// OpenAIAnalyzer uses OpenAI's vision-capable chat completions API.
type OpenAIAnalyzer struct {
	client openai.Client
}

// NewOpenAIAnalyzer creates a new OpenAI-based analyzer.
// It uses the OPENAI_API_KEY environment variable for authentication.
func NewOpenAIAnalyzer() *OpenAIAnalyzer {
	return &OpenAIAnalyzer{client: openai.NewClient()}
}

// AnalyzeFolder implements the Analyzer interface using OpenAI.
func (o *OpenAIAnalyzer) AnalyzeFolder(ctx context.Context, dir string, maxImages int) (*ad.ProductInfo, error) {
	paths, err := findImages(dir, maxImages)
	if err != nil {
		return nil, err
	}
	images, err := readImages(ctx, paths)
	if err != nil {
		return nil, err
	}
	log.Info().Int("imageCount", len(paths)).Str("dir", dir).Msg("analyzing images with openai")

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(visionPrompt),
	}
	for i, imgData := range images {
		b64Data := base64.StdEncoding.EncodeToString(imgData)
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType(paths[i]), b64Data)
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}))
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openaiModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai vision call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	info, err := parseProductInfo(resp.Choices[0].Message.Content, paths)
	if err != nil {
		return nil, err
	}

	cost := calculateOpenAICost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	log.Info().
		Str("model", openaiModel).
		Int("imageCount", len(paths)).
		Int64("inputTokens", resp.Usage.PromptTokens).
		Int64("outputTokens", resp.Usage.CompletionTokens).
		Float64("costUSD", cost).
		Msg("vision llm call")

	log.Info().Str("name", info.Name).Msg("product analyzed")
	return info, nil
}

func calculateOpenAICost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * openaiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * openaiOutputPricePerMillion
	return inputCost + outputCost
}
