package content

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
)

const openaiModel = "gpt-4o-mini"

// GPT-4o mini pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 0.15
	openaiOutputPricePerMillion = 0.60
)

// OpenAIEnhancer rewrites descriptions using OpenAI's chat completions API.
type OpenAIEnhancer struct {
	client openai.Client
}

// NewOpenAIEnhancer creates a new OpenAI-based enhancer.
// It uses the OPENAI_API_KEY environment variable for authentication.
func NewOpenAIEnhancer() *OpenAIEnhancer {
	return &OpenAIEnhancer{client: openai.NewClient()}
}

func (o *OpenAIEnhancer) Name() string { return BackendOpenAI }

// Enhance implements the Enhancer interface using OpenAI.
func (o *OpenAIEnhancer) Enhance(ctx context.Context, info ad.ProductInfo) (string, error) {
	prompt := fmt.Sprintf(enhancePrompt,
		info.Name,
		info.Condition,
		orFallback(info.Brand, "Unbekannt"),
		orFallback(info.Color, "Nicht spezifiziert"),
		featuresLine(info.Features),
		info.Description,
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openaiModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai enhance call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from openai", ErrUnparseableOutput)
	}

	text := stripCodeFences(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank response from openai", ErrUnparseableOutput)
	}

	// Log usage and cost
	cost := calculateCost(
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		openaiInputPricePerMillion,
		openaiOutputPricePerMillion,
	)
	log.Info().
		Str("model", openaiModel).
		Int64("inputTokens", resp.Usage.PromptTokens).
		Int64("outputTokens", resp.Usage.CompletionTokens).
		Float64("costUSD", cost).
		Msg("description enhance llm call")

	return text, nil
}
