package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"github.com/trichling/Kleinanzeiger/internal/category"
)

// DefaultPrice is used when neither a price override nor a suggested price
// is available.
const DefaultPrice = 10.0

// DefaultEnhanceTimeout bounds a single enhancer call. Expiry is treated as
// a recoverable failure, not a pipeline error.
const DefaultEnhanceTimeout = 60 * time.Second

// Generator produces a validated AdRecord from a ProductInfo. Description
// enhancement goes through the configured Enhancer; any enhancer failure
// degrades to the deterministic template, so generation itself never fails
// because of a backend.
type Generator struct {
	enhancer       Enhancer
	fallback       *TemplateEnhancer
	defaultPrice   float64
	enhanceTimeout time.Duration
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithDefaultPrice overrides the price used when no override and no
// suggested price exist.
func WithDefaultPrice(price float64) GeneratorOption {
	return func(g *Generator) { g.defaultPrice = price }
}

// WithEnhanceTimeout overrides the per-call enhancer timeout.
func WithEnhanceTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.enhanceTimeout = d }
}

// NewGenerator creates a Generator using the given enhancer backend.
func NewGenerator(enhancer Enhancer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		enhancer:       enhancer,
		fallback:       NewTemplateEnhancer(),
		defaultPrice:   DefaultPrice,
		enhanceTimeout: DefaultEnhanceTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAdContent builds the complete ad record. The returned record has
// passed full validation; a validation error means the inputs were bad
// (postal code, negative price override) and the run must stop.
func (g *Generator) GenerateAdContent(
	ctx context.Context,
	info ad.ProductInfo,
	postalCode string,
	cat string,
	subcategory *string,
	priceOverride *float64,
) (ad.AdRecord, error) {
	log.Info().Str("name", info.Name).Msg("generating ad content")

	condition := info.Condition
	if condition == "" {
		condition = ad.DefaultCondition
	}

	rec := ad.AdRecord{
		Title:        BuildTitle(info),
		Description:  g.enhanceDescription(ctx, info),
		Price:        g.resolvePrice(info, priceOverride),
		Category:     resolveCategory(info, cat),
		Subcategory:  subcategory,
		Condition:    condition,
		ShippingType: ad.ShippingPickup,
		PostalCode:   postalCode,
	}

	if err := rec.Validate(); err != nil {
		return ad.AdRecord{}, err
	}

	log.Info().
		Str("title", rec.Title).
		Float64("price", rec.Price).
		Msg("ad content generated")
	return rec, nil
}

// enhanceDescription runs the configured enhancer and falls back to the
// template output on any failure. The fallback is the core guarantee of the
// content stage: description enhancement never fails the pipeline.
func (g *Generator) enhanceDescription(ctx context.Context, info ad.ProductInfo) string {
	if g.enhancer == nil || g.enhancer.Name() == BackendTemplate {
		text, _ := g.fallback.Enhance(ctx, info)
		return text
	}

	callCtx, cancel := context.WithTimeout(ctx, g.enhanceTimeout)
	defer cancel()

	text, err := g.enhancer.Enhance(callCtx, info)
	if err == nil {
		return text
	}

	if errors.Is(err, ErrUnparseableOutput) {
		log.Error().Err(err).Str("backend", g.enhancer.Name()).Msg("enhancer returned unparseable output, using template description")
	} else {
		log.Error().Err(err).Str("backend", g.enhancer.Name()).Msg("enhancer call failed, using template description")
	}

	text, _ = g.fallback.Enhance(ctx, info)
	return text
}

func (g *Generator) resolvePrice(info ad.ProductInfo, override *float64) float64 {
	switch {
	case override != nil:
		return *override
	case info.SuggestedPrice != nil:
		return *info.SuggestedPrice
	default:
		return g.defaultPrice
	}
}

// resolveCategory prefers the vision-detected category when present, then
// the mapper result, then the fallback sentinel.
func resolveCategory(info ad.ProductInfo, mapped string) string {
	if info.Category != nil && *info.Category != "" {
		return *info.Category
	}
	if mapped != "" {
		return mapped
	}
	return category.FallbackCategory
}

// BuildTitle joins brand, name and color with single spaces and enforces the
// title length cap: anything longer than 65 runes is cut to 62 runes with an
// ellipsis marker appended.
func BuildTitle(info ad.ProductInfo) string {
	var components []string
	if info.Brand != nil && *info.Brand != "" {
		components = append(components, *info.Brand)
	}
	components = append(components, info.Name)
	if info.Color != nil && *info.Color != "" {
		components = append(components, *info.Color)
	}

	title := strings.Join(components, " ")
	runes := []rune(title)
	if len(runes) > ad.TitleMaxLen {
		title = string(runes[:ad.TitleMaxLen-3]) + "..."
	}
	return title
}
