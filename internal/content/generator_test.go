package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"github.com/trichling/Kleinanzeiger/internal/category"
)

// stubEnhancer is a test double for an API-backed enhancer.
type stubEnhancer struct {
	text string
	err  error
}

func (s *stubEnhancer) Name() string { return "stub" }

func (s *stubEnhancer) Enhance(_ context.Context, _ ad.ProductInfo) (string, error) {
	return s.text, s.err
}

func productInfo() ad.ProductInfo {
	return ad.ProductInfo{
		Name:        "Laptop",
		Description: "Läuft einwandfrei.",
		Condition:   "Gebraucht",
		Brand:       strPtr("Dell"),
	}
}

func TestBuildTitle(t *testing.T) {
	tests := map[string]struct {
		info ad.ProductInfo
		want string
	}{
		"name only": {
			info: ad.ProductInfo{Name: "Laptop"},
			want: "Laptop",
		},
		"brand and name": {
			info: ad.ProductInfo{Name: "Laptop", Brand: strPtr("Dell")},
			want: "Dell Laptop",
		},
		"brand name color": {
			info: ad.ProductInfo{Name: "Laptop", Brand: strPtr("Dell"), Color: strPtr("Silber")},
			want: "Dell Laptop Silber",
		},
		"empty brand skipped": {
			info: ad.ProductInfo{Name: "Laptop", Brand: strPtr(""), Color: strPtr("Silber")},
			want: "Laptop Silber",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildTitle(tt.info))
		})
	}
}

func TestBuildTitleTruncation(t *testing.T) {
	info := ad.ProductInfo{
		Name:  strings.Repeat("x", 80),
		Brand: strPtr("Langermarkenname"),
	}
	naive := *info.Brand + " " + info.Name

	title := BuildTitle(info)
	assert.Equal(t, ad.TitleMaxLen, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Equal(t, naive[:62], title[:62])
}

func TestBuildTitleTruncationMultibyte(t *testing.T) {
	info := ad.ProductInfo{Name: strings.Repeat("ö", 80)}

	title := BuildTitle(info)
	assert.Equal(t, ad.TitleMaxLen, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestGenerateAdContentTemplateBackend(t *testing.T) {
	g := NewGenerator(NewTemplateEnhancer())

	rec, err := g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, nil)
	require.NoError(t, err)

	want, _ := NewTemplateEnhancer().Enhance(context.Background(), productInfo())
	assert.Equal(t, want, rec.Description)
	assert.Equal(t, ad.ShippingPickup, rec.ShippingType)

	// Two runs over identical input produce identical output.
	again, err := g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, rec.Description, again.Description)
}

func TestGenerateAdContentUsesEnhancerOutput(t *testing.T) {
	g := NewGenerator(&stubEnhancer{text: "Eine tolle Beschreibung."})

	rec, err := g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Eine tolle Beschreibung.", rec.Description)
}

func TestGenerateAdContentFallsBackOnEnhancerError(t *testing.T) {
	tests := map[string]error{
		"call failure":       errors.New("connection refused"),
		"unparseable output": fmt.Errorf("%w: blank response", ErrUnparseableOutput),
		"context deadline":   context.DeadlineExceeded,
	}

	for name, enhErr := range tests {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(&stubEnhancer{err: enhErr})

			rec, err := g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, nil)
			require.NoError(t, err)

			want, _ := NewTemplateEnhancer().Enhance(context.Background(), productInfo())
			assert.Equal(t, want, rec.Description)
		})
	}
}

func TestGenerateAdContentPriceResolution(t *testing.T) {
	tests := map[string]struct {
		suggested *float64
		override  *float64
		want      float64
	}{
		"override wins":        {floatPtr(50), floatPtr(150), 150},
		"suggested price used": {floatPtr(50), nil, 50},
		"default price":        {nil, nil, DefaultPrice},
		"zero override":        {floatPtr(50), floatPtr(0), 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			info := productInfo()
			info.SuggestedPrice = tt.suggested
			g := NewGenerator(NewTemplateEnhancer())

			rec, err := g.GenerateAdContent(context.Background(), info, "10115", "Elektronik", nil, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Price)
		})
	}
}

func TestGenerateAdContentCustomDefaultPrice(t *testing.T) {
	g := NewGenerator(NewTemplateEnhancer(), WithDefaultPrice(25))

	rec, err := g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, rec.Price)
}

func TestGenerateAdContentCategoryPreference(t *testing.T) {
	tests := map[string]struct {
		visionCategory *string
		mapped         string
		want           string
	}{
		"vision category preferred": {strPtr("Elektronik"), "Haus & Garten", "Elektronik"},
		"mapped category used":      {nil, "Haus & Garten", "Haus & Garten"},
		"empty vision category":     {strPtr(""), "Haus & Garten", "Haus & Garten"},
		"sentinel fallback":         {nil, "", category.FallbackCategory},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			info := productInfo()
			info.Category = tt.visionCategory
			g := NewGenerator(NewTemplateEnhancer())

			rec, err := g.GenerateAdContent(context.Background(), info, "10115", tt.mapped, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Category)
		})
	}
}

func TestGenerateAdContentValidationErrors(t *testing.T) {
	g := NewGenerator(NewTemplateEnhancer())

	_, err := g.GenerateAdContent(context.Background(), productInfo(), "1234", "Elektronik", nil, nil)
	assert.Error(t, err)

	_, err = g.GenerateAdContent(context.Background(), productInfo(), "10115", "Elektronik", nil, floatPtr(-5))
	assert.Error(t, err)
}

func TestGenerateAdContentDefaultsCondition(t *testing.T) {
	info := productInfo()
	info.Condition = ""
	g := NewGenerator(NewTemplateEnhancer())

	rec, err := g.GenerateAdContent(context.Background(), info, "10115", "Elektronik", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ad.DefaultCondition, rec.Condition)
}

// TestGenerateAdContentEndToEnd walks the full mapper + generator flow for a
// realistic product.
func TestGenerateAdContentEndToEnd(t *testing.T) {
	info := ad.ProductInfo{
		Name:           "Laptop Dell",
		Description:    "",
		Condition:      "Gebraucht",
		Category:       strPtr("Elektronik"),
		Brand:          strPtr("Dell"),
		SuggestedPrice: floatPtr(200),
		ImagePaths:     []string{"a.jpg", "b.jpg"},
	}

	mapper := category.NewMapper(category.DefaultTaxonomy())
	mappedCategory, subcategory := mapper.Map(info.Name, info.Description, info.Category)

	g := NewGenerator(NewTemplateEnhancer())
	rec, err := g.GenerateAdContent(context.Background(), info, "10115", mappedCategory, subcategory, nil)
	require.NoError(t, err)

	assert.Equal(t, "Elektronik", rec.Category)
	assert.Equal(t, 200.0, rec.Price)
	assert.Equal(t, "10115", rec.PostalCode)
	assert.Contains(t, rec.Title, "Dell")
	assert.Contains(t, rec.Title, "Laptop")
	require.NotNil(t, rec.Subcategory)
	assert.Equal(t, "Notebooks", *rec.Subcategory)
	assert.NoError(t, rec.Validate())
}
