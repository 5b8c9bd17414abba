package kleinanzeigen

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trichling/Kleinanzeiger/internal/ad"
)

// fakePage scripts the browser side of a posting run.
type fakePage struct {
	mu          sync.Mutex
	loggedIn    bool
	expressions []string
	files       []string
}

func (p *fakePage) handle(method string, params json.RawMessage) (any, *cdpError) {
	switch method {
	case "Page.navigate":
		return map[string]any{"frameId": "1"}, nil
	case "DOM.getDocument":
		return map[string]any{"root": map[string]any{"nodeId": 1}}, nil
	case "DOM.querySelector":
		return map[string]any{"nodeId": 7}, nil
	case "DOM.setFileInputFiles":
		var in struct {
			Files []string `json:"files"`
		}
		json.Unmarshal(params, &in)
		p.mu.Lock()
		p.files = in.Files
		p.mu.Unlock()
		return map[string]any{}, nil
	case "Runtime.evaluate":
		var in struct {
			Expression string `json:"expression"`
		}
		json.Unmarshal(params, &in)
		p.mu.Lock()
		p.expressions = append(p.expressions, in.Expression)
		p.mu.Unlock()

		switch {
		case strings.Contains(in.Expression, "document.readyState"):
			return evalResult("complete"), nil
		case strings.Contains(in.Expression, "m-einloggen"):
			// The login link only exists for anonymous visitors.
			return evalResult(!p.loggedIn), nil
		default:
			return evalResult(true), nil
		}
	}
	return map[string]any{}, nil
}

func (p *fakePage) allExpressions() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.expressions, "\n")
}

func testRecord() ad.AdRecord {
	sub := "Notebooks"
	return ad.AdRecord{
		Title:        "Dell Laptop",
		Description:  "Guter Zustand.",
		Price:        200,
		Category:     "Elektronik",
		Subcategory:  &sub,
		Condition:    "Gebraucht",
		ShippingType: ad.ShippingPickup,
		PostalCode:   "10115",
	}
}

func TestCreateAdFillsFormAndSubmits(t *testing.T) {
	page := &fakePage{loggedIn: true}
	fd := newFakeDebugger(t, page.handle)
	client := connect(t, fd)

	auto := NewAutomator(client, "https://example.org")
	require.NoError(t, auto.CreateAd(context.Background(), testRecord(), nil, false))

	exprs := page.allExpressions()
	assert.Contains(t, exprs, `"Dell Laptop"`)
	assert.Contains(t, exprs, `"Guter Zustand."`)
	assert.Contains(t, exprs, `"200"`)
	assert.Contains(t, exprs, `"10115"`)
	assert.Contains(t, exprs, "Anzeige aufgeben")
	assert.NotContains(t, exprs, "Als Entwurf speichern")
}

func TestCreateAdSavesDraft(t *testing.T) {
	page := &fakePage{loggedIn: true}
	fd := newFakeDebugger(t, page.handle)
	client := connect(t, fd)

	auto := NewAutomator(client, "https://example.org")
	require.NoError(t, auto.CreateAd(context.Background(), testRecord(), nil, true))

	assert.Contains(t, page.allExpressions(), "Als Entwurf speichern")
}

func TestCreateAdRequiresLogin(t *testing.T) {
	page := &fakePage{loggedIn: false}
	fd := newFakeDebugger(t, page.handle)
	client := connect(t, fd)

	auto := NewAutomator(client, "https://example.org")
	err := auto.CreateAd(context.Background(), testRecord(), nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestCreateAdUploadsImages(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(img, []byte("img"), 0o644))

	page := &fakePage{loggedIn: true}
	fd := newFakeDebugger(t, page.handle)
	client := connect(t, fd)

	auto := NewAutomator(client, "https://example.org")
	require.NoError(t, auto.CreateAd(context.Background(), testRecord(), []string{img}, true))

	require.Len(t, page.files, 1)
	assert.True(t, filepath.IsAbs(page.files[0]))
	assert.Equal(t, img, page.files[0])
}

func TestJSStringArray(t *testing.T) {
	assert.Equal(t, `[]`, jsStringArray(nil))
	assert.Equal(t, `["a"]`, jsStringArray([]string{"a"}))
	assert.Equal(t, `["a", "b \"c\""]`, jsStringArray([]string{"a", `b "c"`}))
}

func TestMockPosterRecordsCalls(t *testing.T) {
	mock := &MockPoster{}

	require.NoError(t, mock.CreateAd(context.Background(), testRecord(), []string{"a.jpg"}, true))
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, "Dell Laptop", mock.Calls[0].Record.Title)
	assert.Equal(t, []string{"a.jpg"}, mock.Calls[0].ImagePaths)
	assert.True(t, mock.Calls[0].SaveAsDraft)

	mock.CreateAdFunc = func(context.Context, ad.AdRecord, []string, bool) error {
		return assert.AnError
	}
	err := mock.CreateAd(context.Background(), testRecord(), nil, false)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, mock.Calls, 2)
}
