package kleinanzeigen

import (
	"context"
	"sync"

	"github.com/trichling/Kleinanzeiger/internal/ad"
)

// MockPoster is a test double for AdPoster. The CreateAd behavior can be
// overridden with a custom function; without one it records the call and
// succeeds. Thread-safe for use in concurrent tests.
type MockPoster struct {
	CreateAdFunc func(ctx context.Context, rec ad.AdRecord, imagePaths []string, saveAsDraft bool) error

	mu sync.Mutex

	// Calls tracks all invocations for assertions
	Calls []MockCall
}

// MockCall records a CreateAd call for test assertions.
type MockCall struct {
	Record      ad.AdRecord
	ImagePaths  []string
	SaveAsDraft bool
}

// Ensure MockPoster implements AdPoster
var _ AdPoster = (*MockPoster)(nil)

func (m *MockPoster) CreateAd(ctx context.Context, rec ad.AdRecord, imagePaths []string, saveAsDraft bool) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Record: rec, ImagePaths: imagePaths, SaveAsDraft: saveAsDraft})
	fn := m.CreateAdFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, rec, imagePaths, saveAsDraft)
	}
	return nil
}
