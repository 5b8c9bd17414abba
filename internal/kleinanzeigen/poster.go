// Package kleinanzeigen drives the kleinanzeigen.de posting form in an
// already-running browser session over the Chrome DevTools Protocol.
package kleinanzeigen

import (
	"context"

	"github.com/trichling/Kleinanzeiger/internal/ad"
)

// AdPoster abstracts the browser automation that submits a listing.
// This interface allows for easy mocking in tests.
type AdPoster interface {
	// CreateAd fills and submits the posting form for the given record,
	// uploading images in the given order. With saveAsDraft the listing is
	// stored as a draft instead of being published.
	CreateAd(ctx context.Context, rec ad.AdRecord, imagePaths []string, saveAsDraft bool) error
}

// Ensure Automator implements AdPoster
var _ AdPoster = (*Automator)(nil)
