package kleinanzeigen

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
)

// BaseURL is the default site address.
const BaseURL = "https://www.kleinanzeigen.de"

const postAdPath = "/p-anzeige-aufgeben.html"

const pageLoadTimeout = 30 * time.Second

// Automator posts an AdRecord through the site's posting form.
type Automator struct {
	client  *CDPClient
	baseURL string
}

// NewAutomator creates an Automator over an attached CDP client.
func NewAutomator(client *CDPClient, baseURL string) *Automator {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Automator{client: client, baseURL: baseURL}
}

// CreateAd implements the AdPoster interface.
func (a *Automator) CreateAd(ctx context.Context, rec ad.AdRecord, imagePaths []string, saveAsDraft bool) error {
	log.Info().Str("title", rec.Title).Bool("draft", saveAsDraft).Msg("creating ad")

	if err := a.client.Navigate(ctx, a.baseURL+postAdPath); err != nil {
		return err
	}
	if err := a.waitForLoad(ctx); err != nil {
		return err
	}

	loggedIn, err := a.isLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !loggedIn {
		return fmt.Errorf("not logged in to %s, log in manually in the browser first", a.baseURL)
	}

	if err := a.fillForm(ctx, rec); err != nil {
		return err
	}

	if len(imagePaths) > 0 {
		if err := a.uploadImages(ctx, imagePaths); err != nil {
			return err
		}
	}

	if saveAsDraft {
		return a.clickButton(ctx, "Als Entwurf speichern", "Entwurf")
	}
	return a.clickButton(ctx, "Anzeige aufgeben", "Aufgeben")
}

// waitForLoad polls document.readyState until the page has finished loading.
func (a *Automator) waitForLoad(ctx context.Context) error {
	deadline := time.Now().Add(pageLoadTimeout)
	for {
		var state string
		if err := a.client.Evaluate(ctx, "document.readyState", &state); err != nil {
			return err
		}
		if state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("page did not finish loading within %s", pageLoadTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// isLoggedIn checks for the login link that is only rendered for anonymous
// visitors.
func (a *Automator) isLoggedIn(ctx context.Context) (bool, error) {
	var loggedOut bool
	err := a.client.Evaluate(ctx, `!!document.querySelector('a[href*="m-einloggen"]')`, &loggedOut)
	if err != nil {
		return false, err
	}
	return !loggedOut, nil
}

func (a *Automator) fillForm(ctx context.Context, rec ad.AdRecord) error {
	fields := []struct {
		label    string
		selector string
		value    string
	}{
		{"title", `#postad-title, input[name="title"]`, rec.Title},
		{"description", `#pstad-descrptn, textarea[name="description"]`, rec.Description},
		{"price", `#pstad-price, input[name="priceAmount"]`, strconv.Itoa(int(rec.Price))},
		{"postal code", `#pstad-zip, input[name="zipCode"]`, rec.PostalCode},
	}
	for _, f := range fields {
		if err := a.setField(ctx, f.selector, f.value); err != nil {
			return fmt.Errorf("failed to fill %s: %w", f.label, err)
		}
		log.Debug().Str("field", f.label).Msg("form field filled")
	}

	// Shipping is a radio group; PICKUP maps to the pickup-only option.
	if rec.ShippingType == ad.ShippingPickup {
		script := `(() => {
			const radio = document.querySelector('input[value="PICKUP"], input[name="shippingType"][value="pickup"]');
			if (!radio) return false;
			radio.click();
			return true;
		})()`
		var ok bool
		if err := a.client.Evaluate(ctx, script, &ok); err != nil {
			return err
		}
		if !ok {
			// Not every category renders the shipping widget.
			log.Warn().Msg("shipping type selector not found, leaving site default")
		}
	}
	return nil
}

// setField writes a value into an input or textarea and fires the events the
// site's form validation listens for.
func (a *Automator) setField(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.focus();
		el.value = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector, value)

	var ok bool
	if err := a.client.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

func (a *Automator) uploadImages(ctx context.Context, imagePaths []string) error {
	files := make([]string, len(imagePaths))
	for i, p := range imagePaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve image path %s: %w", p, err)
		}
		files[i] = abs
	}

	if err := a.client.SetFileInput(ctx, `input[type="file"]`, files); err != nil {
		return fmt.Errorf("failed to upload images: %w", err)
	}
	log.Info().Int("imageCount", len(files)).Msg("images attached to upload input")

	// Give the site a moment to process the uploads before submitting.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return nil
}

// clickButton clicks the first button whose text contains one of the labels.
func (a *Automator) clickButton(ctx context.Context, labels ...string) error {
	script := fmt.Sprintf(`(() => {
		const labels = %s;
		const buttons = document.querySelectorAll('button, input[type="submit"]');
		for (const b of buttons) {
			const text = (b.innerText || b.value || '').trim();
			if (labels.some(l => text.includes(l))) {
				b.click();
				return true;
			}
		}
		return false;
	})()`, jsStringArray(labels))

	var ok bool
	if err := a.client.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no button found matching %v", labels)
	}
	log.Info().Strs("labels", labels).Msg("submit button clicked")
	return nil
}

func jsStringArray(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += strconv.Quote(item)
	}
	return out + "]"
}
