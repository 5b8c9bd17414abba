// Command kleinanzeiger analyzes a folder of product photos, generates ad
// content and posts the listing on kleinanzeigen.de through an
// already-running browser session.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/config"
	"github.com/trichling/Kleinanzeiger/internal/category"
	"github.com/trichling/Kleinanzeiger/internal/content"
	"github.com/trichling/Kleinanzeiger/internal/kleinanzeigen"
	"github.com/trichling/Kleinanzeiger/internal/storage"
	"github.com/trichling/Kleinanzeiger/internal/vision"
)

const logFileName = "kleinanzeiger.log"

var usageText = strings.TrimSpace(dedent.Dedent(`
	Usage: kleinanzeiger -image-folder <dir> -postal-code <plz> [options]

	Analyzes product photos, generates ad content and fills the posting form
	on kleinanzeigen.de. The browser must already be running with
	--remote-debugging-port=9222 and be logged in.

	Examples:
	  kleinanzeiger -image-folder ./products/laptop -postal-code 10115
	  kleinanzeiger -image-folder ./products/bike -postal-code 80331 -price 150

	Options:
`))

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	imageFolder := flag.String("image-folder", "", "folder containing the product images (required)")
	postalCode := flag.String("postal-code", "", "5-digit postal code for the ad location (required)")
	price := flag.Float64("price", -1, "override the suggested price in EUR")
	categoryHint := flag.String("category", "", "override the detected category")
	taxonomyPath := flag.String("taxonomy", "", "path to a custom categories.json")
	publish := flag.Bool("publish", false, "publish the ad instead of saving it as a draft")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *imageFolder == "" || *postalCode == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !isValidPostalCode(*postalCode) {
		fmt.Fprintln(os.Stderr, "postal code must be exactly 5 digits")
		os.Exit(2)
	}

	setupLogging()

	config.LoadEnvFile()
	cfg := config.FromEnv()
	if missing := cfg.CheckRequired(); len(missing) > 0 {
		log.Fatal().Strs("missing", missing).Msg("required environment variables are not set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Image analysis backend, wrapped with the sqlite cache when enabled.
	analyzer, err := vision.NewAnalyzer(ctx, cfg.VisionBackend)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vision backend")
	}
	log.Info().Str("backend", cfg.VisionBackend).Msg("vision backend initialized")

	if cfg.CachePath != "" {
		store, err := storage.NewSQLiteStore(cfg.CachePath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open vision cache, continuing without")
		} else {
			defer store.Close()
			analyzer = vision.NewCachedAnalyzer(analyzer, store)
			log.Info().Str("cachePath", cfg.CachePath).Msg("vision analysis caching enabled")
		}
	}

	enhancer, err := content.NewEnhancer(ctx, cfg.ContentBackend)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize content backend")
	}
	log.Info().Str("backend", enhancer.Name()).Msg("content backend initialized")

	taxonomy := category.DefaultTaxonomy()
	if *taxonomyPath != "" {
		taxonomy, err = category.LoadTaxonomy(*taxonomyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load taxonomy")
		}
	}
	mapper := category.NewMapper(taxonomy)

	// Step 1: analyze the images.
	info, err := analyzer.AnalyzeFolder(ctx, *imageFolder, cfg.MaxImages)
	if err != nil {
		log.Fatal().Err(err).Str("stage", "vision").Msg("image analysis failed")
	}
	log.Info().Str("name", info.Name).Msg("product identified")

	if *categoryHint != "" {
		info.Category = categoryHint
	}

	// Step 2: map the category.
	mappedCategory, subcategory := mapper.Map(info.Name, info.Description, info.Category)

	// Step 3: generate the ad content.
	var priceOverride *float64
	if *price >= 0 {
		priceOverride = price
	}
	generator := content.NewGenerator(enhancer, content.WithDefaultPrice(cfg.DefaultPrice))
	rec, err := generator.GenerateAdContent(ctx, *info, *postalCode, mappedCategory, subcategory, priceOverride)
	if err != nil {
		log.Fatal().Err(err).Str("stage", "content").Msg("ad content generation failed")
	}

	// Step 4: drive the posting form. Nothing before this point touches the
	// browser, so earlier failures never leave a half-filled form behind.
	client, err := kleinanzeigen.ConnectBrowser(ctx, cfg.DebuggerURL)
	if err != nil {
		log.Fatal().Err(err).Str("stage", "automation").Msg("failed to connect to browser")
	}
	defer client.Close()

	automator := kleinanzeigen.NewAutomator(client, cfg.BaseURL)
	if err := automator.CreateAd(ctx, rec, info.ImagePaths, !*publish); err != nil {
		log.Fatal().Err(err).Str("stage", "automation").Msg("failed to create ad")
	}

	log.Info().Str("title", rec.Title).Float64("price", rec.Price).Msg("ad created successfully")
}

func setupLogging() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Logger = log.Output(consoleWriter)
		log.Warn().Err(err).Msg("failed to open log file, logging to stderr only")
		return
	}

	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
}

// isValidPostalCode validates German postal codes (5 digits).
func isValidPostalCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
