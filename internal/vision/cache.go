package vision

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/trichling/Kleinanzeiger/internal/ad"
	"github.com/trichling/Kleinanzeiger/internal/storage"
)

// CachedAnalyzer wraps an Analyzer with SQLite caching.
type CachedAnalyzer struct {
	inner Analyzer
	store storage.VisionCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store storage.VisionCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashImages creates a SHA256 hash from image data.
// Includes length prefix for each image to prevent boundary collisions.
func hashImages(images [][]byte) string {
	h := sha256.New()
	for _, img := range images {
		// Write length to prevent boundary collisions (e.g. [A,B] vs [AB])
		binary.Write(h, binary.LittleEndian, int64(len(img)))
		h.Write(img)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// hashFolder hashes the selected images of a folder the same way the
// analyzer would select them. Returns empty string when hashing is not
// possible; the caller then skips the cache.
func hashFolder(dir string, maxImages int) (string, []string) {
	paths, err := findImages(dir, maxImages)
	if err != nil {
		return "", nil
	}
	images := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", nil
		}
		images = append(images, data)
	}
	return hashImages(images), paths
}

// AnalyzeFolder implements the Analyzer interface with caching.
func (c *CachedAnalyzer) AnalyzeFolder(ctx context.Context, dir string, maxImages int) (*ad.ProductInfo, error) {
	hash, paths := hashFolder(dir, maxImages)

	if c.store != nil && hash != "" {
		cached, err := c.store.Get(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Info().Str("hash", hash[:16]).Msg("vision cache hit")
			// Image paths belong to this run, not the cached one.
			cached.ImagePaths = paths
			return cached, nil
		}
	}

	info, err := c.inner.AnalyzeFolder(ctx, dir, maxImages)
	if err != nil {
		return nil, err
	}

	if c.store != nil && hash != "" {
		if err := c.store.Set(hash, info); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
		}
	}

	return info, nil
}
