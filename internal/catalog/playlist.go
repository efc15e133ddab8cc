package catalog

import (
	"context"
	"math/rand"
	"sync"

	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// PlaylistEnricher expands a seed playlist with similar tracks. For each
// seed it fetches the nearest neighbors, keeps the seed (the self-match at
// the head of the results) and samples a random subset of the rest without
// replacement.
type PlaylistEnricher struct {
	catalog *Catalog
	logger  logging.Logger

	// rand.Rand is not goroutine-safe; concurrent requests share this one
	// source, so all draws go through sampleCandidates under the lock.
	mu  sync.Mutex
	rng *rand.Rand
}

// neighbors fetched per seed: the self-match plus five candidates
const enrichmentNeighbors = 6

// NewPlaylistEnricher creates an enricher over the catalog. The random
// source is injectable so tests can pin the sampling.
func NewPlaylistEnricher(catalog *Catalog, rng *rand.Rand) *PlaylistEnricher {
	return &PlaylistEnricher{
		catalog: catalog,
		rng:     rng,
		logger: logging.WithFields(logging.Fields{
			"component": "playlist_enricher",
		}),
	}
}

// Enrich builds the enriched playlist for the given seed track ids.
// Unknown seeds surface ErrTrackNotFound.
func (pe *PlaylistEnricher) Enrich(ctx context.Context, trackIDs []uint64) ([]Track, error) {
	var enriched []Track

	for _, id := range trackIDs {
		similar, err := pe.catalog.MostSimilarByID(ctx, id, enrichmentNeighbors, Filter{})
		if err != nil {
			return nil, err
		}
		if len(similar) == 0 {
			continue
		}

		// The first result is the seed itself
		seed, candidates := similar[0], similar[1:]
		enriched = append(enriched, seed.Track)

		if len(candidates) == 0 {
			continue
		}

		for _, idx := range pe.sampleCandidates(len(candidates)) {
			enriched = append(enriched, candidates[idx].Track)
		}
	}

	pe.logger.Debug("playlist enriched", logging.Fields{
		"seeds":  len(trackIDs),
		"tracks": len(enriched),
	})

	return enriched, nil
}

// sampleCandidates draws 1..n distinct candidate indices from the shared
// random source. Enrich requests carry no other mutable state, so this is
// the only section that needs the lock.
func (pe *PlaylistEnricher) sampleCandidates(n int) []int {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	count := 1 + pe.rng.Intn(n)
	return pe.rng.Perm(n)[:count]
}
