package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"smart-home-bot/internal/domain"
)

const defaultEmbeddingCacheSize = 1024

type ResolverConfig struct {
	// CacheSize bounds the number of cached description vectors.
	CacheSize int
	// MinSimilarity rejects best matches scoring below it. Zero or less disables the floor.
	MinSimilarity float64
}

// Resolver maps a fuzzy device reference onto the closest candidate by cosine
// similarity of embeddings.
type Resolver struct {
	embedder      Embedder
	cache         *lru.Cache[string, []float32]
	minSimilarity float64
	logger        *slog.Logger
}

func NewResolver(embedder Embedder, cfg ResolverConfig, logger *slog.Logger) (*Resolver, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultEmbeddingCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &Resolver{
		embedder:      embedder,
		cache:         cache,
		minSimilarity: cfg.MinSimilarity,
		logger:        logger,
	}, nil
}

// Resolve returns the candidate most similar to query. Ties go to the
// earliest candidate. It reports false for an empty candidate list, an
// embedding failure or a best score under the configured floor.
func (r *Resolver) Resolve(ctx context.Context, query string, candidates []domain.Device) (domain.Device, bool) {
	if len(candidates) == 0 {
		return domain.Device{}, false
	}

	descriptions := make([]string, len(candidates))
	for i, c := range candidates {
		descriptions[i] = c.Describe()
	}

	vectors, err := r.vectors(ctx, descriptions)
	if err != nil {
		r.logger.Error("embedding device descriptions", "error", err)
		return domain.Device{}, false
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Error("embedding device query", "query", query, "error", err)
		return domain.Device{}, false
	}

	best := 0
	bestScore := math.Inf(-1)
	for i, v := range vectors {
		score := cosineSimilarity(queryVec, v)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	if r.minSimilarity > 0 && bestScore < r.minSimilarity {
		r.logger.Info("best device match below similarity floor",
			"query", query,
			"device", candidates[best].Name,
			"score", bestScore,
			"min_similarity", r.minSimilarity,
		)
		return domain.Device{}, false
	}

	r.logger.Debug("resolved device", "query", query, "device", candidates[best].Name, "score", bestScore)
	return candidates[best], true
}

// Warm embeds the descriptions of devices that are not cached yet.
func (r *Resolver) Warm(ctx context.Context, devices []domain.Device) error {
	descriptions := make([]string, len(devices))
	for i, d := range devices {
		descriptions[i] = d.Describe()
	}
	if _, err := r.vectors(ctx, descriptions); err != nil {
		return fmt.Errorf("warming embedding cache: %w", err)
	}
	return nil
}

// vectors returns one vector per description, embedding only the cache
// misses and doing so in a single batch.
func (r *Resolver) vectors(ctx context.Context, descriptions []string) ([][]float32, error) {
	out := make([][]float32, len(descriptions))

	var missing []string
	missingIdx := map[string][]int{}
	for i, d := range descriptions {
		if v, ok := r.cache.Get(d); ok {
			out[i] = v
			continue
		}
		if _, seen := missingIdx[d]; !seen {
			missing = append(missing, d)
		}
		missingIdx[d] = append(missingIdx[d], i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	embedded, err := r.embedder.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embedding %d descriptions: %w", len(missing), err)
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d descriptions", len(embedded), len(missing))
	}

	for i, d := range missing {
		r.cache.Add(d, embedded[i])
		for _, idx := range missingIdx[d] {
			out[idx] = embedded[i]
		}
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
