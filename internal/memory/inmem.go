package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashareq/tradeflow/internal/models"
)

// InMemStore is a cosine-similarity episode store for local runs and tests.
// Safe for concurrent readers across independent pipeline runs.
type InMemStore struct {
	mu       sync.RWMutex
	episodes []models.Episode
	floor    float64
}

func NewInMemStore(similarityFloor float64) *InMemStore {
	return &InMemStore{floor: similarityFloor}
}

func (s *InMemStore) Record(_ context.Context, ep models.Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = append(s.episodes, ep)
	return nil
}

func (s *InMemStore) Retrieve(_ context.Context, contextVector []float32, k int) ([]models.Episode, error) {
	if k <= 0 || len(contextVector) == 0 {
		return []models.Episode{}, nil
	}

	s.mu.RLock()
	candidates := make([]models.Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		score := cosineSimilarity(contextVector, ep.ContextFeatures)
		if score < s.floor {
			continue
		}
		ep.SimilarityScore = score
		candidates = append(candidates, ep)
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// cosineSimilarity maps into [0,1]; mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
