// Package memory provides similarity-based retrieval of past trading
// episodes. The decision pipeline only ever reads; episodes are recorded by
// an out-of-band labeling process (or the seed CLI).
package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/models"
)

// Store is the episodic memory contract. Retrieve returns episodes ordered
// by descending similarity, dropping candidates below the configured floor;
// an empty store yields an empty slice, not an error.
type Store interface {
	Retrieve(ctx context.Context, contextVector []float32, k int) ([]models.Episode, error)
	Record(ctx context.Context, ep models.Episode) error
}

// Embedder turns situation text into the context vector used for retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever is the best-effort read path handed to the pipeline: any
// embedding or store failure degrades to no episodes, so the run proceeds
// without historical context rather than failing.
type Retriever struct {
	store    Store
	embedder Embedder
	logger   *zap.Logger
}

func NewRetriever(store Store, embedder Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Lookup embeds the situation text and retrieves the top k episodes.
// Never returns an error.
func (r *Retriever) Lookup(ctx context.Context, situation string, k int) []models.Episode {
	if r == nil || r.store == nil || situation == "" || k <= 0 {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, situation)
	if err != nil {
		r.logger.Warn("memory embedding failed, proceeding without episodes", zap.Error(err))
		return nil
	}
	episodes, err := r.store.Retrieve(ctx, vec, k)
	if err != nil {
		r.logger.Warn("memory retrieval failed, proceeding without episodes", zap.Error(err))
		return nil
	}
	return episodes
}
