package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/ashareq/tradeflow/internal/models"
)

// PgStore persists episodes in Postgres with pgvector similarity search.
// Many pipeline runs read it concurrently; the pool handles that.
type PgStore struct {
	db    *pgxpool.Pool
	floor float64
}

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS episodes (
    id UUID PRIMARY KEY,
    symbol TEXT NOT NULL,
    context_features vector(1536),
    trade_return DOUBLE PRECISION NOT NULL,
    success BOOLEAN NOT NULL,
    lesson TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS episodes_embedding_idx
    ON episodes USING hnsw (context_features vector_cosine_ops);
`

func NewPgStore(ctx context.Context, dsn string, similarityFloor float64) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("memory: ensure schema: %w", err)
	}
	return &PgStore{db: pool, floor: similarityFloor}, nil
}

func (s *PgStore) Close() { s.db.Close() }

func (s *PgStore) Record(ctx context.Context, ep models.Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	vec := pgvector.NewVector(ep.ContextFeatures)
	_, err := s.db.Exec(ctx,
		`INSERT INTO episodes (id, symbol, context_features, trade_return, success, lesson, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ep.ID, ep.Symbol, vec, ep.Outcome.Return, ep.Outcome.Success, ep.Lesson, ep.CreatedAt)
	if err != nil {
		return fmt.Errorf("memory: record episode: %w", err)
	}
	return nil
}

func (s *PgStore) Retrieve(ctx context.Context, contextVector []float32, k int) ([]models.Episode, error) {
	if k <= 0 || len(contextVector) == 0 {
		return []models.Episode{}, nil
	}

	vec := pgvector.NewVector(contextVector)
	rows, err := s.db.Query(ctx,
		`SELECT id, symbol, trade_return, success, lesson, created_at,
		        1 - (context_features <=> $1) AS similarity
		 FROM episodes
		 WHERE context_features IS NOT NULL
		   AND 1 - (context_features <=> $1) >= $2
		 ORDER BY context_features <=> $1
		 LIMIT $3`,
		vec, s.floor, k)
	if err != nil {
		return nil, fmt.Errorf("memory: retrieve: %w", err)
	}
	defer rows.Close()

	episodes := make([]models.Episode, 0, k)
	for rows.Next() {
		var ep models.Episode
		if err := rows.Scan(&ep.ID, &ep.Symbol, &ep.Outcome.Return, &ep.Outcome.Success,
			&ep.Lesson, &ep.CreatedAt, &ep.SimilarityScore); err != nil {
			return nil, fmt.Errorf("memory: scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}
