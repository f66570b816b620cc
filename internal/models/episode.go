package models

import "time"

// Outcome is the resolved result of a past trade.
type Outcome struct {
	Return  float64 `json:"return"`
	Success bool    `json:"success"`
}

// Episode is one recorded trading outcome used for similarity retrieval.
// Episodes are written by an out-of-band labeling process after a trade
// resolves; the decision pipeline only ever reads them.
type Episode struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	ContextFeatures []float32 `json:"context_features"`
	Outcome         Outcome   `json:"outcome"`
	Lesson          string    `json:"lesson"`
	CreatedAt       time.Time `json:"created_at"`

	// SimilarityScore is populated only on retrieval, in [0,1].
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}
