package types

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDim is the fixed dimensionality of every stored vector. The
// vector(384) column type enforces the same bound server-side.
const EmbeddingDim = 384

// DefaultSearchLimit is the result page size for SearchSimilar when the
// caller passes a non-positive limit.
const DefaultSearchLimit = 5

type DocumentEmbedding struct {
	EmbeddingID  uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:embedding_id" json:"embeddingID"`
	SourceType   string            `gorm:"not null;index;column:source_type" json:"sourceType"`
	SourceID     string            `gorm:"not null;column:source_id" json:"sourceID"`
	ContentChunk string            `gorm:"not null;column:content_chunk" json:"contentChunk"`
	Embedding    pgvector.Vector   `gorm:"type:vector(384);not null" json:"-"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
}

func (DocumentEmbedding) TableName() string {
	return "document_embeddings"
}

// EmbeddingInput is one record of a batch insert.
type EmbeddingInput struct {
	SourceType   string
	SourceID     string
	ContentChunk string
	Embedding    []float32
	Metadata     datatypes.JSONMap
}

// SimilarChunk is one ranked similarity-search result. Similarity is
// 1 - cosine_distance(embedding, query), so identical vectors score 1.0.
type SimilarChunk struct {
	EmbeddingID  uuid.UUID         `json:"embeddingID"`
	SourceType   string            `json:"sourceType"`
	SourceID     string            `json:"sourceID"`
	ContentChunk string            `json:"contentChunk"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	Similarity   float64           `json:"similarity"`
}

// SearchOptions narrows and bounds a similarity search. The zero value
// means no source filter, the default limit and a zero similarity floor;
// a negative Threshold lifts the floor so anti-correlated chunks can rank.
type SearchOptions struct {
	SourceType string
	Limit      int
	Threshold  float64
}
