package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/types"
)

type EmbeddingRepo interface {
	Insert(ctx context.Context, tx *gorm.DB, emb *types.DocumentEmbedding) (*types.DocumentEmbedding, error)
	BatchInsert(ctx context.Context, tx *gorm.DB, inputs []types.EmbeddingInput) ([]uuid.UUID, error)
	SearchSimilar(ctx context.Context, tx *gorm.DB, query []float32, opts types.SearchOptions) ([]*types.SimilarChunk, error)
	DeleteBySource(ctx context.Context, tx *gorm.DB, sourceType, sourceID string) (int64, error)
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{
		db:  db,
		log: baseLog.With("repo", "EmbeddingRepo"),
	}
}

func (er *embeddingRepo) Insert(ctx context.Context, tx *gorm.DB, emb *types.DocumentEmbedding) (*types.DocumentEmbedding, error) {
	if tx == nil {
		tx = er.db
	}
	if got := len(emb.Embedding.Slice()); got != types.EmbeddingDim {
		return nil, fmt.Errorf("embedding must have %d dimensions, got %d", types.EmbeddingDim, got)
	}
	if emb.EmbeddingID == uuid.Nil {
		emb.EmbeddingID = uuid.New()
	}
	emb.Metadata = types.NormalizeMetadata(emb.Metadata)
	if err := tx.WithContext(ctx).Create(emb).Error; err != nil {
		er.log.Error("failed to insert document embedding", "error", err, "sourceType", emb.SourceType, "sourceID", emb.SourceID)
		return nil, err
	}
	return emb, nil
}

// BatchInsert persists every record inside one transaction. The first
// failure, a wrong-length vector included, aborts the batch and leaves
// zero rows behind.
func (er *embeddingRepo) BatchInsert(ctx context.Context, tx *gorm.DB, inputs []types.EmbeddingInput) ([]uuid.UUID, error) {
	if tx == nil {
		tx = er.db
	}
	if len(inputs) == 0 {
		return []uuid.UUID{}, nil
	}
	rows := make([]*types.DocumentEmbedding, 0, len(inputs))
	for i, in := range inputs {
		if len(in.Embedding) != types.EmbeddingDim {
			return nil, fmt.Errorf("record %d: embedding must have %d dimensions, got %d", i, types.EmbeddingDim, len(in.Embedding))
		}
		rows = append(rows, &types.DocumentEmbedding{
			EmbeddingID:  uuid.New(),
			SourceType:   in.SourceType,
			SourceID:     in.SourceID,
			ContentChunk: in.ContentChunk,
			Embedding:    pgvector.NewVector(in.Embedding),
			Metadata:     types.NormalizeMetadata(in.Metadata),
		})
	}
	err := tx.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		for _, row := range rows {
			if err := txn.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		er.log.Error("failed to batch insert embeddings, batch rolled back", "error", err, "count", len(inputs))
		return nil, err
	}
	er.log.Debug("embeddings batch inserted", "count", len(rows))
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.EmbeddingID
	}
	return ids, nil
}

// SearchSimilar ranks stored chunks by cosine similarity to the query
// vector, most similar first. The similarity floor in opts applies before
// the page is cut and holds at a zero threshold too; only a negative
// threshold lifts it.
func (er *embeddingRepo) SearchSimilar(ctx context.Context, tx *gorm.DB, query []float32, opts types.SearchOptions) ([]*types.SimilarChunk, error) {
	if tx == nil {
		tx = er.db
	}
	if len(query) != types.EmbeddingDim {
		return nil, fmt.Errorf("query embedding must have %d dimensions, got %d", types.EmbeddingDim, len(query))
	}
	sql, args := buildSimilarityQuery(pgvector.NewVector(query), opts)
	var chunks []*types.SimilarChunk
	if err := tx.WithContext(ctx).Raw(sql, args...).Scan(&chunks).Error; err != nil {
		er.log.Error("failed to search similar embeddings", "error", err, "sourceType", opts.SourceType)
		return nil, err
	}
	er.log.Debug("similarity search complete", "results", len(chunks), "sourceType", opts.SourceType)
	return chunks, nil
}

func (er *embeddingRepo) DeleteBySource(ctx context.Context, tx *gorm.DB, sourceType, sourceID string) (int64, error) {
	if tx == nil {
		tx = er.db
	}
	res := tx.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Delete(&types.DocumentEmbedding{})
	if res.Error != nil {
		er.log.Error("failed to delete embeddings by source", "error", res.Error, "sourceType", sourceType, "sourceID", sourceID)
		return 0, res.Error
	}
	er.log.Debug("embeddings deleted by source", "sourceType", sourceType, "sourceID", sourceID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}

// buildSimilarityQuery assembles the ranked nearest-neighbor statement
// from fixed fragments. Similarity is 1 - cosine_distance, so ordering by
// the <=> operator ascending yields most-similar-first. The query vector
// binds once per site that mentions it.
func buildSimilarityQuery(vec pgvector.Vector, opts types.SearchOptions) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT embedding_id, source_type, source_id, content_chunk, metadata, 1 - (embedding <=> ?) AS similarity FROM document_embeddings`)
	args := []interface{}{vec}

	conds := make([]string, 0, 2)
	if opts.SourceType != "" {
		conds = append(conds, "source_type = ?")
		args = append(args, opts.SourceType)
	}
	// The floor stays on at zero; anti-correlated rows score below it.
	if opts.Threshold >= 0 {
		conds = append(conds, "1 - (embedding <=> ?) >= ?")
		args = append(args, vec, opts.Threshold)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = types.DefaultSearchLimit
	}
	sb.WriteString(" ORDER BY embedding <=> ? LIMIT ?")
	args = append(args, vec, limit)

	return sb.String(), args
}
