package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/types"
)

type TextSelectionRepo interface {
	Insert(ctx context.Context, tx *gorm.DB, sel *types.TextSelection) (*types.TextSelection, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]*types.TextSelection, error)
}

type textSelectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTextSelectionRepo(db *gorm.DB, baseLog *logger.Logger) TextSelectionRepo {
	return &textSelectionRepo{
		db:  db,
		log: baseLog.With("repo", "TextSelectionRepo"),
	}
}

func (tsr *textSelectionRepo) Insert(ctx context.Context, tx *gorm.DB, sel *types.TextSelection) (*types.TextSelection, error) {
	if tx == nil {
		tx = tsr.db
	}
	if sel.Embedding != nil {
		if got := len(sel.Embedding.Slice()); got != types.EmbeddingDim {
			return nil, fmt.Errorf("selection embedding must have %d dimensions, got %d", types.EmbeddingDim, got)
		}
	}
	if sel.SelectionID == uuid.Nil {
		sel.SelectionID = uuid.New()
	}
	sel.Metadata = types.NormalizeMetadata(sel.Metadata)
	if err := tx.WithContext(ctx).Create(sel).Error; err != nil {
		tsr.log.Error("failed to insert text selection", "error", err, "sessionID", sel.SessionID)
		return nil, err
	}
	tsr.log.Debug("text selection inserted", "selectionID", sel.SelectionID, "sessionID", sel.SessionID)
	return sel, nil
}

// GetBySessionID returns the session's selections, most recent first. A
// non-positive limit falls back to DefaultSelectionsLimit.
func (tsr *textSelectionRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]*types.TextSelection, error) {
	if tx == nil {
		tx = tsr.db
	}
	if limit <= 0 {
		limit = types.DefaultSelectionsLimit
	}
	var sels []*types.TextSelection
	if err := tx.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sels).Error; err != nil {
		tsr.log.Error("failed to get text selections by sessionID", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return sels, nil
}
