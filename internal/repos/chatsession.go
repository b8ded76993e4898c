package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/types"
)

type ChatSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.ChatSession) (*types.ChatSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatSession, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.SessionPatch) (bool, error)
	Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{
		db:  db,
		log: baseLog.With("repo", "ChatSessionRepo"),
	}
}

func (csr *chatSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.ChatSession) (*types.ChatSession, error) {
	if tx == nil {
		tx = csr.db
	}
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	session.Metadata = types.NormalizeMetadata(session.Metadata)
	if err := tx.WithContext(ctx).Create(session).Error; err != nil {
		csr.log.Error("failed to create chat session", "error", err)
		return nil, err
	}
	csr.log.Debug("chat session created", "sessionID", session.SessionID)
	return session, nil
}

// GetByID returns (nil, nil) when no session with the given id exists.
func (csr *chatSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatSession, error) {
	if tx == nil {
		tx = csr.db
	}
	var s types.ChatSession
	if err := tx.WithContext(ctx).
		Where("session_id = ?", id).
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		csr.log.Error("failed to get chat session by id", "error", err, "sessionID", id)
		return nil, err
	}
	return &s, nil
}

// Update applies the patch to one session row. Only fields present in the
// patch are touched; metadata merges into the stored map instead of
// replacing it. Reports whether a row matched. A patch with neither field
// set is a no-op and reports false without a round trip. updated_at is
// left alone; only message inserts advance it.
func (csr *chatSessionRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.SessionPatch) (bool, error) {
	if tx == nil {
		tx = csr.db
	}
	if patch.IsZero() {
		return false, nil
	}
	res := tx.WithContext(ctx).
		Model(&types.ChatSession{}).
		Where("session_id = ?", id).
		UpdateColumns(compilePatch(patch))
	if res.Error != nil {
		csr.log.Error("failed to update chat session", "error", res.Error, "sessionID", id)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Touch advances the session's updated_at to the current server time.
func (csr *chatSessionRepo) Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = csr.db
	}
	if err := tx.WithContext(ctx).
		Model(&types.ChatSession{}).
		Where("session_id = ?", id).
		UpdateColumn("updated_at", gorm.Expr("NOW()")).Error; err != nil {
		csr.log.Error("failed to touch chat session", "error", err, "sessionID", id)
		return err
	}
	return nil
}

// compilePatch maps a patch onto the columns it touches. Metadata compiles
// to a jsonb concatenation so incoming keys union into the stored map,
// incoming values winning on collision.
func compilePatch(patch types.SessionPatch) map[string]interface{} {
	cols := make(map[string]interface{}, 2)
	if patch.CurrentPage != nil {
		cols["current_page"] = *patch.CurrentPage
	}
	if patch.Metadata != nil {
		cols["metadata"] = gorm.Expr("metadata || ?::jsonb", patch.Metadata)
	}
	return cols
}
