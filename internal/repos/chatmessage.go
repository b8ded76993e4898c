package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagechat-org/pagechat-backend/internal/logger"
	"github.com/pagechat-org/pagechat-backend/internal/types"
)

type ChatMessageRepo interface {
	Insert(ctx context.Context, tx *gorm.DB, msg *types.ChatMessage) (*types.ChatMessage, error)
	GetHistory(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit, offset int) ([]*types.ChatMessage, error)
}

type chatMessageRepo struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions ChatSessionRepo
}

// NewChatMessageRepo wires the session repo in because every message
// insert bumps the owning session's updated_at.
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger, sessions ChatSessionRepo) ChatMessageRepo {
	return &chatMessageRepo{
		db:       db,
		log:      baseLog.With("repo", "ChatMessageRepo"),
		sessions: sessions,
	}
}

// Insert persists the message, then advances the owning session's
// updated_at. The two statements run in sequence on the same handle; they
// are only atomic together when the caller passes a transaction.
func (cmr *chatMessageRepo) Insert(ctx context.Context, tx *gorm.DB, msg *types.ChatMessage) (*types.ChatMessage, error) {
	if tx == nil {
		tx = cmr.db
	}
	if !types.ValidRole(msg.Role) {
		return nil, fmt.Errorf("invalid message role %q (want %s, %s or %s)", msg.Role, types.RoleUser, types.RoleAssistant, types.RoleSystem)
	}
	if msg.MessageID == uuid.Nil {
		msg.MessageID = uuid.New()
	}
	msg.Metadata = types.NormalizeMetadata(msg.Metadata)
	if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
		cmr.log.Error("failed to insert chat message", "error", err, "sessionID", msg.SessionID)
		return nil, err
	}
	if err := cmr.sessions.Touch(ctx, tx, msg.SessionID); err != nil {
		return nil, err
	}
	cmr.log.Debug("chat message inserted", "messageID", msg.MessageID, "sessionID", msg.SessionID, "role", msg.Role)
	return msg, nil
}

// GetHistory returns one page of a session's messages in ascending
// creation order. A non-positive limit falls back to DefaultHistoryLimit;
// a negative offset is clamped to zero.
func (cmr *chatMessageRepo) GetHistory(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit, offset int) ([]*types.ChatMessage, error) {
	if tx == nil {
		tx = cmr.db
	}
	if limit <= 0 {
		limit = types.DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	var msgs []*types.ChatMessage
	if err := tx.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		cmr.log.Error("failed to get chat history", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return msgs, nil
}
