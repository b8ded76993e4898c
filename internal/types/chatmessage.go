package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidRole reports whether role is one of the three accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DefaultHistoryLimit is the page size for GetHistory when the caller
// passes a non-positive limit.
const DefaultHistoryLimit = 50

// ChatMessage rows are immutable once inserted.
type ChatMessage struct {
	MessageID   uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:message_id" json:"messageID"`
	SessionID   uuid.UUID         `gorm:"type:uuid;not null;index;column:session_id" json:"sessionID"`
	Role        string            `gorm:"not null;column:role" json:"role"`
	Content     string            `gorm:"not null;column:content" json:"content"`
	CreatedAt   time.Time         `gorm:"not null;default:now();autoCreateTime:false" json:"createdAt"`
	TokenUsage  int               `gorm:"not null;default:0;column:token_usage" json:"tokenUsage"`
	PageContext *string           `gorm:"column:page_context" json:"pageContext,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
