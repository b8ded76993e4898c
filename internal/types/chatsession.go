package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatSession struct {
	SessionID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:session_id" json:"sessionID"`
	// Both timestamps come from the database clock. Inserts leave them to
	// the column defaults and read the stamped values back, matching the
	// NOW() that Touch writes.
	CreatedAt   time.Time         `gorm:"not null;default:now();autoCreateTime:false" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"not null;default:now();autoUpdateTime:false" json:"updatedAt"`
	UserAgent   *string           `gorm:"column:user_agent" json:"userAgent,omitempty"`
	CurrentPage *string           `gorm:"column:current_page" json:"currentPage,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// SessionPatch enumerates the optional fields of a partial session update.
// Nil fields are left untouched. Metadata merges into the existing map
// (shallow union, incoming keys win) rather than replacing it; a non-nil
// empty map runs a merge that changes nothing but still matches the row.
type SessionPatch struct {
	CurrentPage *string
	Metadata    datatypes.JSONMap
}

// IsZero reports whether the patch supplies no fields at all. A non-nil
// empty metadata map counts as supplied.
func (p SessionPatch) IsZero() bool {
	return p.CurrentPage == nil && p.Metadata == nil
}
