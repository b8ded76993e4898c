package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DefaultSelectionsLimit is the page size for GetBySessionID when the
// caller passes a non-positive limit.
const DefaultSelectionsLimit = 10

// TextSelection records a passage the user highlighted on a page. Rows are
// immutable once inserted. The embedding is optional.
type TextSelection struct {
	SelectionID  uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey;column:selection_id" json:"selectionID"`
	SessionID    uuid.UUID         `gorm:"type:uuid;not null;index;column:session_id" json:"sessionID"`
	SelectedText string            `gorm:"not null;column:selected_text" json:"selectedText"`
	PageURL      string            `gorm:"not null;column:page_url" json:"pageURL"`
	Embedding    *pgvector.Vector  `gorm:"type:vector(384)" json:"-"`
	CreatedAt    time.Time         `gorm:"not null;default:now();autoCreateTime:false" json:"createdAt"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
}

func (TextSelection) TableName() string {
	return "user_text_selections"
}
