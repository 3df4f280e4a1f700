package domain

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeBaseStatus represents the remote processing status of a knowledge base
type KnowledgeBaseStatus string

const (
	KnowledgeBaseStatusInProgress KnowledgeBaseStatus = "in_progress"
	KnowledgeBaseStatusComplete   KnowledgeBaseStatus = "complete"
	KnowledgeBaseStatusError      KnowledgeBaseStatus = "error"
)

// KnowledgeBaseSourceType represents the kind of content a source holds
type KnowledgeBaseSourceType string

const (
	SourceTypeDocument KnowledgeBaseSourceType = "document"
	SourceTypeText     KnowledgeBaseSourceType = "text"
	SourceTypeURL      KnowledgeBaseSourceType = "url"
)

// ParseSourceType validates a remote source type, falling back to url so one
// unrecognized type cannot fail a whole sync pass.
func ParseSourceType(s string) KnowledgeBaseSourceType {
	switch KnowledgeBaseSourceType(s) {
	case SourceTypeDocument, SourceTypeText, SourceTypeURL:
		return KnowledgeBaseSourceType(s)
	default:
		return SourceTypeURL
	}
}

// KnowledgeBase is created locally right after the remote creation call
// succeeds and only transitions to complete/error via sync pulling the
// remote status.
type KnowledgeBase struct {
	ID              uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID          uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;index"`
	KnowledgeBaseID string              `json:"knowledge_base_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Name            string              `json:"name" gorm:"type:varchar(255);not null"`
	Status          KnowledgeBaseStatus `json:"status" gorm:"type:varchar(32);default:in_progress;index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for KnowledgeBase
func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}

// KnowledgeBaseSource is one item inside a knowledge base. Sources are
// append-only: sync inserts a source with a given SourceID at most once and
// never mutates existing rows.
type KnowledgeBaseSource struct {
	ID              uuid.UUID               `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	KnowledgeBaseID uuid.UUID               `json:"knowledge_base_id" gorm:"type:uuid;not null;index"`
	SourceID        string                  `json:"source_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Type            KnowledgeBaseSourceType `json:"type" gorm:"type:varchar(16);not null"`
	Title           *string                 `json:"title,omitempty" gorm:"type:varchar(512)"`
	URL             string                  `json:"url" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for KnowledgeBaseSource
func (KnowledgeBaseSource) TableName() string {
	return "knowledge_base_sources"
}
