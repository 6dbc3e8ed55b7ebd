package domain

import "time"

// EvidenceType 증거 자료 유형
type EvidenceType string

const (
	EvidenceDocument EvidenceType = "document"
	EvidenceImage    EvidenceType = "image"
	EvidenceVideo    EvidenceType = "video"
	EvidenceAudio    EvidenceType = "audio"
)

// IsValid reports whether t is a known evidence type
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceDocument, EvidenceImage, EvidenceVideo, EvidenceAudio:
		return true
	}
	return false
}

// AttachEvidenceRequest 증거 자료 첨부 요청
type AttachEvidenceRequest struct {
	Type        EvidenceType `json:"type" binding:"required"`
	URL         string       `json:"url" binding:"required"`
	Description string       `json:"description"`
	Verified    bool         `json:"verified"`
}

// Evidence belongs to an article and is input to the publish gate
type Evidence struct {
	ID          int64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ArticleID   int64        `gorm:"column:article_id;index" json:"article_id"`
	Type        EvidenceType `gorm:"column:type;size:16" json:"type"`
	URL         string       `gorm:"column:url;size:1024" json:"url"`
	Description string       `gorm:"column:description;type:text" json:"description,omitempty"`
	Verified    bool         `gorm:"column:verified" json:"verified"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name
func (Evidence) TableName() string {
	return "article_evidence"
}
