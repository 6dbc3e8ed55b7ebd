package domain

import (
	"fmt"
	"time"
)

// ArticleStatus 기사 발행 상태 (closed enum)
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusReview    ArticleStatus = "review"
	StatusScheduled ArticleStatus = "scheduled"
	StatusPublished ArticleStatus = "published"
	StatusRejected  ArticleStatus = "rejected"
)

var articleStatuses = []ArticleStatus{
	StatusDraft, StatusReview, StatusScheduled, StatusPublished, StatusRejected,
}

// IsValid reports whether s is one of the declared statuses
func (s ArticleStatus) IsValid() bool {
	for _, v := range articleStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseArticleStatus converts raw input into an ArticleStatus
func ParseArticleStatus(raw string) (ArticleStatus, error) {
	s := ArticleStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown article status %q", raw)
	}
	return s, nil
}

// Category 기사 카테고리 (closed enum)
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryLaw           Category = "law"
	CategoryEconomy       Category = "economy"
	CategoryCorruption    Category = "corruption"
	CategoryEnvironment   Category = "environment"
	CategoryInvestigation Category = "investigation"
	CategoryOpinion       Category = "opinion"
)

var categories = []Category{
	CategoryPolitics, CategoryLaw, CategoryEconomy, CategoryCorruption,
	CategoryEnvironment, CategoryInvestigation, CategoryOpinion,
}

// IsValid reports whether c is one of the declared categories
func (c Category) IsValid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
// 생성 모델이 엉뚱한 값을 주면 investigation 으로 보정한다.
func ParseCategory(raw string) Category {
	c := Category(raw)
	if c.IsValid() {
		return c
	}
	return CategoryInvestigation
}

// VerificationLevel 사실 확인 수준
type VerificationLevel string

const (
	VerificationUnverified VerificationLevel = "unverified"
	VerificationPartial    VerificationLevel = "partial"
	VerificationVerified   VerificationLevel = "verified"
)

// Article represents a content item that flows through the editorial pipeline
type Article struct {
	ID                  int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Slug                string            `gorm:"column:slug;size:191;uniqueIndex" json:"slug"`
	Title               string            `gorm:"column:title;size:255" json:"title"`
	Excerpt             string            `gorm:"column:excerpt;type:text" json:"excerpt"`
	Body                string            `gorm:"column:body;type:longtext" json:"body"`
	Category            Category          `gorm:"column:category;size:32;index" json:"category"`
	Status              ArticleStatus     `gorm:"column:status;size:16;index;default:draft" json:"status"`
	RiskLevel           RiskLevel         `gorm:"column:risk_level;size:16;default:low" json:"risk_level"`
	RiskScore           int               `gorm:"column:risk_score;default:0" json:"risk_score"`
	ContainsAccusation  bool              `gorm:"column:contains_accusation" json:"contains_accusation"`
	VerificationLevel   VerificationLevel `gorm:"column:verification_level;size:16;default:unverified" json:"verification_level"`
	EvidenceCount       int               `gorm:"column:evidence_count;default:0" json:"evidence_count"`
	LegalReviewRequired bool              `gorm:"column:legal_review_required" json:"legal_review_required"`
	LegalReviewedBy     *string           `gorm:"column:legal_reviewed_by;size:100" json:"legal_reviewed_by,omitempty"`
	LegalReviewedAt     *time.Time        `gorm:"column:legal_reviewed_at" json:"legal_reviewed_at,omitempty"`
	FeaturedImageURL    *string           `gorm:"column:featured_image_url;size:1024" json:"featured_image_url,omitempty"`
	FeaturedImageAlt    *string           `gorm:"column:featured_image_alt;size:255" json:"featured_image_alt,omitempty"`
	ImageSource         *string           `gorm:"column:image_source;size:100" json:"image_source,omitempty"`
	AIAssisted          bool              `gorm:"column:ai_assisted" json:"ai_assisted"`
	ViewCount           int64             `gorm:"column:view_count;default:0" json:"view_count"`
	ScheduledAt         *time.Time        `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt         *time.Time        `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt           time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

// TableName returns the table name
func (Article) TableName() string {
	return "articles"
}


// ArticleImage 이미지 체인이 기사에 기록하는 필드 묶음
type ArticleImage struct {
	URL    string
	Alt    string
	Source string
}

// TransitionRequest represents a request to move an article to another status
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// LegalSignOffRequest represents a legal reviewer stamping an article
type LegalSignOffRequest struct {
	Reviewer string `json:"reviewer" binding:"required"`
}
