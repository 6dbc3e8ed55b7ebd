package domain

import "time"

// Recommendation 모더레이션 권고 (closed enum)
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendReject  Recommendation = "reject"
)

// ParseRecommendation maps oracle output onto the closed set; anything unknown is review
func ParseRecommendation(raw string) Recommendation {
	switch Recommendation(raw) {
	case RecommendApprove:
		return RecommendApprove
	case RecommendReject:
		return RecommendReject
	default:
		return RecommendReview
	}
}

// CommentStatus 댓글 노출 상태
type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentFlagged  CommentStatus = "flagged"
)

// ModerationScores 카테고리별 유해성 점수 (0-1)
type ModerationScores struct {
	Hate       float64 `json:"hate"`
	Harassment float64 `json:"harassment"`
	Violence   float64 `json:"violence"`
	SelfHarm   float64 `json:"self_harm"`
	Sexual     float64 `json:"sexual"`
	SARA       float64 `json:"sara"`
	Defamation float64 `json:"defamation"`
}

// Max returns the highest subscore across all seven categories
func (s ModerationScores) Max() float64 {
	m := s.Hate
	for _, v := range []float64{s.Harassment, s.Violence, s.SelfHarm, s.Sexual, s.SARA, s.Defamation} {
		if v > m {
			m = v
		}
	}
	return m
}

// ModerationVerdict is computed per submission and is not persisted by itself
type ModerationVerdict struct {
	Scores         ModerationScores `json:"scores"`
	Flagged        bool             `json:"flagged"`
	Recommendation Recommendation   `json:"recommendation"`
	Reason         string           `json:"reason"`
}

// IsValid reports whether s is a declared comment status
func (s CommentStatus) IsValid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentFlagged:
		return true
	}
	return false
}

// CommentStatus derives the visibility status from the recommendation
func (v ModerationVerdict) CommentStatus() CommentStatus {
	switch v.Recommendation {
	case RecommendApprove:
		return CommentApproved
	case RecommendReject:
		return CommentFlagged
	default:
		return CommentPending
	}
}

// ToxicityScore is max(hate, harassment, violence); the other four categories do not count
func (v ModerationVerdict) ToxicityScore() float64 {
	t := v.Scores.Hate
	if v.Scores.Harassment > t {
		t = v.Scores.Harassment
	}
	if v.Scores.Violence > t {
		t = v.Scores.Violence
	}
	return t
}

// Comment 기사 댓글. 코어는 모더레이션 관련 필드만 관리한다.
type Comment struct {
	ID               int64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ArticleID        int64         `gorm:"column:article_id;index" json:"article_id"`
	Author           string        `gorm:"column:author;size:100" json:"author"`
	Body             string        `gorm:"column:body;type:text" json:"body"`
	Status           CommentStatus `gorm:"column:status;size:16;default:pending" json:"status"`
	ToxicityScore    float64       `gorm:"column:toxicity_score" json:"toxicity_score"`
	ModerationReason string        `gorm:"column:moderation_reason;type:text" json:"moderation_reason,omitempty"`
	CreatedAt        time.Time     `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name
func (Comment) TableName() string {
	return "article_comments"
}

// CreateCommentRequest represents a new comment submission
type CreateCommentRequest struct {
	Author string `json:"author" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// ModerateRequest represents an ad hoc moderation request
type ModerateRequest struct {
	Body string `json:"body" binding:"required"`
}
