package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"gorm.io/gorm"
)

// maxCommentRunes 댓글 본문 최대 길이
const maxCommentRunes = 5000

// CommentResult is a stored comment plus the verdict that decided its status
type CommentResult struct {
	Comment *domain.Comment          `json:"comment"`
	Verdict domain.ModerationVerdict `json:"verdict"`
}

// CommentService moderates and stores reader comments
type CommentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	scorer   *RiskScorer
	activity *ActivityLogger
}

// NewCommentService creates a new CommentService
func NewCommentService(comments repository.CommentRepository, articles repository.ArticleRepository, scorer *RiskScorer, activity *ActivityLogger) *CommentService {
	return &CommentService{comments: comments, articles: articles, scorer: scorer, activity: activity}
}

// SubmitComment moderates body and stores the comment with the derived status
func (s *CommentService) SubmitComment(ctx context.Context, articleID int64, author, body string) (*CommentResult, error) {
	author = strings.TrimSpace(author)
	body = strings.TrimSpace(body)
	if author == "" || body == "" {
		return nil, fmt.Errorf("%w: author and body are required", common.ErrInvalidInput)
	}
	if len([]rune(body)) > maxCommentRunes {
		return nil, fmt.Errorf("%w: comment is longer than %d characters", common.ErrInvalidInput, maxCommentRunes)
	}

	if _, err := s.articles.FindByID(ctx, articleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrArticleNotFound
		}
		return nil, err
	}

	verdict := s.scorer.Moderate(ctx, body)
	if reason := common.ScreenLinks(body); reason != "" && verdict.Recommendation == domain.RecommendApprove {
		// 링크 스크리닝은 approve 만 review 로 올린다
		verdict.Recommendation = domain.RecommendReview
		verdict.Reason = strings.TrimSpace(verdict.Reason + "; " + reason)
	}
	comment := &domain.Comment{
		ArticleID:        articleID,
		Author:           truncateRunes(author, 100),
		Body:             body,
		Status:           verdict.CommentStatus(),
		ToxicityScore:    verdict.ToxicityScore(),
		ModerationReason: verdict.Reason,
	}
	err := s.comments.Create(ctx, comment)

	s.activity.Record(ctx, newActivity(domain.ActionModerate, int64Ptr(articleID), domain.Metadata{
		"recommendation": string(verdict.Recommendation),
		"flagged":        verdict.Flagged,
		"status":         string(comment.Status),
		"max_score":      verdict.Scores.Max(),
	}, err))

	if err != nil {
		return nil, fmt.Errorf("store comment: %w", err)
	}
	return &CommentResult{Comment: comment, Verdict: verdict}, nil
}

// ListComments returns comments of an article, optionally filtered by status
func (s *CommentService) ListComments(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	return s.comments.ListByArticle(ctx, articleID, status)
}

// Moderate scores ad hoc text without storing anything
func (s *CommentService) Moderate(ctx context.Context, body string) domain.ModerationVerdict {
	return s.scorer.Moderate(ctx, body)
}
