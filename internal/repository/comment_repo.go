package repository

import (
	"context"

	"github.com/damoang/angple-editorial/internal/domain"
	"gorm.io/gorm"
)

// CommentRepository 댓글 저장소 (모더레이션 결과 저장용)
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 생성자
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) ListByArticle(ctx context.Context, articleID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	var comments []domain.Comment
	query := r.db.WithContext(ctx).Where("article_id = ?", articleID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("id ASC").Find(&comments).Error
	return comments, err
}
