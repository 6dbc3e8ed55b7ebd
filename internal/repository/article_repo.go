package repository

import (
	"context"
	"time"

	"github.com/damoang/angple-editorial/internal/domain"
	"gorm.io/gorm"
)

// ArticleRepository 기사 저장소 인터페이스
type ArticleRepository interface {
	// 조회
	FindByID(ctx context.Context, id int64) (*domain.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error)
	ListMissingImage(ctx context.Context, limit int) ([]*domain.Article, error)

	// 작성
	Create(ctx context.Context, article *domain.Article) error

	// 필드 단위 갱신 (단일 행 UPDATE)
	UpdateRisk(ctx context.Context, id int64, a domain.RiskAssessment) error
	UpdateImage(ctx context.Context, id int64, img domain.ArticleImage) error
	UpdateStatus(ctx context.Context, id int64, from []domain.ArticleStatus, to domain.ArticleStatus) (bool, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkDraft(ctx context.Context, id int64) error
	SetLegalReview(ctx context.Context, id int64, reviewer string, at time.Time) error

	// 통계
	IncrementViews(ctx context.Context, id int64, n int64) error
}

// ArticleFilter 목록 조회 조건
type ArticleFilter struct {
	Status   domain.ArticleStatus
	Category domain.Category
	Page     int
	Limit    int
}

// articleRepository GORM 구현체
type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository 생성자
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// FindByID returns gorm.ErrRecordNotFound when the article does not exist
func (r *articleRepository) FindByID(ctx context.Context, id int64) (*domain.Article, error) {
	var article domain.Article
	if err := r.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// List 상태/카테고리별 기사 목록
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := r.db.WithContext(ctx).Model(&domain.Article{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []*domain.Article
	err := query.Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&articles).Error
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ListMissingImage 대표 이미지가 비어 있는 미발행 기사
func (r *articleRepository) ListMissingImage(ctx context.Context, limit int) ([]*domain.Article, error) {
	var articles []*domain.Article
	err := r.db.WithContext(ctx).
		Where("status <> ?", domain.StatusRejected).
		Where("featured_image_url IS NULL OR featured_image_url = ''").
		Order("id ASC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// Create inserts a new article
func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	return r.db.WithContext(ctx).Create(article).Error
}

// UpdateRisk writes only the risk fields
func (r *articleRepository) UpdateRisk(ctx context.Context, id int64, a domain.RiskAssessment) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"risk_score":            a.RiskScore,
		"risk_level":            a.RiskLevel,
		"contains_accusation":   a.ContainsAccusation,
		"legal_review_required": a.RequiresLegalReview,
		"updated_at":            time.Now(),
	})
}

// UpdateImage writes only the image fields (last write wins)
func (r *articleRepository) UpdateImage(ctx context.Context, id int64, img domain.ArticleImage) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"featured_image_url": img.URL,
		"featured_image_alt": img.Alt,
		"image_source":       img.Source,
		"updated_at":         time.Now(),
	})
}

// UpdateStatus moves the article to `to` only when its current status is one of `from`
func (r *articleRepository) UpdateStatus(ctx context.Context, id int64, from []domain.ArticleStatus, to domain.ArticleStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// MarkPublished is a conditional single-row UPDATE; false means it was already
// published or has been rejected in the meantime
func (r *articleRepository) MarkPublished(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ? AND status NOT IN ?", id, []domain.ArticleStatus{domain.StatusPublished, domain.StatusRejected}).
		Updates(map[string]interface{}{
			"status":       domain.StatusPublished,
			"published_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkDraft reverts to draft unconditionally
func (r *articleRepository) MarkDraft(ctx context.Context, id int64) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"status":       domain.StatusDraft,
		"published_at": nil,
		"updated_at":   time.Now(),
	})
}

// SetLegalReview stamps the legal reviewer
func (r *articleRepository) SetLegalReview(ctx context.Context, id int64, reviewer string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"legal_reviewed_by": reviewer,
		"legal_reviewed_at": at,
		"updated_at":        at,
	})
}

// IncrementViews adds n to the view counter atomically
func (r *articleRepository) IncrementViews(ctx context.Context, id int64, n int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n)).Error
}

func (r *articleRepository) updateColumns(ctx context.Context, id int64, cols map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ?", id).
		Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
