package repository

import (
	"context"

	"github.com/damoang/angple-editorial/internal/domain"
	"gorm.io/gorm"
)

// EvidenceRepository 증거 자료 저장소
type EvidenceRepository interface {
	CountByArticle(ctx context.Context, articleID int64) (int64, error)
	ListByArticle(ctx context.Context, articleID int64) ([]domain.Evidence, error)
	Create(ctx context.Context, evidence *domain.Evidence) error
}

type evidenceRepository struct {
	db *gorm.DB
}

// NewEvidenceRepository 생성자
func NewEvidenceRepository(db *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) CountByArticle(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Evidence{}).
		Where("article_id = ?", articleID).
		Count(&n).Error
	return n, err
}

func (r *evidenceRepository) ListByArticle(ctx context.Context, articleID int64) ([]domain.Evidence, error) {
	var items []domain.Evidence
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// Create inserts evidence and keeps the article's cached evidence_count in sync
func (r *evidenceRepository) Create(ctx context.Context, evidence *domain.Evidence) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(evidence).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Article{}).
			Where("id = ?", evidence.ArticleID).
			UpdateColumn("evidence_count", gorm.Expr("evidence_count + 1")).Error
	})
}
