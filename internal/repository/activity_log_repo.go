package repository

import (
	"context"

	"github.com/damoang/angple-editorial/internal/domain"
	"gorm.io/gorm"
)

// ActivityLogRepository append-only 활동 로그 저장소
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *domain.ActivityLog) error
	ListRecent(ctx context.Context, action string, articleID *int64, limit int) ([]domain.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository 생성자
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Append inserts an entry; there is no update or delete
func (r *activityLogRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns the newest entries first
func (r *activityLogRepository) ListRecent(ctx context.Context, action string, articleID *int64, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&domain.ActivityLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if articleID != nil {
		query = query.Where("article_id = ?", *articleID)
	}
	var logs []domain.ActivityLog
	err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
