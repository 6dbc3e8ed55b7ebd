package service

import (
	"context"
	"time"

	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const activityWriteTimeout = 5 * time.Second

// ActivityLogger appends audit entries. A failed write is logged and dropped;
// callers never see it.
type ActivityLogger struct {
	repo      repository.ActivityLogRepository
	publisher ActivityPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// ActivityPublisher receives every stored entry (live dashboards)
type ActivityPublisher interface {
	PublishActivity(entry domain.ActivityLog)
}

// NewActivityLogger creates a new ActivityLogger
func NewActivityLogger(repo repository.ActivityLogRepository) *ActivityLogger {
	return &ActivityLogger{
		repo: repo,
		log:  pkglogger.WithComponent("activity"),
		now:  time.Now,
	}
}

// SetPublisher attaches a live feed. Call before serving traffic.
func (l *ActivityLogger) SetPublisher(p ActivityPublisher) {
	l.publisher = p
}

// Record stores one entry, filling id and timestamp.
// The write outlives the caller's cancellation, bounded by activityWriteTimeout.
func (l *ActivityLogger) Record(ctx context.Context, entry domain.ActivityLog) {
	if l == nil || l.repo == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	if entry.Metadata == nil {
		entry.Metadata = domain.Metadata{}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityWriteTimeout)
	defer cancel()

	if err := l.repo.Append(writeCtx, &entry); err != nil {
		l.log.Warn().Err(err).Str("action", entry.Action).Msg("activity log write dropped")
		return
	}
	if l.publisher != nil {
		l.publisher.PublishActivity(entry)
	}
}

// Recent lists the latest entries, optionally filtered by action and article
func (l *ActivityLogger) Recent(ctx context.Context, action string, articleID *int64, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.repo.ListRecent(ctx, action, articleID, limit)
}

// newActivity builds an entry; err (if any) becomes the error message
func newActivity(action string, articleID *int64, meta domain.Metadata, err error) domain.ActivityLog {
	entry := domain.ActivityLog{
		Action:    action,
		Success:   err == nil,
		ArticleID: articleID,
		Metadata:  meta,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	return entry
}

func int64Ptr(v int64) *int64 {
	return &v
}
