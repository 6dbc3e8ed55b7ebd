package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/cache"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ArticleService handles reads, view counting and risk assessment of stored articles
type ArticleService struct {
	articles repository.ArticleRepository
	scorer   *RiskScorer
	cache    cache.Service
	activity *ActivityLogger
	log      zerolog.Logger
}

// NewArticleService creates a new ArticleService. cacheSvc may be nil.
func NewArticleService(articles repository.ArticleRepository, scorer *RiskScorer, cacheSvc cache.Service, activity *ActivityLogger) *ArticleService {
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &ArticleService{
		articles: articles,
		scorer:   scorer,
		cache:    cacheSvc,
		activity: activity,
		log:      pkglogger.WithComponent("article_service"),
	}
}

// GetArticle reads an article (cache first) and counts the view
func (s *ArticleService) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	if s.cache.IsAvailable() {
		var cached domain.Article
		if err := s.cache.GetArticle(ctx, id, &cached); err == nil {
			s.IncrementView(ctx, id)
			return &cached, nil
		}
	}

	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrArticleNotFound
		}
		return nil, err
	}

	if err := s.cache.SetArticle(ctx, id, article); err != nil {
		s.log.Warn().Err(err).Int64("article_id", id).Msg("article cache set failed")
	}
	s.IncrementView(ctx, id)
	return article, nil
}

// ListArticles returns a page of articles
func (s *ArticleService) ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, int64, error) {
	return s.articles.List(ctx, filter)
}

// IncrementView buffers a view in Redis, or updates the row directly when Redis is off.
// View counting never fails the read.
func (s *ArticleService) IncrementView(ctx context.Context, id int64) {
	if s.cache.IsAvailable() {
		_, err := s.cache.IncrViews(ctx, id)
		if err == nil {
			return
		}
		s.log.Warn().Err(err).Int64("article_id", id).Msg("redis view increment failed, writing to db")
	}
	if err := s.articles.IncrementViews(ctx, id, 1); err != nil {
		s.log.Warn().Err(err).Int64("article_id", id).Msg("view increment dropped")
	}
}

// FlushViews folds buffered Redis counters into view_count. Returns the number of articles updated.
func (s *ArticleService) FlushViews(ctx context.Context) (int, error) {
	if !s.cache.IsAvailable() {
		return 0, nil
	}
	counts, err := s.cache.DrainViews(ctx)
	if err != nil && len(counts) == 0 {
		return 0, fmt.Errorf("drain views: %w", err)
	}

	updated := 0
	for id, n := range counts {
		if err := s.articles.IncrementViews(ctx, id, n); err != nil {
			s.log.Warn().Err(err).Int64("article_id", id).Int64("views", n).Msg("view flush failed")
			continue
		}
		updated++
	}
	return updated, nil
}

// AssessArticle scores a stored article and writes the risk fields back
func (s *ArticleService) AssessArticle(ctx context.Context, id int64) (domain.RiskAssessment, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RiskAssessment{}, common.ErrArticleNotFound
		}
		return domain.RiskAssessment{}, err
	}

	assessment := s.scorer.AssessRisk(ctx, article.Title, article.Body)
	err = s.articles.UpdateRisk(ctx, id, assessment)
	if err == nil {
		_ = s.cache.InvalidateArticle(ctx, id)
	}

	s.activity.Record(ctx, newActivity(domain.ActionRiskAssess, int64Ptr(id), domain.Metadata{
		"risk_score": assessment.RiskScore,
		"risk_level": string(assessment.RiskLevel),
		"fallback":   assessment.Fallback,
	}, err))

	if err != nil {
		return assessment, fmt.Errorf("store risk: %w", err)
	}
	return assessment, nil
}
