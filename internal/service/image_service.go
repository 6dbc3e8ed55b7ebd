package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/cache"
	"github.com/damoang/angple-editorial/pkg/imagesource"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ImageMode selects how strictly the keyword fallback is treated
type ImageMode string

const (
	// ImageModeBatch accepts the fallback candidate without validation
	ImageModeBatch ImageMode = "batch"
	// ImageModeManual validates the fallback too and surfaces exhaustion
	ImageModeManual ImageMode = "manual"
)

var errNoValidCandidate = errors.New("no primary provider produced a valid candidate")

// ImageValidator checks a candidate URL
type ImageValidator interface {
	Validate(ctx context.Context, url string) error
}

// ImageResult is the outcome of one acquisition
type ImageResult struct {
	URL        string `json:"url"`
	Provenance string `json:"provenance"`
	Provider   string `json:"provider"`
	Attempts   int    `json:"attempts"`
}

// ImageServiceOptions tunes retry and pacing
type ImageServiceOptions struct {
	Retries    int
	RetryDelay time.Duration
	BatchDelay time.Duration
	// 기사 캐시 무효화용 (nil 이면 무시)
	Cache cache.Service
}

// ImageService runs the provider chain and writes image fields onto articles
type ImageService struct {
	primaries []imagesource.Provider
	fallback  imagesource.Provider
	validator ImageValidator
	articles  repository.ArticleRepository
	activity  *ActivityLogger
	opts      ImageServiceOptions
	seedFn    func() int64
	log       zerolog.Logger
}

// NewImageService creates a new ImageService
func NewImageService(
	primaries []imagesource.Provider,
	fallback imagesource.Provider,
	validator ImageValidator,
	articles repository.ArticleRepository,
	activity *ActivityLogger,
	opts ImageServiceOptions,
) *ImageService {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewService(nil)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ImageService{
		primaries: primaries,
		fallback:  fallback,
		validator: validator,
		articles:  articles,
		activity:  activity,
		opts:      opts,
		seedFn:    func() int64 { return rng.Int63n(1_000_000) },
		log:       pkglogger.WithComponent("image_chain"),
	}
}

// AcquireImage walks the primaries with progressively simpler prompts, then the keyword fallback.
// Batch mode trusts the fallback unvalidated; manual mode returns ErrImageChainExhausted instead.
func (s *ImageService) AcquireImage(ctx context.Context, seedText string, mode ImageMode) (ImageResult, error) {
	keywords := imagesource.Keywords(seedText)
	attempt := 0
	var result ImageResult

	operation := func() error {
		req := imagesource.Request{
			Prompt:   imagesource.PromptForAttempt(seedText, attempt),
			Keywords: keywords,
			Seed:     s.seedFn(),
		}
		attempt++

		for _, p := range s.primaries {
			u, err := p.Candidate(ctx, req)
			if err != nil {
				imageAttemptsTotal.WithLabelValues(p.Name(), "error").Inc()
				continue
			}
			if err := s.validator.Validate(ctx, u); err != nil {
				imageAttemptsTotal.WithLabelValues(p.Name(), "invalid").Inc()
				s.log.Debug().Err(err).Str("provider", p.Name()).Int("attempt", attempt).Msg("candidate rejected")
				continue
			}
			imageAttemptsTotal.WithLabelValues(p.Name(), "ok").Inc()
			result = ImageResult{URL: u, Provenance: p.Label(), Provider: p.Name(), Attempts: attempt}
			return nil
		}
		return errNoValidCandidate
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), uint64(s.opts.Retries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err == nil {
		return result, nil
	}

	return s.fallbackImage(ctx, keywords, mode, attempt)
}

func (s *ImageService) fallbackImage(ctx context.Context, keywords []string, mode ImageMode, attempts int) (ImageResult, error) {
	if s.fallback == nil {
		return ImageResult{Attempts: attempts}, common.ErrImageChainExhausted
	}

	u, err := s.fallback.Candidate(ctx, imagesource.Request{Keywords: keywords})
	if err != nil {
		imageAttemptsTotal.WithLabelValues(s.fallback.Name(), "error").Inc()
		return ImageResult{Attempts: attempts}, fmt.Errorf("%w: %v", common.ErrImageChainExhausted, err)
	}

	if mode == ImageModeManual {
		if err := s.validator.Validate(ctx, u); err != nil {
			imageAttemptsTotal.WithLabelValues(s.fallback.Name(), "invalid").Inc()
			return ImageResult{Attempts: attempts + 1}, fmt.Errorf("%w: %v", common.ErrImageChainExhausted, err)
		}
		imageAttemptsTotal.WithLabelValues(s.fallback.Name(), "ok").Inc()
	} else {
		// batch: 검증 없이 폴백 URL 을 그대로 쓴다
		imageAttemptsTotal.WithLabelValues(s.fallback.Name(), "unvalidated").Inc()
	}

	return ImageResult{
		URL:        u,
		Provenance: s.fallback.Label(),
		Provider:   s.fallback.Name(),
		Attempts:   attempts + 1,
	}, nil
}

// RepairImage re-acquires the featured image of one article in manual mode
func (s *ImageService) RepairImage(ctx context.Context, articleID int64) (ImageResult, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ImageResult{}, common.ErrArticleNotFound
		}
		return ImageResult{}, err
	}

	result, err := s.AcquireImage(ctx, article.Title, ImageModeManual)
	if err == nil {
		err = s.storeImage(ctx, article, result)
	}

	s.activity.Record(ctx, newActivity(domain.ActionImageRepair, int64Ptr(article.ID), domain.Metadata{
		"mode":       string(ImageModeManual),
		"provider":   result.Provider,
		"provenance": result.Provenance,
		"attempts":   result.Attempts,
	}, err))

	return result, err
}

// storeImage writes the three image fields and drops the cached article
func (s *ImageService) storeImage(ctx context.Context, article *domain.Article, result ImageResult) error {
	if err := s.articles.UpdateImage(ctx, article.ID, imageFor(article, result)); err != nil {
		return err
	}
	if err := s.opts.Cache.InvalidateArticle(ctx, article.ID); err != nil {
		s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("article cache invalidation failed")
	}
	return nil
}

// RepairItem is the per-article outcome of a batch repair
type RepairItem struct {
	ArticleID  int64  `json:"article_id"`
	Provenance string `json:"provenance,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RepairSummary summarizes a batch repair
type RepairSummary struct {
	Processed int          `json:"processed"`
	Repaired  int          `json:"repaired"`
	Failed    int          `json:"failed"`
	Items     []RepairItem `json:"items"`
}

// RepairMissingImages fixes articles without a complete image, one at a time.
// Per-article failures are recorded and skipped.
func (s *ImageService) RepairMissingImages(ctx context.Context, limit int) (RepairSummary, error) {
	summary := RepairSummary{Items: []RepairItem{}}

	articles, err := s.articles.ListMissingImage(ctx, limit)
	if err != nil {
		return summary, fmt.Errorf("list articles missing image: %w", err)
	}

	for i, article := range articles {
		if i > 0 && !sleepCtx(ctx, s.opts.BatchDelay) {
			break
		}
		summary.Processed++

		result, err := s.AcquireImage(ctx, article.Title, ImageModeBatch)
		if err == nil {
			err = s.storeImage(ctx, article, result)
		}

		s.activity.Record(ctx, newActivity(domain.ActionImageAcquire, int64Ptr(article.ID), domain.Metadata{
			"mode":       string(ImageModeBatch),
			"provider":   result.Provider,
			"provenance": result.Provenance,
			"attempts":   result.Attempts,
		}, err))

		item := RepairItem{ArticleID: article.ID}
		if err != nil {
			summary.Failed++
			item.Error = err.Error()
			s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("image repair failed")
		} else {
			summary.Repaired++
			item.Provenance = result.Provenance
		}
		summary.Items = append(summary.Items, item)
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("repaired", summary.Repaired).
		Int("failed", summary.Failed).
		Msg("batch image repair finished")
	return summary, nil
}

func imageFor(article *domain.Article, result ImageResult) domain.ArticleImage {
	return domain.ArticleImage{
		URL:    result.URL,
		Alt:    truncateRunes(article.Title, 250),
		Source: result.Provenance,
	}
}

// sleepCtx waits d or until ctx is done; false means the context ended
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
