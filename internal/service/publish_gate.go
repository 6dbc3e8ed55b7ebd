package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/cache"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// 발행 최소 길이 (rune 단위)
const (
	MinBodyRunes    = 200
	MinExcerptRunes = 50
)

// Requirement messages reported in Requirements.Missing
const (
	MissingImageURL    = "featured image URL is missing"
	MissingImageAlt    = "featured image alt text is missing"
	MissingImageSource = "featured image source is missing"
	MissingEvidence    = "at least one piece of evidence is required"
	MissingLegalReview = "legal review sign-off is required for high or critical risk"
	MissingBodyLength  = "body must be at least 200 characters"
	MissingExcerpt     = "excerpt must be at least 50 characters"

	WarningMediumRisk = "medium risk: legal review is recommended"
	WarningAccusation = "contains accusations: check that every claim is backed by evidence"
)

// Requirements is the full result of a pre-publication check
type Requirements struct {
	CanPublish bool     `json:"can_publish"`
	Missing    []string `json:"missing"`
	Warnings   []string `json:"warnings"`
}

// GateError is returned by Publish when requirements are unmet
type GateError struct {
	ArticleID int64
	Missing   []string
	Warnings  []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("article %d cannot be published: %s", e.ArticleID, strings.Join(e.Missing, "; "))
}

// CheckRequirements evaluates every rule and never stops at the first violation
func CheckRequirements(article *domain.Article, evidenceCount int64) Requirements {
	r := Requirements{Missing: []string{}, Warnings: []string{}}
	missing := func(cond bool, msg string) {
		if cond {
			r.Missing = append(r.Missing, msg)
		}
	}

	missing(blank(article.FeaturedImageURL), MissingImageURL)
	missing(blank(article.FeaturedImageAlt), MissingImageAlt)
	missing(blank(article.ImageSource), MissingImageSource)
	missing(evidenceCount < 1, MissingEvidence)
	missing(article.RiskLevel.RequiresLegalStamp() &&
		(blank(article.LegalReviewedBy) || article.LegalReviewedAt == nil), MissingLegalReview)
	missing(utf8.RuneCountInString(strings.TrimSpace(article.Body)) < MinBodyRunes, MissingBodyLength)
	missing(utf8.RuneCountInString(strings.TrimSpace(article.Excerpt)) < MinExcerptRunes, MissingExcerpt)

	if article.RiskLevel == domain.RiskMedium {
		r.Warnings = append(r.Warnings, WarningMediumRisk)
	}
	if article.ContainsAccusation {
		r.Warnings = append(r.Warnings, WarningAccusation)
	}

	r.CanPublish = len(r.Missing) == 0
	return r
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// forward/reject 전이 허용표. published 는 Publish, draft 복귀는 Unpublish 로만 간다.
var allowedTransitions = map[domain.ArticleStatus][]domain.ArticleStatus{
	domain.StatusReview:    {domain.StatusDraft},
	domain.StatusScheduled: {domain.StatusReview},
	domain.StatusRejected:  {domain.StatusDraft, domain.StatusReview, domain.StatusScheduled},
}

// PublishGate owns every status change of an article
type PublishGate struct {
	articles repository.ArticleRepository
	evidence repository.EvidenceRepository
	activity *ActivityLogger
	cache    cache.Service
	now      func() time.Time
	log      zerolog.Logger
}

// NewPublishGate creates a new PublishGate. cacheSvc may be nil.
func NewPublishGate(articles repository.ArticleRepository, evidence repository.EvidenceRepository, activity *ActivityLogger, cacheSvc cache.Service) *PublishGate {
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &PublishGate{
		articles: articles,
		evidence: evidence,
		activity: activity,
		cache:    cacheSvc,
		now:      time.Now,
		log:      pkglogger.WithComponent("publish_gate"),
	}
}

// Requirements loads the article and its evidence count and runs CheckRequirements
func (g *PublishGate) Requirements(ctx context.Context, id int64) (Requirements, error) {
	article, err := g.find(ctx, id)
	if err != nil {
		return Requirements{}, err
	}
	count, err := g.evidence.CountByArticle(ctx, id)
	if err != nil {
		return Requirements{}, fmt.Errorf("count evidence: %w", err)
	}
	return CheckRequirements(article, count), nil
}

// Publish moves an article to published when every requirement holds.
// Publishing an already published article is a no-op.
func (g *PublishGate) Publish(ctx context.Context, id int64) (*domain.Article, error) {
	article, err := g.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status == domain.StatusPublished {
		gateDecisionsTotal.WithLabelValues("noop").Inc()
		return article, nil
	}
	if article.Status == domain.StatusRejected {
		return nil, fmt.Errorf("%w: rejected articles cannot be published", common.ErrInvalidTransition)
	}

	count, err := g.evidence.CountByArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count evidence: %w", err)
	}

	req := CheckRequirements(article, count)
	if !req.CanPublish {
		gateDecisionsTotal.WithLabelValues("blocked").Inc()
		gateErr := &GateError{ArticleID: id, Missing: req.Missing, Warnings: req.Warnings}
		g.activity.Record(ctx, newActivity(domain.ActionPublish, int64Ptr(id), domain.Metadata{
			"missing": req.Missing,
		}, gateErr))
		return nil, gateErr
	}

	at := g.now()
	changed, err := g.articles.MarkPublished(ctx, id, at)
	if err != nil {
		return nil, fmt.Errorf("mark published: %w", err)
	}
	if changed {
		article.Status = domain.StatusPublished
		article.PublishedAt = &at
		g.invalidate(ctx, id)
		gateDecisionsTotal.WithLabelValues("published").Inc()
		g.log.Info().Int64("article_id", id).Msg("article published")
	} else {
		// 동시에 다른 요청이 먼저 발행했거나 반려함
		if article, err = g.find(ctx, id); err != nil {
			return nil, err
		}
		if article.Status != domain.StatusPublished {
			return nil, fmt.Errorf("%w: status changed to %s concurrently", common.ErrInvalidTransition, article.Status)
		}
		gateDecisionsTotal.WithLabelValues("noop").Inc()
	}

	g.activity.Record(ctx, newActivity(domain.ActionPublish, int64Ptr(id), domain.Metadata{
		"warnings": req.Warnings,
		"changed":  changed,
	}, nil))
	return article, nil
}

// Unpublish reverts an article to draft and clears published_at. Idempotent.
func (g *PublishGate) Unpublish(ctx context.Context, id int64) (*domain.Article, error) {
	if err := g.articles.MarkDraft(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrArticleNotFound
		}
		return nil, fmt.Errorf("mark draft: %w", err)
	}
	g.invalidate(ctx, id)

	g.activity.Record(ctx, newActivity(domain.ActionUnpublish, int64Ptr(id), nil, nil))
	return g.find(ctx, id)
}

// Transition performs the forward and reject moves of the state machine
func (g *PublishGate) Transition(ctx context.Context, id int64, to domain.ArticleStatus) (*domain.Article, error) {
	article, err := g.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status == to {
		return article, nil
	}

	from, ok := allowedTransitions[to]
	if !ok || !containsStatus(from, article.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, article.Status, to)
	}

	changed, err := g.articles.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: status changed concurrently", common.ErrInvalidTransition)
	}
	g.invalidate(ctx, id)

	article.Status = to
	return article, nil
}

// LegalSignOff stamps the legal reviewer and time
func (g *PublishGate) LegalSignOff(ctx context.Context, id int64, reviewer string) (*domain.Article, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer is required", common.ErrInvalidInput)
	}

	if err := g.articles.SetLegalReview(ctx, id, reviewer, g.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrArticleNotFound
		}
		return nil, fmt.Errorf("set legal review: %w", err)
	}
	g.invalidate(ctx, id)
	return g.find(ctx, id)
}

// AttachEvidence adds one evidence item to an article (gate rule: at least one)
func (g *PublishGate) AttachEvidence(ctx context.Context, id int64, req domain.AttachEvidenceRequest) (*domain.Evidence, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown evidence type %q", common.ErrInvalidInput, req.Type)
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: evidence url is required", common.ErrInvalidInput)
	}
	if _, err := g.find(ctx, id); err != nil {
		return nil, err
	}

	evidence := &domain.Evidence{
		ArticleID:   id,
		Type:        req.Type,
		URL:         url,
		Description: strings.TrimSpace(req.Description),
		Verified:    req.Verified,
		CreatedAt:   g.now(),
	}
	if err := g.evidence.Create(ctx, evidence); err != nil {
		return nil, fmt.Errorf("create evidence: %w", err)
	}
	g.invalidate(ctx, id)
	return evidence, nil
}

// ListEvidence returns the evidence attached to an article
func (g *PublishGate) ListEvidence(ctx context.Context, id int64) ([]domain.Evidence, error) {
	if _, err := g.find(ctx, id); err != nil {
		return nil, err
	}
	return g.evidence.ListByArticle(ctx, id)
}

func (g *PublishGate) invalidate(ctx context.Context, id int64) {
	if err := g.cache.InvalidateArticle(ctx, id); err != nil {
		g.log.Warn().Err(err).Int64("article_id", id).Msg("article cache invalidation failed")
	}
}

func (g *PublishGate) find(ctx context.Context, id int64) (*domain.Article, error) {
	article, err := g.articles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

func containsStatus(list []domain.ArticleStatus, s domain.ArticleStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
