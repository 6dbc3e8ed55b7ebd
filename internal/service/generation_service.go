package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/damoang/angple-editorial/internal/ai"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerationSummary reports a batch run
type GenerationSummary struct {
	Created    int      `json:"created"`
	Failed     int      `json:"failed"`
	ArticleIDs []int64  `json:"article_ids"`
	Errors     []string `json:"errors,omitempty"`
}

// GenerationService drafts articles from topics: generate, score, illustrate, store as draft
type GenerationService struct {
	writer     ai.Backend
	scorer     *RiskScorer
	images     *ImageService
	articles   repository.ArticleRepository
	activity   *ActivityLogger
	batchDelay time.Duration
	timeout    time.Duration
	log        zerolog.Logger
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(
	writer ai.Backend,
	scorer *RiskScorer,
	images *ImageService,
	articles repository.ArticleRepository,
	activity *ActivityLogger,
	batchDelay time.Duration,
) *GenerationService {
	return &GenerationService{
		writer:     writer,
		scorer:     scorer,
		images:     images,
		articles:   articles,
		activity:   activity,
		batchDelay: batchDelay,
		timeout:    90 * time.Second,
		log:        pkglogger.WithComponent("generation"),
	}
}

var draftValidator = validator.New()

// generatedDraft 생성 모델 응답 구조체
type generatedDraft struct {
	Title    string `json:"title" validate:"required"`
	Excerpt  string `json:"excerpt"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category"`
}

// GenerateBatch drafts one article per topic, sequentially with a fixed delay.
// A failed topic is logged and skipped.
func (s *GenerationService) GenerateBatch(ctx context.Context, topics []string) GenerationSummary {
	summary := GenerationSummary{ArticleIDs: []int64{}}

	for i, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		if i > 0 && !sleepCtx(ctx, s.batchDelay) {
			break
		}

		article, err := s.generateOne(ctx, topic)
		var articleID *int64
		if article != nil {
			articleID = int64Ptr(article.ID)
		}
		meta := domain.Metadata{"topic": truncateRunes(topic, 200)}
		if article != nil {
			meta["risk_level"] = string(article.RiskLevel)
			meta["image_source"] = derefString(article.ImageSource)
		}
		s.activity.Record(ctx, newActivity(domain.ActionGenerate, articleID, meta, err))

		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", truncateRunes(topic, 60), err))
			s.log.Warn().Err(err).Str("topic", topic).Msg("article generation failed")
			continue
		}
		summary.Created++
		summary.ArticleIDs = append(summary.ArticleIDs, article.ID)
	}

	s.log.Info().Int("created", summary.Created).Int("failed", summary.Failed).Msg("generation batch finished")
	return summary
}

func (s *GenerationService) generateOne(ctx context.Context, topic string) (*domain.Article, error) {
	if s.writer == nil {
		return nil, errors.New("generation backend not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := s.writer.Complete(callCtx, generationSystemPrompt, "Topic: "+topic)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	var draft generatedDraft
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &draft); err != nil {
		return nil, fmt.Errorf("JSON 파싱 실패: %w", err)
	}
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Body = strings.TrimSpace(draft.Body)
	if err := draftValidator.Struct(&draft); err != nil {
		return nil, fmt.Errorf("generated draft is missing title or body: %w", err)
	}

	article := &domain.Article{
		Slug:              Slugify(draft.Title),
		Title:             truncateRunes(draft.Title, 255),
		Excerpt:           strings.TrimSpace(draft.Excerpt),
		Body:              draft.Body,
		Category:          domain.ParseCategory(strings.ToLower(strings.TrimSpace(draft.Category))),
		Status:            domain.StatusDraft,
		VerificationLevel: domain.VerificationUnverified,
		AIAssisted:        true,
	}

	ApplyAssessment(article, s.scorer.AssessRisk(ctx, article.Title, article.Body))

	if s.images != nil {
		img, err := s.images.AcquireImage(ctx, article.Title, ImageModeBatch)
		if err != nil {
			// 이미지 없이도 draft 는 저장; 나중에 repair 가 채운다
			s.log.Warn().Err(err).Str("title", article.Title).Msg("no image for generated draft")
		} else {
			fields := imageFor(article, img)
			article.FeaturedImageURL = &fields.URL
			article.FeaturedImageAlt = &fields.Alt
			article.ImageSource = &fields.Source
		}
	}

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}
	return article, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify builds a URL slug from a title with a short random suffix
func Slugify(title string) string {
	base := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if r := []rune(base); len(r) > 80 {
		base = strings.TrimRight(string(r[:80]), "-")
	}
	suffix := uuid.New().String()[:8]
	if base == "" {
		return "artikel-" + suffix
	}
	return base + "-" + suffix
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const generationSystemPrompt = `You are a staff writer at an investigative news outlet.
Write a draft article about the given topic. Stay factual; mark anything unverified as alleged.
Pick category from: politics, law, economy, corruption, environment, investigation, opinion.

Return only JSON:
{
  "title": string,
  "excerpt": string (one or two sentences, at least 50 characters),
  "body": string (at least 400 characters, plain paragraphs),
  "category": string
}`
