package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/imagesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGenerateBatch_CreatesScoredIllustratedDrafts(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	activity := NewActivityLogger(repository.NewActivityLogRepository(db))

	writer := new(mockBackend)
	writer.On("Complete", generationSystemPrompt, "Topic: dana desa").Return(
		"```json\n{\"title\":\"Dana Desa Diduga Diselewengkan\",\"excerpt\":\"Audit menemukan selisih anggaran.\","+
			"\"body\":\"Isi laporan.\",\"category\":\"Corruption\"}\n```", nil)
	writer.On("Complete", generationSystemPrompt, "Topic: rusak").Return("not json at all", nil)
	writer.On("Complete", generationSystemPrompt, "Topic: timeout").Return("", context.DeadlineExceeded)

	oracle := new(mockBackend)
	oracle.On("Complete", riskSystemPrompt, mock.Anything).Return(
		`{"defamation":70,"privacy_violation":10,"false_information":30,"criminal_allegation":80,"corporate_risk":0,"risk_score":65}`, nil)
	scorer := newTestScorer(oracle)

	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	images := NewImageService([]imagesource.Provider{gen}, nil,
		&fakeValidator{ok: map[string]bool{"https://gen/img": true}},
		articles, activity, ImageServiceOptions{RetryDelay: time.Millisecond})

	svc := NewGenerationService(writer, scorer, images, articles, activity, time.Millisecond)
	summary := svc.GenerateBatch(context.Background(), []string{"dana desa", "rusak", "", "timeout"})

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.ArticleIDs, 1)

	got, err := articles.FindByID(context.Background(), summary.ArticleIDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.True(t, got.AIAssisted)
	assert.Equal(t, domain.CategoryCorruption, got.Category)
	assert.Equal(t, 65, got.RiskScore)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
	assert.True(t, got.ContainsAccusation)
	require.NotNil(t, got.FeaturedImageURL)
	assert.Equal(t, "https://gen/img", *got.FeaturedImageURL)
	require.NotNil(t, got.FeaturedImageAlt)
	require.NotNil(t, got.ImageSource)
	assert.Equal(t, imagesource.LabelAIGenerated, *got.ImageSource)
	assert.True(t, strings.HasPrefix(got.Slug, "dana-desa-diduga-diselewengkan-"))

	logs, err := repository.NewActivityLogRepository(db).ListRecent(context.Background(), domain.ActionGenerate, nil, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestGenerateBatch_NoBackend(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewGenerationService(nil, NewRiskScorer(nil, RiskScorerOptions{}), nil,
		repository.NewArticleRepository(db), nil, 0)

	summary := svc.GenerateBatch(context.Background(), []string{"a"})

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Failed)
}

func TestGenerateBatch_DraftWithoutBodyFails(t *testing.T) {
	db := setupServiceDB(t)
	writer := new(mockBackend)
	writer.On("Complete", generationSystemPrompt, "Topic: kosong").Return(`{"title":"Judul","body":"   "}`, nil)

	svc := NewGenerationService(writer, NewRiskScorer(nil, RiskScorerOptions{}), nil,
		repository.NewArticleRepository(db), nil, 0)
	summary := svc.GenerateBatch(context.Background(), []string{"kosong"})

	assert.Equal(t, 0, summary.Created)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "missing title or body")
}

func TestSlugify(t *testing.T) {
	s := Slugify("KPK Periksa 3 Pejabat!")
	assert.True(t, strings.HasPrefix(s, "kpk-periksa-3-pejabat-"))
	assert.True(t, strings.HasPrefix(Slugify("!!!"), "artikel-"))
	assert.NotEqual(t, Slugify("x"), Slugify("x"))
}

func TestSubmitComment_StatusFollowsVerdict(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	comments := repository.NewCommentRepository(db)
	ctx := context.Background()
	article := &domain.Article{Slug: "c1", Title: "t", Body: "b", Category: domain.CategoryLaw, Status: domain.StatusPublished, RiskLevel: domain.RiskLow}
	require.NoError(t, articles.Create(ctx, article))

	oracle := new(mockBackend)
	oracle.On("Complete", moderationSystemPrompt, "Terima kasih").Return(
		`{"hate":0,"harassment":0.1,"violence":0,"recommendation":"approve","reason":"ok"}`, nil)
	oracle.On("Complete", moderationSystemPrompt, "Kalian semua maling").Return("", errors.New("timeout"))

	svc := NewCommentService(comments, articles, newTestScorer(oracle), NewActivityLogger(repository.NewActivityLogRepository(db)))

	ok, err := svc.SubmitComment(ctx, article.ID, "Budi", "Terima kasih")
	require.NoError(t, err)
	assert.Equal(t, domain.CommentApproved, ok.Comment.Status)

	held, err := svc.SubmitComment(ctx, article.ID, "Anon", "Kalian semua maling")
	require.NoError(t, err)
	assert.Equal(t, domain.CommentPending, held.Comment.Status)
	assert.GreaterOrEqual(t, held.Verdict.Scores.Harassment, 0.6)

	approved, err := svc.ListComments(ctx, article.ID, domain.CommentApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestSubmitComment_ShortenedLinkIsHeld(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	ctx := context.Background()
	article := &domain.Article{Slug: "c2", Title: "t", Body: "b", Category: domain.CategoryLaw, Status: domain.StatusPublished, RiskLevel: domain.RiskLow}
	require.NoError(t, articles.Create(ctx, article))

	body := "Promo murah https://bit.ly/xyz"
	oracle := new(mockBackend)
	oracle.On("Complete", moderationSystemPrompt, body).Return(
		`{"hate":0,"harassment":0,"violence":0,"recommendation":"approve","reason":"ok"}`, nil)

	svc := NewCommentService(repository.NewCommentRepository(db), articles, newTestScorer(oracle), nil)

	res, err := svc.SubmitComment(ctx, article.ID, "Promo", body)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendReview, res.Verdict.Recommendation)
	assert.Equal(t, domain.CommentPending, res.Comment.Status)
	assert.Contains(t, res.Verdict.Reason, "shortened link")
}

func TestSubmitComment_Validation(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCommentService(repository.NewCommentRepository(db), repository.NewArticleRepository(db),
		NewRiskScorer(nil, RiskScorerOptions{}), nil)

	_, err := svc.SubmitComment(context.Background(), 1, "", "x")
	assert.Error(t, err)

	_, err = svc.SubmitComment(context.Background(), 999, "a", "x")
	assert.Error(t, err)
}
