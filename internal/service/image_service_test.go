package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/imagesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeProvider struct {
	name  string
	label string
	url   string
	err   error
	calls int
}

func (p *fakeProvider) Name() string  { return p.name }
func (p *fakeProvider) Label() string { return p.label }

func (p *fakeProvider) Candidate(ctx context.Context, req imagesource.Request) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}

// fakeValidator accepts only the URLs listed in ok
type fakeValidator struct {
	ok    map[string]bool
	calls []string
}

func (v *fakeValidator) Validate(ctx context.Context, url string) error {
	v.calls = append(v.calls, url)
	if v.ok[url] {
		return nil
	}
	return errors.New("rejected")
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&domain.Article{}, &domain.Evidence{}, &domain.Comment{}, &domain.ActivityLog{}))
	return db
}

func newTestImageService(t *testing.T, primaries []imagesource.Provider, fallback imagesource.Provider, v ImageValidator) (*ImageService, *gorm.DB) {
	db := setupServiceDB(t)
	svc := NewImageService(primaries, fallback, v,
		repository.NewArticleRepository(db),
		NewActivityLogger(repository.NewActivityLogRepository(db)),
		ImageServiceOptions{Retries: 2, RetryDelay: time.Millisecond},
	)
	return svc, db
}

func TestAcquireImage_ProvenanceIsTheSucceedingProvider(t *testing.T) {
	a := &fakeProvider{name: "a", label: "A", url: "https://a/img"}
	b := &fakeProvider{name: "b", label: "B", err: errors.New("down")}
	c := &fakeProvider{name: "c", label: "C", url: "https://c/img"}
	fb := &fakeProvider{name: "kw", label: "Stock", url: "https://kw/img"}
	v := &fakeValidator{ok: map[string]bool{"https://c/img": true}}

	svc, _ := newTestImageService(t, []imagesource.Provider{a, b, c}, fb, v)
	res, err := svc.AcquireImage(context.Background(), "Banjir Jakarta", ImageModeBatch)

	require.NoError(t, err)
	assert.Equal(t, "https://c/img", res.URL)
	assert.Equal(t, "C", res.Provenance)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, fb.calls)
}

func TestAcquireImage_RetriesThenSucceeds(t *testing.T) {
	flaky := &flakyProvider{failures: 2, url: "https://gen/img"}
	v := &fakeValidator{ok: map[string]bool{"https://gen/img": true}}

	svc, _ := newTestImageService(t, []imagesource.Provider{flaky}, nil, v)
	res, err := svc.AcquireImage(context.Background(), "x", ImageModeManual)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []string{"full", "short", "keywords"}, flaky.strategies)
}

func TestAcquireImage_BatchFallbackIsUnvalidated(t *testing.T) {
	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	fb := &fakeProvider{name: "kw", label: imagesource.LabelLoremFlickr, url: "https://kw/img"}
	v := &fakeValidator{ok: map[string]bool{}}

	svc, _ := newTestImageService(t, []imagesource.Provider{gen}, fb, v)
	res, err := svc.AcquireImage(context.Background(), "Sidang korupsi", ImageModeBatch)

	require.NoError(t, err)
	assert.Equal(t, "https://kw/img", res.URL)
	assert.Equal(t, imagesource.LabelLoremFlickr, res.Provenance)
	assert.Equal(t, 3, gen.calls, "1 + 2 retries")
	assert.NotContains(t, v.calls, "https://kw/img")
}

func TestAcquireImage_ManualFallbackIsValidated(t *testing.T) {
	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	fb := &fakeProvider{name: "kw", label: imagesource.LabelLoremFlickr, url: "https://kw/img"}
	v := &fakeValidator{ok: map[string]bool{}}

	svc, _ := newTestImageService(t, []imagesource.Provider{gen}, fb, v)
	_, err := svc.AcquireImage(context.Background(), "Sidang korupsi", ImageModeManual)

	assert.ErrorIs(t, err, common.ErrImageChainExhausted)
	assert.Contains(t, v.calls, "https://kw/img")
}

func TestRepairImage_WritesImageFieldsAndLogs(t *testing.T) {
	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	v := &fakeValidator{ok: map[string]bool{"https://gen/img": true}}
	svc, db := newTestImageService(t, []imagesource.Provider{gen}, nil, v)
	articles := repository.NewArticleRepository(db)
	ctx := context.Background()

	article := &domain.Article{Slug: "a1", Title: "Jembatan runtuh", Body: "b", Category: domain.CategoryInvestigation, Status: domain.StatusReview, RiskLevel: domain.RiskLow}
	require.NoError(t, articles.Create(ctx, article))

	res, err := svc.RepairImage(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, imagesource.LabelAIGenerated, res.Provenance)

	got, err := articles.FindByID(ctx, article.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FeaturedImageURL)
	require.NotNil(t, got.ImageSource)
	assert.Equal(t, "Jembatan runtuh", *got.FeaturedImageAlt)
	assert.Equal(t, domain.StatusReview, got.Status, "status is untouched")

	logs, err := repository.NewActivityLogRepository(db).ListRecent(ctx, domain.ActionImageRepair, nil, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestRepairImage_NotFound(t *testing.T) {
	svc, _ := newTestImageService(t, nil, nil, &fakeValidator{})
	_, err := svc.RepairImage(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrArticleNotFound)
}

func TestRepairMissingImages_AbsorbsFailures(t *testing.T) {
	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	v := &fakeValidator{ok: map[string]bool{"https://gen/img": true}}
	svc, db := newTestImageService(t, []imagesource.Provider{gen}, nil, v)
	articles := repository.NewArticleRepository(db)
	ctx := context.Background()

	for _, slug := range []string{"one", "two"} {
		require.NoError(t, articles.Create(ctx, &domain.Article{Slug: slug, Title: slug, Body: "b", Category: domain.CategoryLaw, Status: domain.StatusDraft, RiskLevel: domain.RiskLow}))
	}

	summary, err := svc.RepairMissingImages(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Repaired)

	missing, err := articles.ListMissingImage(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// 모든 provider 실패 + 폴백 없음
	gen.err = errors.New("down")
	require.NoError(t, articles.Create(ctx, &domain.Article{Slug: "three", Title: "three", Body: "b", Category: domain.CategoryLaw, Status: domain.StatusDraft, RiskLevel: domain.RiskLow}))

	summary, err = svc.RepairMissingImages(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.Items[0].Error)
}

// flakyProvider fails a fixed number of times and records which prompt strategy it saw
type flakyProvider struct {
	failures   int
	url        string
	calls      int
	strategies []string
}

func (p *flakyProvider) Name() string  { return "flaky" }
func (p *flakyProvider) Label() string { return "Flaky" }

func (p *flakyProvider) Candidate(ctx context.Context, req imagesource.Request) (string, error) {
	switch req.Prompt {
	case imagesource.PromptForAttempt("x", 0):
		p.strategies = append(p.strategies, "full")
	case imagesource.PromptForAttempt("x", 1):
		p.strategies = append(p.strategies, "short")
	default:
		p.strategies = append(p.strategies, "keywords")
	}
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("busy")
	}
	return p.url, nil
}
