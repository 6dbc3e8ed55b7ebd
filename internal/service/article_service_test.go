package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/pkg/cache"
	"github.com/damoang/angple-editorial/pkg/imagesource"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-process cache.Service
type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
	views map[int64]int64
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}, views: map[int64]int64{}}
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memCache) GetArticle(ctx context.Context, id int64, dest interface{}) error {
	return m.Get(ctx, cache.ArticleKey(id), dest)
}

func (m *memCache) SetArticle(ctx context.Context, id int64, data interface{}) error {
	return m.Set(ctx, cache.ArticleKey(id), data, cache.TTLArticle)
}

func (m *memCache) InvalidateArticle(ctx context.Context, id int64) error {
	return m.Delete(ctx, cache.ArticleKey(id))
}

func (m *memCache) IncrViews(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[id]++
	return m.views[id], nil
}

func (m *memCache) DrainViews(_ context.Context) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.views
	m.views = map[int64]int64{}
	return out, nil
}

func (m *memCache) IsAvailable() bool            { return true }
func (m *memCache) Ping(_ context.Context) error { return nil }

func (m *memCache) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[cache.ArticleKey(id)]
	return ok
}

func TestGetArticle_ServesFromCacheAfterFirstRead(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	mc := newMemCache()
	svc := NewArticleService(articles, NewRiskScorer(nil, RiskScorerOptions{}), mc, nil)
	ctx := context.Background()

	a := publishable()
	require.NoError(t, articles.Create(ctx, a))

	first, err := svc.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Audit dana desa", first.Title)
	assert.True(t, mc.has(a.ID))

	require.NoError(t, db.Model(&domain.Article{}).Where("id = ?", a.ID).Update("title", "Judul baru").Error)
	second, err := svc.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Audit dana desa", second.Title)

	// 조회수는 캐시 버퍼로 간다
	n, err := svc.FlushViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, err := articles.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), int64(stored.ViewCount))

	_, err = svc.GetArticle(ctx, 424242)
	assert.ErrorIs(t, err, common.ErrArticleNotFound)
}

func TestPublishGate_WritesInvalidateCachedArticle(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	evidence := repository.NewEvidenceRepository(db)
	mc := newMemCache()
	gate := NewPublishGate(articles, evidence, nil, mc)
	ctx := context.Background()

	a := publishable()
	require.NoError(t, articles.Create(ctx, a))
	require.NoError(t, evidence.Create(ctx, &domain.Evidence{ArticleID: a.ID, Type: domain.EvidenceDocument, URL: "https://docs/a.pdf"}))

	steps := []struct {
		name string
		run  func() error
	}{
		{"legal sign-off", func() error { _, err := gate.LegalSignOff(ctx, a.ID, "legal@desk"); return err }},
		{"publish", func() error { _, err := gate.Publish(ctx, a.ID); return err }},
		{"unpublish", func() error { _, err := gate.Unpublish(ctx, a.ID); return err }},
		{"transition", func() error { _, err := gate.Transition(ctx, a.ID, domain.StatusReview); return err }},
		{"attach evidence", func() error {
			_, err := gate.AttachEvidence(ctx, a.ID, domain.AttachEvidenceRequest{Type: domain.EvidenceImage, URL: "https://img/b.jpg"})
			return err
		}},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			require.NoError(t, mc.SetArticle(ctx, a.ID, a))
			require.NoError(t, step.run())
			assert.False(t, mc.has(a.ID))
		})
	}
}

func TestRepairImage_InvalidatesCachedArticle(t *testing.T) {
	db := setupServiceDB(t)
	articles := repository.NewArticleRepository(db)
	mc := newMemCache()
	gen := &fakeProvider{name: "gen", label: imagesource.LabelAIGenerated, url: "https://gen/img"}
	svc := NewImageService([]imagesource.Provider{gen}, nil,
		&fakeValidator{ok: map[string]bool{"https://gen/img": true}},
		articles, nil, ImageServiceOptions{RetryDelay: time.Millisecond, Cache: mc})
	ctx := context.Background()

	a := &domain.Article{Slug: "tanpa-gambar", Title: "Tanpa gambar", Status: domain.StatusDraft}
	require.NoError(t, articles.Create(ctx, a))
	require.NoError(t, mc.SetArticle(ctx, a.ID, a))

	_, err := svc.RepairImage(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, mc.has(a.ID))
}

func TestAttachEvidence(t *testing.T) {
	f := newGateFixture(t)
	a := publishable()
	a = f.seed(t, a, 0)
	ctx := context.Background()

	_, err := f.gate.AttachEvidence(ctx, a.ID, domain.AttachEvidenceRequest{Type: "rumor", URL: "https://x"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.gate.AttachEvidence(ctx, a.ID, domain.AttachEvidenceRequest{Type: domain.EvidenceDocument, URL: "  "})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = f.gate.AttachEvidence(ctx, 9999, domain.AttachEvidenceRequest{Type: domain.EvidenceDocument, URL: "https://x"})
	assert.ErrorIs(t, err, common.ErrArticleNotFound)

	ev, err := f.gate.AttachEvidence(ctx, a.ID, domain.AttachEvidenceRequest{
		Type: domain.EvidenceDocument, URL: " https://docs/putusan.pdf ", Description: "salinan putusan",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://docs/putusan.pdf", ev.URL)

	list, err := f.gate.ListEvidence(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	stored, err := f.articles.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EvidenceCount)

	// 증거가 붙으면 게이트 통과
	got, err := f.gate.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, got.Status)
}
