package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL 상수 정의
const (
	TTLArticle = 2 * time.Minute  // 공개 기사 본문
	TTLDefault = 5 * time.Minute  // 기본값
	TTLViews   = 24 * time.Hour   // flush 되지 않은 조회수 보존 기간
)

// 캐시 키 접두사
const (
	PrefixArticle = "article:"
	PrefixViews   = "views:article:"
)

// ErrUnavailable is returned when no Redis client is configured
var ErrUnavailable = errors.New("redis not available")

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	// 기본 캐시 연산
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 기사 캐시
	GetArticle(ctx context.Context, id int64, dest interface{}) error
	SetArticle(ctx context.Context, id int64, data interface{}) error
	InvalidateArticle(ctx context.Context, id int64) error

	// 조회수 카운터
	IncrViews(ctx context.Context, id int64) (int64, error)
	DrainViews(ctx context.Context) (map[int64]int64, error)

	// 유틸리티
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성. client 가 nil 이면 모든 쓰기는 무시된다.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable Redis 연결 가능 여부
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping Redis 연결 테스트
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// Get 캐시에서 값 조회
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrUnavailable
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set 캐시에 값 저장
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete 캐시 삭제
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ========================================
// 기사 캐시
// ========================================

func ArticleKey(id int64) string {
	return fmt.Sprintf("%s%d", PrefixArticle, id)
}

func (c *redisCache) GetArticle(ctx context.Context, id int64, dest interface{}) error {
	return c.Get(ctx, ArticleKey(id), dest)
}

func (c *redisCache) SetArticle(ctx context.Context, id int64, data interface{}) error {
	return c.Set(ctx, ArticleKey(id), data, TTLArticle)
}

func (c *redisCache) InvalidateArticle(ctx context.Context, id int64) error {
	return c.Delete(ctx, ArticleKey(id))
}

// ========================================
// 조회수 카운터
// ========================================

func ViewsKey(id int64) string {
	return fmt.Sprintf("%s%d", PrefixViews, id)
}

// IncrViews 조회수 +1 (INCR). 키는 TTLViews 동안 유지된다.
func (c *redisCache) IncrViews(ctx context.Context, id int64) (int64, error) {
	if c.client == nil {
		return 0, ErrUnavailable
	}
	key := ViewsKey(id)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, TTLViews)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// DrainViews 쌓인 조회수를 GETDEL 로 꺼낸다. 반환값은 article id → 증가분.
func (c *redisCache) DrainViews(ctx context.Context) (map[int64]int64, error) {
	out := map[int64]int64{}
	if c.client == nil {
		return out, ErrUnavailable
	}

	iter := c.client.Scan(ctx, 0, PrefixViews+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := strconv.ParseInt(strings.TrimPrefix(key, PrefixViews), 10, 64)
		if err != nil {
			continue
		}
		n, err := c.client.GetDel(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return out, err
		}
		if n > 0 {
			out[id] += n
		}
	}
	return out, iter.Err()
}
