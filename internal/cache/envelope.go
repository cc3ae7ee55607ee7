// internal/cache/envelope.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solar-sync/internal/interfaces"
)

// DefaultPrefix 캐시 네임스페이스
const DefaultPrefix = "solar_sync_"

// Envelope 저장 형식 (timestamp, expiration은 Unix ms, expiration 0은 만료 없음)
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	Expiration int64           `json:"expiration"`
}

// Expired at 기준 만료 여부
func (e Envelope) Expired(at time.Time) bool {
	return e.Expiration > 0 && at.UnixMilli() >= e.Expiration
}

// EnvelopeCache 만료 봉투를 씌워 저장하는 네임스페이스 캐시
//
// 만료된 항목은 Get에서 없는 것으로 취급하고 그 자리에서 삭제한다.
type EnvelopeCache struct {
	backend interfaces.CacheService
	prefix  string
	logger  interfaces.Logger
	now     func() time.Time
}

// NewEnvelopeCache 새 캐시 생성 (prefix가 비어 있으면 DefaultPrefix)
func NewEnvelopeCache(backend interfaces.CacheService, prefix string, logger interfaces.Logger) *EnvelopeCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &EnvelopeCache{
		backend: backend,
		prefix:  prefix,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock 만료 판단 기준 시계 교체 (테스트용)
func (c *EnvelopeCache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *EnvelopeCache) key(key string) string {
	return c.prefix + key
}

// Set 값을 봉투에 담아 저장 (ttl <= 0 이면 만료 없음)
func (c *EnvelopeCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cache data for %s: %w", key, err)
	}

	now := c.now()
	env := Envelope{Data: raw, Timestamp: now.UnixMilli()}
	if ttl > 0 {
		env.Expiration = now.Add(ttl).UnixMilli()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode cache envelope for %s: %w", key, err)
	}

	// 백엔드 TTL은 봉투보다 조금 길게 두고 만료 판단은 봉투 기준으로 한다
	var backendTTL time.Duration
	if ttl > 0 {
		backendTTL = ttl + time.Minute
	}
	return c.backend.Set(ctx, c.key(key), payload, backendTTL)
}

// Get 값을 v로 디코딩 (없거나 만료되었으면 false)
func (c *EnvelopeCache) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := c.backend.Get(ctx, c.key(key))
	if err != nil {
		return false, fmt.Errorf("failed to read cache %s: %w", key, err)
	}
	if raw == "" {
		return false, nil
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Warnf("corrupt cache entry %s removed: %v", key, err)
		c.backend.Del(ctx, c.key(key))
		return false, nil
	}

	if env.Expired(c.now()) {
		if err := c.backend.Del(ctx, c.key(key)); err != nil {
			c.logger.Warnf("failed to remove expired cache entry %s: %v", key, err)
		}
		return false, nil
	}

	if v != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return false, fmt.Errorf("failed to decode cache data for %s: %w", key, err)
		}
	}
	return true, nil
}

// Remove 항목 삭제
func (c *EnvelopeCache) Remove(ctx context.Context, key string) error {
	return c.backend.Del(ctx, c.key(key))
}

// Clear 네임스페이스의 모든 항목 삭제 (다른 prefix의 키는 건드리지 않음)
func (c *EnvelopeCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.backend.Keys(ctx, c.prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return len(keys), nil
}
