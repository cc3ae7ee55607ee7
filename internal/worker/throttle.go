// internal/worker/throttle.go
package worker

import (
	"sync"
	"time"
)

// refreshThrottle 디바이스별 최소 갱신 간격 제한
type refreshThrottle struct {
	mu          sync.Mutex
	lastRun     map[string]time.Time
	minInterval time.Duration
}

func newRefreshThrottle(minInterval time.Duration) *refreshThrottle {
	return &refreshThrottle{
		lastRun:     make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow 갱신 허용 여부 (허용 시 now를 기록)
func (r *refreshThrottle) Allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, exists := r.lastRun[key]; exists && now.Sub(last) < r.minInterval {
		return false
	}
	r.lastRun[key] = now
	return true
}

// Reset 다음 주기에 다시 시도하도록 기록 제거
func (r *refreshThrottle) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lastRun, key)
}

// Retain 남아 있는 디바이스 외의 기록 정리
func (r *refreshThrottle) Retain(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	for k := range r.lastRun {
		if _, ok := keep[k]; !ok {
			delete(r.lastRun, k)
		}
	}
}
