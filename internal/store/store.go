// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	rediskeys "solar-sync/internal/common/redis"
)

var (
	// ErrNotFound 경로에 값이 없음
	ErrNotFound = errors.New("store: path not found")
	// ErrInvalidPath 지원하지 않는 경로
	ErrInvalidPath = errors.New("store: invalid path")
)

// OpKind 배치 연산 종류
type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpRemove
)

// Op 원자적 배치의 단일 연산
type Op struct {
	Kind   OpKind
	Path   string
	Value  interface{}
	Fields map[string]interface{}
}

func SetOp(path string, value interface{}) Op {
	return Op{Kind: OpSet, Path: path, Value: value}
}

func UpdateOp(path string, fields map[string]interface{}) Op {
	return Op{Kind: OpUpdate, Path: path, Fields: fields}
}

func RemoveOp(path string) Op {
	return Op{Kind: OpRemove, Path: path}
}

// Snapshot 경로의 특정 시점 값
type Snapshot struct {
	Path   string
	Value  interface{}
	Exists bool
}

// Decode 스냅샷 값을 구조체로 변환
func (s Snapshot) Decode(v interface{}) error {
	if !s.Exists {
		return fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	data, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.Path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", s.Path, err)
	}
	return nil
}

// Listener 구독 콜백
type Listener func(Snapshot)

// TxFunc 현재 값을 보고 적용할 연산을 결정
//
// 충돌 시 다시 호출될 수 있으므로 부작용이 없어야 하며, 저장소를 직접 호출해서는 안 된다.
// 반환한 연산은 path와 같은 루트 문서 안에 있어야 한다.
type TxFunc func(current Snapshot) ([]Op, error)

// DeviceStore 키-경로 기반 실시간 상태 저장소
//
// 값은 JSON 호환 트리이며 Update의 필드 키는 상대 경로("autoSettings/lastCleaning")를
// 허용한다. nil 값은 해당 경로 삭제를 의미한다.
type DeviceStore interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, value interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Remove(ctx context.Context, path string) error
	Batch(ctx context.Context, ops ...Op) error
	Transact(ctx context.Context, path string, fn TxFunc) error
	Children(ctx context.Context, path string) ([]string, error)
	Subscribe(ctx context.Context, path string, fn Listener) (*Subscription, error)
}

// GetInto 경로 값을 읽어 v로 디코딩 (값이 없으면 ErrNotFound)
func GetInto(ctx context.Context, s DeviceStore, path string, v interface{}) error {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	return snap.Decode(v)
}

// checkTxOps 트랜잭션 연산이 모두 root 문서 안에 있는지 확인
func checkTxOps(root string, ops []Op) error {
	for _, op := range ops {
		if rediskeys.DocumentRoot(op.Path) != root {
			return fmt.Errorf("%w: %q is outside transaction root %q", ErrInvalidPath, op.Path, root)
		}
	}
	return nil
}

// Subscription 구독 핸들 (Close로 해제)
type Subscription struct {
	path   string
	once   sync.Once
	cancel func()
	done   chan struct{}
}

func newSubscription(path string, cancel func()) *Subscription {
	return &Subscription{
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Path 구독 경로
func (s *Subscription) Path() string {
	return s.path
}

// Done 해제 시 닫히는 채널
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close 구독 해제 (여러 번 호출해도 안전)
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		close(s.done)
	})
	return nil
}
