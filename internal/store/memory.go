// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"solar-sync/internal/common/paths"
	rediskeys "solar-sync/internal/common/redis"
)

// MemoryStore 프로세스 내부 저장소 (테스트 및 단일 인스턴스 실행용)
//
// 리스너는 쓰기를 수행한 고루틴에서 잠금 해제 후 동기적으로 호출된다.
// 리스너별 전달은 직렬화되며 더 오래된 스냅샷은 버려진다. 리스너 안에서
// 자신이 구독한 경로에 동기적으로 쓰면 교착된다.
type MemoryStore struct {
	mu        sync.RWMutex
	root      interface{}
	version   uint64
	listeners map[int]*memoryListener
	nextID    int
}

type memoryListener struct {
	path string
	fn   Listener

	mu        sync.Mutex
	started   bool
	delivered uint64
}

// deliver 이미 전달한 것보다 새로운 스냅샷만 전달
func (l *memoryListener) deliver(snap Snapshot, version uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started && version <= l.delivered {
		return
	}
	l.started = true
	l.delivered = version
	l.fn(snap)
}

// NewMemoryStore 새 메모리 저장소 생성
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listeners: make(map[int]*memoryListener),
	}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(path), nil
}

func (m *MemoryStore) snapshotLocked(path string) Snapshot {
	value, ok := lookup(m.root, paths.Split(path))
	if !ok {
		return Snapshot{Path: path}
	}
	return Snapshot{Path: path, Value: deepCopy(value), Exists: true}
}

func (m *MemoryStore) Set(ctx context.Context, path string, value interface{}) error {
	return m.Batch(ctx, SetOp(path, value))
}

func (m *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	return m.Batch(ctx, UpdateOp(path, fields))
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	return m.Batch(ctx, RemoveOp(path))
}

// Batch 모든 연산을 하나의 잠금 안에서 적용 (중간에 실패하면 아무것도 반영하지 않음)
func (m *MemoryStore) Batch(ctx context.Context, ops ...Op) error {
	return m.commit(ctx, func() ([]Op, error) { return ops, nil })
}

// Transact 잠금을 쥔 채 현재 값을 읽고 fn이 돌려준 연산을 적용
func (m *MemoryStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	if len(paths.Split(path)) < 2 {
		return fmt.Errorf("%w: collection level transaction %q", ErrInvalidPath, path)
	}
	root := rediskeys.DocumentRoot(path)
	return m.commit(ctx, func() ([]Op, error) {
		ops, err := fn(m.snapshotLocked(path))
		if err != nil {
			return nil, err
		}
		if err := checkTxOps(root, ops); err != nil {
			return nil, err
		}
		return ops, nil
	})
}

// commit 쓰기 잠금 안에서 build가 만든 연산을 적용하고 영향받는 리스너에 전달
func (m *MemoryStore) commit(ctx context.Context, build func() ([]Op, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	ops, err := build()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if len(ops) == 0 {
		m.mu.Unlock()
		return nil
	}

	working := deepCopy(m.root)
	var changed []string
	for _, op := range ops {
		var opChanged []string
		working, opChanged, err = applyOp(working, nil, op)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		changed = append(changed, opChanged...)
	}
	m.root = working
	m.version++
	version := m.version

	type delivery struct {
		listener *memoryListener
		snap     Snapshot
	}
	deliveries := make([]delivery, 0)
	for _, l := range m.listeners {
		if affects(changed, l.path) {
			deliveries = append(deliveries, delivery{listener: l, snap: m.snapshotLocked(l.path)})
		}
	}
	m.mu.Unlock()

	for _, d := range deliveries {
		d.listener.deliver(d.snap, version)
	}
	return nil
}

func (m *MemoryStore) Children(ctx context.Context, path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, _ := lookup(m.root, paths.Split(path))
	return childKeys(value), nil
}

// Subscribe 현재 값을 즉시 전달한 뒤 변경마다 전달
func (m *MemoryStore) Subscribe(ctx context.Context, path string, fn Listener) (*Subscription, error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	listener := &memoryListener{path: path, fn: fn}
	m.listeners[id] = listener
	initial := m.snapshotLocked(path)
	version := m.version
	m.mu.Unlock()

	sub := newSubscription(path, func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	})

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()

	listener.deliver(initial, version)
	return sub, nil
}

// ListenerCount 활성 리스너 수
func (m *MemoryStore) ListenerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners)
}
