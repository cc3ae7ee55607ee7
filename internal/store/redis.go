// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"solar-sync/internal/common/paths"
	rediskeys "solar-sync/internal/common/redis"
	"solar-sync/internal/utils"

	"github.com/go-redis/redis/v8"
)

const defaultMaxTxRetries = 10

// RedisStore Redis 기반 상태 저장소
//
// 경로의 앞 두 세그먼트(devices/{id}, users/{uid}, config/{name})가 하나의 JSON 문서로
// 저장된다. 쓰기는 WATCH/MULTI 트랜잭션으로 적용되고, 변경된 경로는 문서별 채널로
// 발행된다.
type RedisStore struct {
	client     *redis.Client
	keys       *rediskeys.KeyGenerator
	maxRetries int
}

// changeMessage 변경 알림 페이로드
type changeMessage struct {
	Paths []string `json:"paths"`
}

// NewRedisStore 새 Redis 저장소 생성
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		keys:       rediskeys.NewKeyGenerator(prefix),
		maxRetries: defaultMaxTxRetries,
	}
}

func (r *RedisStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segs := paths.Split(path)
	switch len(segs) {
	case 0:
		return Snapshot{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	case 1:
		value, err := r.loadCollection(ctx, segs[0])
		if err != nil {
			return Snapshot{}, err
		}
		if value == nil {
			return Snapshot{Path: path}, nil
		}
		return Snapshot{Path: path, Value: value, Exists: true}, nil
	}

	root := rediskeys.DocumentRoot(path)
	doc, err := r.loadDocument(ctx, r.client, root)
	if err != nil {
		return Snapshot{}, err
	}
	value, ok := lookup(doc, segs[2:])
	if !ok {
		return Snapshot{Path: path}, nil
	}
	return Snapshot{Path: path, Value: value, Exists: true}, nil
}

func (r *RedisStore) Set(ctx context.Context, path string, value interface{}) error {
	return r.Batch(ctx, SetOp(path, value))
}

func (r *RedisStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	return r.Batch(ctx, UpdateOp(path, fields))
}

func (r *RedisStore) Remove(ctx context.Context, path string) error {
	return r.Batch(ctx, RemoveOp(path))
}

// Batch 관련 루트 문서를 모두 WATCH 한 뒤 하나의 MULTI 트랜잭션으로 기록
func (r *RedisStore) Batch(ctx context.Context, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}

	roots := make([]string, 0)
	seen := make(map[string]bool)
	for _, op := range ops {
		if len(paths.Split(op.Path)) < 2 {
			return fmt.Errorf("%w: collection level write %q", ErrInvalidPath, op.Path)
		}
		root := rediskeys.DocumentRoot(op.Path)
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	return r.commit(ctx, roots, func(map[string]interface{}) ([]Op, error) {
		return ops, nil
	})
}

// Transact 루트 문서를 WATCH 한 채 현재 값을 읽고 fn이 돌려준 연산을 기록
//
// 다른 쓰기와 충돌하면 fn을 다시 호출한다.
func (r *RedisStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	segs := paths.Split(path)
	if len(segs) < 2 {
		return fmt.Errorf("%w: collection level transaction %q", ErrInvalidPath, path)
	}
	root := rediskeys.DocumentRoot(path)

	return r.commit(ctx, []string{root}, func(docs map[string]interface{}) ([]Op, error) {
		current := Snapshot{Path: path}
		if value, ok := lookup(docs[root], segs[2:]); ok {
			current.Value = deepCopy(value)
			current.Exists = true
		}
		ops, err := fn(current)
		if err != nil {
			return nil, err
		}
		if err := checkTxOps(root, ops); err != nil {
			return nil, err
		}
		return ops, nil
	})
}

// commit roots 문서를 WATCH/MULTI 로 갱신 (충돌 시 maxRetries 까지 재시도)
func (r *RedisStore) commit(ctx context.Context, roots []string, build func(docs map[string]interface{}) ([]Op, error)) error {
	docKeys := make([]string, len(roots))
	for i, root := range roots {
		docKeys[i] = r.keys.Document(root)
	}

	txf := func(tx *redis.Tx) error {
		docs := make(map[string]interface{}, len(roots))
		for _, root := range roots {
			doc, err := r.loadDocument(ctx, tx, root)
			if err != nil {
				return err
			}
			docs[root] = doc
		}

		ops, err := build(docs)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}

		changed := make(map[string][]string)
		for _, op := range ops {
			root := rediskeys.DocumentRoot(op.Path)
			doc, opChanged, err := applyOp(docs[root], paths.Split(root), op)
			if err != nil {
				return err
			}
			docs[root] = doc
			changed[root] = append(changed[root], opChanged...)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, root := range roots {
				key := r.keys.Document(root)
				if docs[root] == nil {
					pipe.Del(ctx, key)
					continue
				}
				data, err := json.Marshal(docs[root])
				if err != nil {
					return fmt.Errorf("failed to encode document %s: %w", root, err)
				}
				pipe.Set(ctx, key, data, 0)
			}
			for _, root := range roots {
				msg, err := json.Marshal(changeMessage{Paths: changed[root]})
				if err != nil {
					return err
				}
				pipe.Publish(ctx, r.keys.ChangeChannel(root), msg)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, docKeys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			utils.Logger.Debugf("store transaction conflict on %v, retrying (%d)", roots, attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("store: transaction on %v failed after %d attempts", roots, r.maxRetries)
}

func (r *RedisStore) Children(ctx context.Context, path string) ([]string, error) {
	segs := paths.Split(path)
	if len(segs) == 1 {
		roots, err := r.scanRoots(ctx, segs[0])
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(roots))
		for _, root := range roots {
			ids = append(ids, paths.Split(root)[1])
		}
		sort.Strings(ids)
		return ids, nil
	}

	snap, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return childKeys(snap.Value), nil
}

// Subscribe 문서(또는 컬렉션) 변경 채널을 구독하고, 경로에 영향이 있을 때마다 다시 읽어 전달
func (r *RedisStore) Subscribe(ctx context.Context, path string, fn Listener) (*Subscription, error) {
	segs := paths.Split(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	var pubsub *redis.PubSub
	if len(segs) == 1 {
		pubsub = r.client.PSubscribe(ctx, r.keys.ChangeChannel(segs[0]+"/*"))
	} else {
		pubsub = r.client.Subscribe(ctx, r.keys.ChangeChannel(rediskeys.DocumentRoot(path)))
	}

	// 구독 확인 후 초기 스냅샷을 읽어야 그 사이 변경을 놓치지 않음
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", path, err)
	}

	initial, err := r.Get(ctx, path)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(path, func() {
		cancel()
		pubsub.Close()
	})

	fn(initial)

	go func() {
		defer sub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					utils.Logger.Warnf("invalid change message on %s: %v", msg.Channel, err)
					continue
				}
				if !affects(change.Paths, path) {
					continue
				}
				snap, err := r.Get(subCtx, path)
				if err != nil {
					if subCtx.Err() == nil {
						utils.Logger.Errorf("failed to reload %s after change: %v", path, err)
					}
					continue
				}
				fn(snap)
			}
		}
	}()

	return sub, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) loadDocument(ctx context.Context, g getter, root string) (interface{}, error) {
	raw, err := g.Get(ctx, r.keys.Document(root)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", root, err)
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", root, err)
	}
	return doc, nil
}

func (r *RedisStore) scanRoots(ctx context.Context, collection string) ([]string, error) {
	roots := make([]string, 0)
	iter := r.client.Scan(ctx, 0, r.keys.AllDocuments(collection), 100).Iterator()
	for iter.Next(ctx) {
		roots = append(roots, r.keys.RootFromDocumentKey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
	}
	return roots, nil
}

func (r *RedisStore) loadCollection(ctx context.Context, collection string) (interface{}, error) {
	roots, err := r.scanRoots(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(roots))
	for _, root := range roots {
		doc, err := r.loadDocument(ctx, r.client, root)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out[paths.Split(root)[1]] = doc
		}
	}
	return out, nil
}
