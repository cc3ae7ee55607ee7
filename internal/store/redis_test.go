package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test"), mr, client
}

func seedDevice(t *testing.T, s *RedisStore, id, owner string) {
	t.Helper()
	err := s.Batch(context.Background(),
		SetOp("devices/"+id, map[string]interface{}{
			"owner":           owner,
			"environment":     map[string]interface{}{"humidity": 40, "temperature": 20},
			"cleaningControl": map[string]interface{}{"status": "idle", "trigger": 0},
		}),
		SetOp("users/"+owner+"/devices/"+id, map[string]interface{}{"name": "Roof " + id}),
	)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
}

func TestRedisStoreDocuments(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newTestRedisStore(t)
	seedDevice(t, s, "d1", "u1")

	t.Run("Batch writes one document per root", func(t *testing.T) {
		if !mr.Exists("test:doc:devices/d1") || !mr.Exists("test:doc:users/u1") {
			t.Fatalf("Expected device and user documents, got keys %v", mr.Keys())
		}

		snap, err := s.Get(ctx, "devices/d1/cleaningControl/status")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if snap.Value != "idle" {
			t.Errorf("Expected status idle, got %v", snap.Value)
		}

		snap, _ = s.Get(ctx, "users/u1/devices/d1/name")
		if snap.Value != "Roof d1" {
			t.Errorf("Expected owner reference name, got %v", snap.Value)
		}
	})

	t.Run("Update merges nested fields", func(t *testing.T) {
		err := s.Update(ctx, "devices/d1", map[string]interface{}{
			"cleaningControl/autoSettings/lastCleaning": 1234,
			"environment/humidity":                      55,
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		var control struct {
			Status       string `json:"status"`
			AutoSettings struct {
				LastCleaning int64 `json:"lastCleaning"`
			} `json:"autoSettings"`
		}
		if err := GetInto(ctx, s, "devices/d1/cleaningControl", &control); err != nil {
			t.Fatalf("GetInto failed: %v", err)
		}
		if control.Status != "idle" || control.AutoSettings.LastCleaning != 1234 {
			t.Errorf("Expected idle with lastCleaning 1234, got %+v", control)
		}

		snap, _ := s.Get(ctx, "devices/d1/environment/temperature")
		if snap.Value != float64(20) {
			t.Errorf("Expected temperature to be kept, got %v", snap.Value)
		}
	})

	t.Run("Collection reads scan documents", func(t *testing.T) {
		seedDevice(t, s, "d2", "u1")

		ids, err := s.Children(ctx, "devices")
		if err != nil {
			t.Fatalf("Children failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "d1" || ids[1] != "d2" {
			t.Errorf("Expected [d1 d2], got %v", ids)
		}

		owned, _ := s.Children(ctx, "users/u1/devices")
		if len(owned) != 2 {
			t.Errorf("Expected 2 owned devices, got %v", owned)
		}

		snap, err := s.Get(ctx, "devices")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		devices, ok := snap.Value.(map[string]interface{})
		if !ok || len(devices) != 2 {
			t.Errorf("Expected 2 device documents, got %v", snap.Value)
		}
	})

	t.Run("Remove prunes empty documents", func(t *testing.T) {
		for _, id := range []string{"d1", "d2"} {
			err := s.Batch(ctx, RemoveOp("users/u1/devices/"+id), RemoveOp("devices/"+id))
			if err != nil {
				t.Fatalf("Batch remove failed: %v", err)
			}
		}
		if keys := mr.Keys(); len(keys) != 0 {
			t.Errorf("Expected no keys left, got %v", keys)
		}

		snap, _ := s.Get(ctx, "devices/d1")
		if snap.Exists {
			t.Errorf("Expected removed device to be absent")
		}
	})

	t.Run("Collection level write is rejected", func(t *testing.T) {
		if err := s.Set(ctx, "devices", map[string]interface{}{}); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Expected ErrInvalidPath, got %v", err)
		}
	})
}

func TestRedisStoreTransact(t *testing.T) {
	ctx := context.Background()

	t.Run("Retries when the document changes under WATCH", func(t *testing.T) {
		s, _, client := newTestRedisStore(t)
		seedDevice(t, s, "d1", "u1")

		calls := 0
		err := s.Transact(ctx, "devices/d1/cleaningControl", func(current Snapshot) ([]Op, error) {
			calls++
			if calls == 1 {
				// 다른 연결에서 문서를 바꿔 EXEC을 실패시킨다
				other := NewRedisStore(client, "test")
				if err := other.Update(ctx, "devices/d1/cleaningControl", map[string]interface{}{"trigger": 1}); err != nil {
					t.Errorf("concurrent Update failed: %v", err)
				}
			}
			var control struct {
				Trigger int `json:"trigger"`
			}
			if err := current.Decode(&control); err != nil {
				return nil, err
			}
			return []Op{UpdateOp("devices/d1/cleaningControl", map[string]interface{}{"seenTrigger": control.Trigger})}, nil
		})
		if err != nil {
			t.Fatalf("Transact failed: %v", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 attempts, got %d", calls)
		}

		snap, _ := s.Get(ctx, "devices/d1/cleaningControl/seenTrigger")
		if snap.Value != float64(1) {
			t.Errorf("Expected retry to see trigger 1, got %v", snap.Value)
		}
	})

	t.Run("Concurrent increments are not lost", func(t *testing.T) {
		s, _, _ := newTestRedisStore(t)
		s.maxRetries = 100
		seedDevice(t, s, "d1", "u1")

		const workers, rounds = 4, 10
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					err := s.Transact(ctx, "devices/d1/history/day", func(current Snapshot) ([]Op, error) {
						var rec struct {
							Cleanings int `json:"cleanings"`
						}
						if current.Exists {
							if err := current.Decode(&rec); err != nil {
								return nil, err
							}
						}
						rec.Cleanings++
						return []Op{SetOp("devices/d1/history/day", rec)}, nil
					})
					if err != nil {
						t.Errorf("Transact failed: %v", err)
					}
				}
			}()
		}
		wg.Wait()

		snap, _ := s.Get(ctx, "devices/d1/history/day/cleanings")
		if snap.Value != float64(workers*rounds) {
			t.Errorf("Expected %d cleanings, got %v", workers*rounds, snap.Value)
		}
	})

	t.Run("Ops outside the root are rejected", func(t *testing.T) {
		s, _, _ := newTestRedisStore(t)
		seedDevice(t, s, "d1", "u1")

		err := s.Transact(ctx, "devices/d1", func(Snapshot) ([]Op, error) {
			return []Op{RemoveOp("users/u1/devices/d1")}, nil
		})
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Expected ErrInvalidPath, got %v", err)
		}
		snap, _ := s.Get(ctx, "users/u1/devices/d1")
		if !snap.Exists {
			t.Errorf("Expected owner reference to be untouched")
		}
	})
}

func TestRedisStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestRedisStore(t)
	seedDevice(t, s, "d1", "u1")

	deliveries := make(chan Snapshot, 10)
	sub, err := s.Subscribe(ctx, "devices/d1/cleaningControl", func(snap Snapshot) {
		deliveries <- snap
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	next := func() Snapshot {
		t.Helper()
		select {
		case snap := <-deliveries:
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("Expected a delivery")
			return Snapshot{}
		}
	}
	status := func(snap Snapshot) interface{} {
		return snap.Value.(map[string]interface{})["status"]
	}

	if initial := next(); status(initial) != "idle" {
		t.Errorf("Expected initial idle snapshot, got %v", initial.Value)
	}

	// 다른 섹션 변경은 전달되지 않아야 한다
	if err := s.Update(ctx, "devices/d1/environment", map[string]interface{}{"humidity": 70}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := s.Update(ctx, "devices/d1/cleaningControl", map[string]interface{}{"status": "cleaning"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if snap := next(); status(snap) != "cleaning" {
		t.Errorf("Expected cleaning snapshot next, got %v", snap.Value)
	}

	sub.Close()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected subscription to be done after Close")
	}

	s.Update(ctx, "devices/d1/cleaningControl", map[string]interface{}{"status": "idle"})
	time.Sleep(50 * time.Millisecond)
	if len(deliveries) != 0 {
		t.Errorf("Expected no deliveries after Close, got %d", len(deliveries))
	}
}

func TestRedisStoreCollectionSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestRedisStore(t)

	var mu sync.Mutex
	var seen [][]string
	sub, err := s.Subscribe(ctx, "devices", func(snap Snapshot) {
		ids := childKeys(snap.Value)
		sort.Strings(ids)
		mu.Lock()
		seen = append(seen, ids)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	seedDevice(t, s, "d1", "u1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("Expected initial and change deliveries, got %v", seen)
	}
	if len(seen[0]) != 0 {
		t.Errorf("Expected empty initial collection, got %v", seen[0])
	}
	last := seen[len(seen)-1]
	if len(last) != 1 || last[0] != "d1" {
		t.Errorf("Expected [d1] after provisioning, got %v", last)
	}
}
