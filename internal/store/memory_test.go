package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t.Run("Set and Get nested path", func(t *testing.T) {
		if err := s.Set(ctx, "devices/d1/environment", map[string]interface{}{"humidity": 40, "temperature": 21.5}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		snap, err := s.Get(ctx, "devices/d1/environment/temperature")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !snap.Exists {
			t.Fatalf("Expected temperature to exist")
		}
		if snap.Value != 21.5 {
			t.Errorf("Expected temperature 21.5, got %v", snap.Value)
		}
	})

	t.Run("Update merges relative field paths", func(t *testing.T) {
		err := s.Update(ctx, "devices/d1", map[string]interface{}{
			"environment/humidity": 55,
			"info/status":          "online",
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		var env struct {
			Humidity    float64 `json:"humidity"`
			Temperature float64 `json:"temperature"`
		}
		if err := GetInto(ctx, s, "devices/d1/environment", &env); err != nil {
			t.Fatalf("GetInto failed: %v", err)
		}
		if env.Humidity != 55 || env.Temperature != 21.5 {
			t.Errorf("Expected humidity 55 and temperature 21.5, got %+v", env)
		}

		snap, _ := s.Get(ctx, "devices/d1/info/status")
		if snap.Value != "online" {
			t.Errorf("Expected status online, got %v", snap.Value)
		}
	})

	t.Run("Missing path is not an error", func(t *testing.T) {
		snap, err := s.Get(ctx, "devices/missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if snap.Exists {
			t.Errorf("Expected missing path to not exist")
		}

		var v map[string]interface{}
		if err := GetInto(ctx, s, "devices/missing", &v); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Remove prunes empty parents", func(t *testing.T) {
		if err := s.Set(ctx, "users/u1/devices/d1", true); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Remove(ctx, "users/u1/devices/d1"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		snap, _ := s.Get(ctx, "users/u1")
		if snap.Exists {
			t.Errorf("Expected users/u1 to be pruned, got %v", snap.Value)
		}
	})

	t.Run("Children lists sorted keys", func(t *testing.T) {
		s.Set(ctx, "devices/a/info/name", "A")
		s.Set(ctx, "devices/c/info/name", "C")

		children, err := s.Children(ctx, "devices")
		if err != nil {
			t.Fatalf("Children failed: %v", err)
		}
		expected := []string{"a", "c", "d1"}
		if len(children) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, children)
		}
		for i := range expected {
			if children[i] != expected[i] {
				t.Errorf("Expected child[%d] = %s, got %s", i, expected[i], children[i])
			}
		}
	})

	t.Run("Snapshots do not alias stored state", func(t *testing.T) {
		snap, _ := s.Get(ctx, "devices/d1/environment")
		snap.Value.(map[string]interface{})["humidity"] = 999.0

		again, _ := s.Get(ctx, "devices/d1/environment/humidity")
		if again.Value != 55.0 {
			t.Errorf("Expected stored humidity to stay 55, got %v", again.Value)
		}
	})
}

func TestMemoryStoreBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Batch applies every op", func(t *testing.T) {
		s := NewMemoryStore()
		err := s.Batch(ctx,
			SetOp("devices/d1", map[string]interface{}{"owner": "u1"}),
			SetOp("users/u1/devices/d1", true),
		)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}

		for _, path := range []string{"devices/d1/owner", "users/u1/devices/d1"} {
			snap, _ := s.Get(ctx, path)
			if !snap.Exists {
				t.Errorf("Expected %s to exist", path)
			}
		}
	})

	t.Run("Failed batch writes nothing", func(t *testing.T) {
		s := NewMemoryStore()
		err := s.Batch(ctx,
			SetOp("devices/d1/owner", "u1"),
			UpdateOp("devices/d1", map[string]interface{}{"": 1}),
		)
		if !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Expected ErrInvalidPath, got %v", err)
		}

		snap, _ := s.Get(ctx, "devices/d1")
		if snap.Exists {
			t.Errorf("Expected no partial write, got %v", snap.Value)
		}
	})
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "devices/d1/cleaningControl/status", "idle")

	var received []Snapshot
	sub, err := s.Subscribe(ctx, "devices/d1/cleaningControl", func(snap Snapshot) {
		received = append(received, snap)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	t.Run("Initial snapshot is delivered", func(t *testing.T) {
		if len(received) != 1 {
			t.Fatalf("Expected 1 snapshot, got %d", len(received))
		}
		if !received[0].Exists {
			t.Errorf("Expected initial snapshot to exist")
		}
	})

	t.Run("Writes under and above the path notify", func(t *testing.T) {
		s.Update(ctx, "devices/d1/cleaningControl", map[string]interface{}{"trigger": 1})
		s.Update(ctx, "devices/d1", map[string]interface{}{"cleaningControl/status": "cleaning"})
		if len(received) != 3 {
			t.Fatalf("Expected 3 snapshots, got %d", len(received))
		}
	})

	t.Run("Unrelated writes do not notify", func(t *testing.T) {
		s.Update(ctx, "devices/d1/environment", map[string]interface{}{"humidity": 10})
		if len(received) != 3 {
			t.Errorf("Expected 3 snapshots, got %d", len(received))
		}
	})

	t.Run("Close releases the listener", func(t *testing.T) {
		sub.Close()
		sub.Close()
		if s.ListenerCount() != 0 {
			t.Errorf("Expected 0 listeners, got %d", s.ListenerCount())
		}
		s.Update(ctx, "devices/d1/cleaningControl", map[string]interface{}{"trigger": 0})
		if len(received) != 3 {
			t.Errorf("Expected no delivery after close, got %d snapshots", len(received))
		}
	})
}

func TestMemoryStoreTransact(t *testing.T) {
	ctx := context.Background()

	t.Run("Concurrent read-modify-write keeps every increment", func(t *testing.T) {
		s := NewMemoryStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Transact(ctx, "devices/d1/history/day", func(current Snapshot) ([]Op, error) {
					count := 0.0
					if current.Exists {
						count = current.Value.(map[string]interface{})["cleanings"].(float64)
					}
					return []Op{SetOp("devices/d1/history/day", map[string]interface{}{"cleanings": count + 1})}, nil
				})
				if err != nil {
					t.Errorf("Transact failed: %v", err)
				}
			}()
		}
		wg.Wait()

		snap, _ := s.Get(ctx, "devices/d1/history/day/cleanings")
		if snap.Value != 50.0 {
			t.Errorf("Expected 50 cleanings, got %v", snap.Value)
		}
	})

	t.Run("Error from fn writes nothing", func(t *testing.T) {
		s := NewMemoryStore()
		boom := errors.New("boom")
		err := s.Transact(ctx, "devices/d1", func(Snapshot) ([]Op, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Expected fn error, got %v", err)
		}
		if snap, _ := s.Get(ctx, "devices/d1"); snap.Exists {
			t.Errorf("Expected nothing written")
		}
	})

	t.Run("Ops outside the root are rejected", func(t *testing.T) {
		s := NewMemoryStore()
		err := s.Transact(ctx, "devices/d1", func(Snapshot) ([]Op, error) {
			return []Op{SetOp("users/u1/devices/d1", true)}, nil
		})
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Expected ErrInvalidPath, got %v", err)
		}
	})
}

func TestMemoryListenerDropsStaleSnapshot(t *testing.T) {
	var received []interface{}
	l := &memoryListener{path: "devices/d1/cleaningControl/status", fn: func(snap Snapshot) {
		received = append(received, snap.Value)
	}}

	l.deliver(Snapshot{Value: "cleaning", Exists: true}, 2)
	l.deliver(Snapshot{Value: "idle", Exists: true}, 1)
	l.deliver(Snapshot{Value: "completed", Exists: true}, 3)

	if len(received) != 2 || received[0] != "cleaning" || received[1] != "completed" {
		t.Errorf("Expected [cleaning completed], got %v", received)
	}
}

func TestMemoryStoreSubscribeDuringWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "devices/d1/panelStatus/dustLevel", 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			s.Set(ctx, "devices/d1/panelStatus/dustLevel", i)
		}
	}()

	var mu sync.Mutex
	var last interface{}
	sub, err := s.Subscribe(ctx, "devices/d1/panelStatus/dustLevel", func(snap Snapshot) {
		mu.Lock()
		last = snap.Value
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last != 200.0 {
		t.Errorf("Expected the newest value to be delivered last, got %v", last)
	}
}
