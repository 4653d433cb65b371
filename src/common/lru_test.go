package common

import "testing"

func TestLRU(t *testing.T) {
	evicted := []interface{}{}
	lru := NewLRU(3, func(key, value interface{}) {
		evicted = append(evicted, key)
	})

	for i := 0; i < 5; i++ {
		lru.Add(i, i*10)
	}

	if lru.Len() != 3 {
		t.Fatalf("Len should be 3, not %d", lru.Len())
	}

	if len(evicted) != 2 || evicted[0] != 0 || evicted[1] != 1 {
		t.Fatalf("expected evictions [0 1], got %v", evicted)
	}

	if _, ok := lru.Get(1); ok {
		t.Fatalf("key 1 should have been evicted")
	}

	v, ok := lru.Get(3)
	if !ok || v != 30 {
		t.Fatalf("Get(3) => %v, %v; expected 30, true", v, ok)
	}

	//touching 3 makes 2 the oldest entry
	lru.Add(5, 50)
	if _, ok := lru.Get(2); ok {
		t.Fatalf("key 2 should have been evicted")
	}
	if _, ok := lru.Get(3); !ok {
		t.Fatalf("key 3 should have been retained")
	}

	lru.Remove(3)
	if _, ok := lru.Get(3); ok {
		t.Fatalf("key 3 should have been removed")
	}
	if len(evicted) != 3 {
		t.Fatalf("Remove should not trigger the eviction callback")
	}
}
