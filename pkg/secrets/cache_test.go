package secrets

import (
	"sync"
	"testing"
	"time"
)

// helper: creates a sample secret map
func sampleSecret() map[string]string {
	return map[string]string{
		"api_key":  "abc123",
		"base_url": "https://feed.example.com",
	}
}

func TestCache_PutAndGet(t *testing.T) {
	cache := NewCache[map[string]string](2 * time.Second)
	key := "dev/trade-ingest/api"

	// should miss initially
	if _, ok := cache.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Put(key, sampleSecret())

	// immediate hit
	if secret, ok := cache.Get(key); !ok {
		t.Fatal("expected cache hit")
	} else if secret["api_key"] != "abc123" {
		t.Errorf("expected api_key=abc123, got %s", secret["api_key"])
	}
}

func TestCache_Expiration(t *testing.T) {
	cache := NewCache[map[string]string](500 * time.Millisecond)
	key := "dev/trade-ingest/api"
	cache.Put(key, sampleSecret())

	time.Sleep(600 * time.Millisecond)

	if _, ok := cache.Get(key); ok {
		t.Fatal("expected expired cache entry")
	}
}

func TestCache_Bust(t *testing.T) {
	cache := NewCache[map[string]string](5 * time.Second)
	key := "dev/trade-ingest/api"
	cache.Put(key, sampleSecret())

	cache.Bust(key)
	if _, ok := cache.Get(key); ok {
		t.Fatal("expected cache miss after bust")
	}
}

func TestCache_StructValues(t *testing.T) {
	type creds struct {
		BaseURL string
		APIKey  string
	}
	cache := NewCache[creds](time.Second)

	cache.Put("k", creds{BaseURL: "https://x", APIKey: "key"})

	got, ok := cache.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.APIKey != "key" {
		t.Errorf("expected APIKey=key, got %s", got.APIKey)
	}

	// miss returns the zero value
	zero, ok := cache.Get("absent")
	if ok {
		t.Fatal("expected miss")
	}
	if zero != (creds{}) {
		t.Errorf("expected zero value on miss, got %+v", zero)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache[map[string]string](2 * time.Second)
	key := "dev/trade-ingest/api"

	var wg sync.WaitGroup
	wg.Add(2)

	// Writer
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Put(key, sampleSecret())
			time.Sleep(time.Millisecond * 5)
		}
	}()

	// Reader
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Get(key)
			time.Sleep(time.Millisecond * 5)
		}
	}()

	wg.Wait()
}

func TestCache_CleanupExpired(t *testing.T) {
	cache := NewCache[map[string]string](200 * time.Millisecond)
	key1 := "dev/trade-ingest/api"
	key2 := "uat/trade-ingest/api"
	cache.Put(key1, sampleSecret())
	cache.Put(key2, sampleSecret())

	time.Sleep(300 * time.Millisecond)
	cache.cleanupExpired()

	if _, ok := cache.Get(key1); ok {
		t.Fatal("expected key1 expired and cleaned up")
	}
	if _, ok := cache.Get(key2); ok {
		t.Fatal("expected key2 expired and cleaned up")
	}
}
