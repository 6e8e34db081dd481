package cache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024)

	key, value := "test-key", []byte("test-value")
	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(retrieved) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", retrieved, value)
	}
	if cache.Size() != int64(len(value)) {
		t.Errorf("Size mismatch: got %d, want %d", cache.Size(), len(value))
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := cache.Get(key); ok {
		t.Error("Key still exists after delete")
	}
	if cache.Size() != 0 {
		t.Errorf("Size not zero after delete: %d", cache.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	// touch key-0 so key-1 becomes the eviction candidate
	cache.Get("key-0")
	if err := cache.Put("key-5", make([]byte, 20)); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.Get("key-0"); !ok {
		t.Error("recently used key-0 was evicted")
	}
	if _, ok := cache.Get("key-1"); ok {
		t.Error("least recently used key-1 should be evicted")
	}
	if got := cache.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(10)
	if err := cache.Put("big", make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(10 * 1024)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("k-%d-%d", g, i%10)
				_ = cache.Put(key, []byte(key))
				cache.Get(key)
			}
		}(g)
	}
	wg.Wait()

	stats := cache.Stats()
	if stats.Hits+stats.Misses != 800 {
		t.Errorf("lookups = %d, want 800", stats.Hits+stats.Misses)
	}
}

func TestDiskCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}

	small := []byte("short value")
	big := bytes.Repeat([]byte("compressible "), 500)
	if err := dc.Put("small", small); err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("big", big); err != nil {
		t.Fatal(err)
	}
	if dc.Size() >= int64(len(small)+len(big)) {
		t.Errorf("Size = %d, expected compression of the large entry", dc.Size())
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	for key, want := range map[string][]byte{"small": small, "big": big} {
		got, ok := reopened.Get(key)
		if !ok {
			t.Fatalf("%s missing after reopen", key)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s content mismatch", key)
		}
	}
}

func TestDiskCache_EvictionAndExpiry(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	for i := 0; i < 3; i++ {
		if err := dc.Put(fmt.Sprintf("k%d", i), make([]byte, 40)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, ok := dc.Get("k0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if dc.Size() > 100 {
		t.Errorf("Size = %d exceeds capacity", dc.Size())
	}

	if n := dc.RemoveOlderThan(time.Now().Add(time.Minute)); n != 2 {
		t.Errorf("RemoveOlderThan removed %d, want 2", n)
	}
	if dc.Size() != 0 {
		t.Errorf("Size = %d after expiry", dc.Size())
	}
}

func TestCacheManager_Promotion(t *testing.T) {
	config := DefaultCacheConfig()
	config.DiskPath = t.TempDir()
	cm, err := NewCacheManager(config)
	if err != nil {
		t.Fatalf("NewCacheManager: %v", err)
	}
	defer cm.Close()

	if err := cm.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, level, ok := cm.Get("k"); !ok || level != CacheLevelL1 {
		t.Errorf("Get = level %s ok %v, want L1 hit", level, ok)
	}

	_ = cm.l1Memory.Clear()
	if _, level, ok := cm.Get("k"); !ok || level != CacheLevelL2 {
		t.Errorf("Get = level %s ok %v, want L2 hit", level, ok)
	}
	if _, level, _ := cm.Get("k"); level != CacheLevelL1 {
		t.Errorf("entry was not promoted, level %s", level)
	}

	if _, _, ok := cm.Get("missing"); ok {
		t.Error("unexpected hit")
	}
	_, _, hits, misses := cm.Stats()
	if hits != 3 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", hits, misses)
	}
}

func TestCacheManager_Waveform(t *testing.T) {
	config := DefaultCacheConfig()
	config.DiskPath = t.TempDir()
	cm, err := NewCacheManager(config)
	if err != nil {
		t.Fatal(err)
	}
	defer cm.Close()

	w := audio.NewWaveform([]int{0, 100, -100, 32767, -32768}, 24000, 1)
	key := GenerateCacheKey("mock", "Hello.", "default", 1, "")
	if err := cm.PutWaveform(key, w); err != nil {
		t.Fatalf("PutWaveform: %v", err)
	}

	got, ok := cm.GetWaveform(key)
	if !ok {
		t.Fatal("GetWaveform missed")
	}
	if got.SampleRate() != 24000 || got.Channels() != 1 || !bytes.Equal(got.PCM16(), w.PCM16()) {
		t.Errorf("waveform changed through the cache: %d Hz, %d ch", got.SampleRate(), got.Channels())
	}

	if err := cm.Put("junk", []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if _, ok := cm.GetWaveform("junk"); ok {
		t.Error("corrupt entry decoded")
	}
	if _, _, ok := cm.Get("junk"); ok {
		t.Error("corrupt entry not dropped")
	}
}

func TestCacheManager_RequiresPath(t *testing.T) {
	if _, err := NewCacheManager(&CacheConfig{}); err == nil {
		t.Error("expected error without a disk path")
	}
}

func TestGenerateCacheKey(t *testing.T) {
	base := GenerateCacheKey("piper", "text", "amy", 1.0, "")
	if len(base) != 32 {
		t.Errorf("key length = %d, want 32", len(base))
	}
	if base != GenerateCacheKey("piper", "text", "amy", 1.0, "") {
		t.Error("key is not deterministic")
	}
	for _, other := range []string{
		GenerateCacheKey("pocket", "text", "amy", 1.0, ""),
		GenerateCacheKey("piper", "text!", "amy", 1.0, ""),
		GenerateCacheKey("piper", "text", "joe", 1.0, ""),
		GenerateCacheKey("piper", "text", "amy", 1.25, ""),
		GenerateCacheKey("piper", "text", "amy", 1.0, "ref.wav"),
	} {
		if other == base {
			t.Error("different inputs produced the same key")
		}
	}
}
