package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/cpttripzz/Chatterblez/internal/audio"
)

// CacheManager coordinates the memory and disk levels. Hits in L2 are
// promoted to L1.
type CacheManager struct {
	l1Memory *MemoryCache
	l2Disk   *DiskCache

	config *CacheConfig

	mu    sync.Mutex
	stats struct {
		TotalHits   int64
		TotalMisses int64
		L1Hits      int64
		L2Hits      int64
		Promotions  int64
	}
}

// NewCacheManager creates a cache manager. DiskPath must be set; entries
// older than the configured TTL are dropped on open.
func NewCacheManager(config *CacheConfig) (*CacheManager, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}
	if config.DiskPath == "" {
		return nil, fmt.Errorf("cache: disk path not configured")
	}

	l2Disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}
	if config.TTL > 0 {
		l2Disk.RemoveOlderThan(time.Now().Add(-config.TTL))
	}

	return &CacheManager{
		l1Memory: NewMemoryCache(config.MemoryCapacity),
		l2Disk:   l2Disk,
		config:   config,
	}, nil
}

// Get looks the key up in L1 then L2.
func (cm *CacheManager) Get(key string) ([]byte, CacheLevel, bool) {
	if data, ok := cm.l1Memory.Get(key); ok {
		cm.record(func() { cm.stats.TotalHits++; cm.stats.L1Hits++ })
		return data, CacheLevelL1, true
	}
	if data, ok := cm.l2Disk.Get(key); ok {
		promoted := cm.l1Memory.Put(key, data) == nil
		cm.record(func() {
			cm.stats.TotalHits++
			cm.stats.L2Hits++
			if promoted {
				cm.stats.Promotions++
			}
		})
		return data, CacheLevelL2, true
	}
	cm.record(func() { cm.stats.TotalMisses++ })
	return nil, CacheLevelL1, false
}

// Put writes through to both levels. An item too large for memory still
// lands on disk.
func (cm *CacheManager) Put(key string, value []byte) error {
	_ = cm.l1Memory.Put(key, value)
	return cm.l2Disk.Put(key, value)
}

// GetWaveform returns a cached unit waveform.
func (cm *CacheManager) GetWaveform(key string) (*audio.Waveform, bool) {
	data, _, ok := cm.Get(key)
	if !ok {
		return nil, false
	}
	w, err := decodeWaveform(data)
	if err != nil {
		_ = cm.l1Memory.Delete(key)
		_ = cm.l2Disk.Delete(key)
		return nil, false
	}
	return w, true
}

// PutWaveform stores a unit waveform.
func (cm *CacheManager) PutWaveform(key string, w *audio.Waveform) error {
	return cm.Put(key, encodeWaveform(w))
}

// Clear empties both levels.
func (cm *CacheManager) Clear() error {
	if err := cm.l1Memory.Clear(); err != nil {
		return err
	}
	return cm.l2Disk.Clear()
}

// Stats returns per-level statistics plus the manager totals.
func (cm *CacheManager) Stats() (l1, l2 CacheStats, hits, misses int64) {
	cm.mu.Lock()
	hits, misses = cm.stats.TotalHits, cm.stats.TotalMisses
	cm.mu.Unlock()
	return cm.l1Memory.Stats(), cm.l2Disk.Stats(), hits, misses
}

// Close flushes the disk index.
func (cm *CacheManager) Close() error {
	return cm.l2Disk.Close()
}

func (cm *CacheManager) record(f func()) {
	cm.mu.Lock()
	f()
	cm.mu.Unlock()
}

// GenerateCacheKey derives a key for one synthesized unit.
func GenerateCacheKey(engine, text, voice string, speed float64, prompt string) string {
	data := fmt.Sprintf("%s|%s|%s|%.2f|%s", engine, text, voice, speed, prompt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

const waveformHeader = 6

// encodeWaveform lays out a 4-byte sample rate, a 2-byte channel count
// and little-endian PCM16 samples.
func encodeWaveform(w *audio.Waveform) []byte {
	pcm := w.PCM16()
	out := make([]byte, waveformHeader, waveformHeader+len(pcm))
	binary.LittleEndian.PutUint32(out, uint32(w.SampleRate()))
	binary.LittleEndian.PutUint16(out[4:], uint16(w.Channels()))
	return append(out, pcm...)
}

func decodeWaveform(data []byte) (*audio.Waveform, error) {
	if len(data) < waveformHeader {
		return nil, ErrCacheCorrupted
	}
	rate := int(binary.LittleEndian.Uint32(data))
	channels := int(binary.LittleEndian.Uint16(data[4:]))
	if rate <= 0 || channels <= 0 {
		return nil, ErrCacheCorrupted
	}
	w, err := audio.FromPCM16(data[waveformHeader:], rate, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	return w, nil
}
