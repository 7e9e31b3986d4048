package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ssq-predictor/internal/logger"
)

// MemoryItem 内存缓存项
type MemoryItem struct {
	Value     interface{}
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired 检查是否过期
func (item *MemoryItem) IsExpired(now time.Time) bool {
	return now.After(item.ExpiresAt)
}

// MemoryCache 带过期时间的内存缓存
type MemoryCache struct {
	items   sync.Map
	size    int64
	maxSize int
	now     func() time.Time

	stopChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewMemoryCache 创建内存缓存，cleanupInterval>0 时启动定期清理
func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	m := &MemoryCache{
		maxSize:     maxSize,
		now:         time.Now,
		stopChannel: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		m.wg.Add(1)
		go m.startCleanup(cleanupInterval)
	}

	logger.Debug("Memory cache initialized")
	return m
}

// Set 设置缓存值
func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	now := m.now()
	item := &MemoryItem{
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if _, exists := m.items.Load(key); !exists {
		if m.maxSize > 0 && atomic.LoadInt64(&m.size) >= int64(m.maxSize) {
			m.evictOldest()
		}
		atomic.AddInt64(&m.size, 1)
	}

	m.items.Store(key, item)
	logger.Debugf("Memory cache set: %s", key)
}

// Get 获取缓存值，过期视为未命中
func (m *MemoryCache) Get(key string) (interface{}, bool) {
	value, exists := m.items.Load(key)
	if !exists {
		return nil, false
	}

	item := value.(*MemoryItem)
	if item.IsExpired(m.now()) {
		m.Delete(key)
		return nil, false
	}
	return item.Value, true
}

// Delete 删除缓存
func (m *MemoryCache) Delete(key string) {
	if _, exists := m.items.LoadAndDelete(key); exists {
		atomic.AddInt64(&m.size, -1)
	}
}

// DeletePrefix 删除指定前缀的缓存，返回删除数量
func (m *MemoryCache) DeletePrefix(prefix string) int {
	count := 0
	m.items.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), prefix) {
			if _, exists := m.items.LoadAndDelete(key); exists {
				atomic.AddInt64(&m.size, -1)
				count++
			}
		}
		return true
	})

	if count > 0 {
		logger.Debugf("Memory cache deleted by prefix: %s, count: %d", prefix, count)
	}
	return count
}

// Size 缓存项数量
func (m *MemoryCache) Size() int64 {
	return atomic.LoadInt64(&m.size)
}

// Stats 获取缓存统计信息
func (m *MemoryCache) Stats() map[string]interface{} {
	now := m.now()
	var validItems, expiredItems int64
	m.items.Range(func(_, value interface{}) bool {
		if value.(*MemoryItem).IsExpired(now) {
			expiredItems++
		} else {
			validItems++
		}
		return true
	})

	return map[string]interface{}{
		"total_size":    m.Size(),
		"valid_items":   validItems,
		"expired_items": expiredItems,
		"max_size":      m.maxSize,
	}
}

// Close 停止清理协程
func (m *MemoryCache) Close() {
	m.stopOnce.Do(func() { close(m.stopChannel) })
	m.wg.Wait()
}

// startCleanup 定期清理过期缓存
func (m *MemoryCache) startCleanup(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChannel:
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}

// cleanupExpired 清理过期的缓存项
func (m *MemoryCache) cleanupExpired() int {
	now := m.now()
	count := 0
	m.items.Range(func(key, value interface{}) bool {
		if value.(*MemoryItem).IsExpired(now) {
			if _, exists := m.items.LoadAndDelete(key); exists {
				atomic.AddInt64(&m.size, -1)
				count++
			}
		}
		return true
	})

	if count > 0 {
		logger.Debugf("Memory cache cleanup: removed %d expired items", count)
	}
	return count
}

// evictOldest 淘汰最旧的缓存项
func (m *MemoryCache) evictOldest() {
	var oldestKey interface{}
	var oldestTime time.Time

	m.items.Range(func(key, value interface{}) bool {
		item := value.(*MemoryItem)
		if oldestKey == nil || item.CreatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.CreatedAt
		}
		return true
	})

	if oldestKey != nil {
		m.Delete(oldestKey.(string))
		logger.Debugf("Memory cache evicted oldest: %v", oldestKey)
	}
}
