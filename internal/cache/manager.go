package cache

import (
	"fmt"
	"time"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"
)

const (
	drawsPrefix = "draws:"
	runsPrefix  = "runs:"
	keyLatest   = drawsPrefix + "latest"
	maxItems    = 1000
)

// Backend 被缓存的持久化存储
type Backend interface {
	SaveDraws(records []database.DrawRecord) (int, error)
	GetRecords(limit int) ([]database.DrawRecord, error)
	GetDraw(issue string) (*database.DrawRecord, error)
	LatestDraw() (*database.DrawRecord, error)
	CountDraws() (int, error)
	SaveRun(run *database.PredictionRun) error
	ListRuns(limit int) ([]database.PredictionRun, error)
	GetRun(id string) (*database.PredictionRun, error)
	DeleteRun(id string) error
	PruneRuns(before time.Time) (int, error)
}

// CacheManager 开奖记录与预测批次的读缓存，写操作直达存储并失效相关缓存
type CacheManager struct {
	memory     *MemoryCache
	store      Backend
	defaultTTL time.Duration
}

// NewCacheManager 创建新的缓存管理器
func NewCacheManager(store Backend, defaultTTL time.Duration) *CacheManager {
	manager := &CacheManager{
		memory:     NewMemoryCache(maxItems, defaultTTL),
		store:      store,
		defaultTTL: defaultTTL,
	}

	logger.Infof("Cache manager initialized (ttl %v)", defaultTTL)
	return manager
}

// Close 关闭缓存管理器
func (cm *CacheManager) Close() {
	cm.memory.Close()
	logger.Info("Cache manager closed")
}

// GetRecords 获取按期号升序的开奖记录
func (cm *CacheManager) GetRecords(limit int) ([]database.DrawRecord, error) {
	if limit < 0 {
		limit = 0
	}
	key := fmt.Sprintf("%srecords:%d", drawsPrefix, limit)
	if v, ok := cm.memory.Get(key); ok {
		return append([]database.DrawRecord(nil), v.([]database.DrawRecord)...), nil
	}

	records, err := cm.store.GetRecords(limit)
	if err != nil {
		return nil, err
	}
	cm.memory.Set(key, records, cm.defaultTTL)
	return append([]database.DrawRecord(nil), records...), nil
}

// GetDraw 根据期号获取开奖记录，不存在返回 nil
func (cm *CacheManager) GetDraw(issue string) (*database.DrawRecord, error) {
	key := drawsPrefix + "issue:" + issue
	if v, ok := cm.memory.Get(key); ok {
		record := v.(database.DrawRecord)
		return &record, nil
	}

	record, err := cm.store.GetDraw(issue)
	if err != nil || record == nil {
		return record, err
	}
	cm.memory.Set(key, *record, cm.defaultTTL)
	return record, nil
}

// LatestDraw 获取最新一期开奖记录
func (cm *CacheManager) LatestDraw() (*database.DrawRecord, error) {
	if v, ok := cm.memory.Get(keyLatest); ok {
		record := v.(database.DrawRecord)
		return &record, nil
	}

	record, err := cm.store.LatestDraw()
	if err != nil || record == nil {
		return record, err
	}
	cm.memory.Set(keyLatest, *record, cm.defaultTTL)
	return record, nil
}

// CountDraws 开奖记录总数
func (cm *CacheManager) CountDraws() (int, error) {
	return cm.store.CountDraws()
}

// SaveDraws 保存开奖记录，有新增时失效开奖缓存
func (cm *CacheManager) SaveDraws(records []database.DrawRecord) (int, error) {
	added, err := cm.store.SaveDraws(records)
	if err != nil {
		return added, err
	}
	if added > 0 {
		cm.OnNewDraws(added)
	}
	return added, nil
}

// SaveRun 保存预测批次
func (cm *CacheManager) SaveRun(run *database.PredictionRun) error {
	if err := cm.store.SaveRun(run); err != nil {
		return err
	}
	cm.OnRunsChanged()
	return nil
}

// ListRuns 按创建时间倒序列出预测批次
func (cm *CacheManager) ListRuns(limit int) ([]database.PredictionRun, error) {
	key := fmt.Sprintf("%slist:%d", runsPrefix, limit)
	if v, ok := cm.memory.Get(key); ok {
		return append([]database.PredictionRun(nil), v.([]database.PredictionRun)...), nil
	}

	runs, err := cm.store.ListRuns(limit)
	if err != nil {
		return nil, err
	}
	cm.memory.Set(key, runs, cm.defaultTTL)
	return append([]database.PredictionRun(nil), runs...), nil
}

// GetRun 根据ID获取预测批次
func (cm *CacheManager) GetRun(id string) (*database.PredictionRun, error) {
	return cm.store.GetRun(id)
}

// DeleteRun 删除预测批次
func (cm *CacheManager) DeleteRun(id string) error {
	if err := cm.store.DeleteRun(id); err != nil {
		return err
	}
	cm.OnRunsChanged()
	return nil
}

// PruneRuns 清理过期预测批次
func (cm *CacheManager) PruneRuns(before time.Time) (int, error) {
	n, err := cm.store.PruneRuns(before)
	if err != nil {
		return n, err
	}
	if n > 0 {
		cm.OnRunsChanged()
	}
	return n, nil
}

// OnNewDraws 新开奖数据事件处理
func (cm *CacheManager) OnNewDraws(added int) {
	n := cm.memory.DeletePrefix(drawsPrefix)
	logger.Infof("Cache invalidated for %d new draws (%d entries)", added, n)
}

// OnRunsChanged 预测批次变更事件处理
func (cm *CacheManager) OnRunsChanged() {
	cm.memory.DeletePrefix(runsPrefix)
}

// GetStats 获取缓存统计信息
func (cm *CacheManager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"memory_cache": cm.memory.Stats(),
		"default_ttl":  cm.defaultTTL.String(),
	}
}
