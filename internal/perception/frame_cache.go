package perception

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"limp/internal/logger"
	"limp/internal/types"
)

// frameStateModel 帧状态缓存表，episode+帧序号唯一。
type frameStateModel struct {
	ID        uint           `gorm:"primaryKey"`
	EpisodeID string         `gorm:"size:128;uniqueIndex:idx_episode_frame"`
	FrameIdx  int            `gorm:"uniqueIndex:idx_episode_frame"`
	Timestamp float64        `gorm:"index"`
	Payload   datatypes.JSON `gorm:"type:text"`
	CreatedAt time.Time
}

func (frameStateModel) TableName() string { return "frame_states" }

// FrameCache 两级帧状态缓存：LRU 内存层 + SQLite 持久层。
// 视觉模型调用昂贵，重复处理同一 episode 时直接命中缓存。
type FrameCache struct {
	db  *gorm.DB
	mem *lru.Cache[string, types.FrameState]
}

// NewFrameCache opens (or creates) the cache database at path.
func NewFrameCache(path string, memSize int) (*FrameCache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("frame cache path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&frameStateModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}

	if memSize <= 0 {
		memSize = 256
	}
	mem, err := lru.New[string, types.FrameState](memSize)
	if err != nil {
		return nil, err
	}
	return &FrameCache{db: db, mem: mem}, nil
}

func cacheKey(episodeID string, frameIdx int) string {
	return fmt.Sprintf("%s#%d", episodeID, frameIdx)
}

// Get returns the cached state of a frame, if any.
func (c *FrameCache) Get(episodeID string, frameIdx int) (*types.FrameState, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(episodeID, frameIdx)
	if state, ok := c.mem.Get(key); ok {
		return &state, true
	}

	var rec frameStateModel
	err := c.db.Where("episode_id = ? AND frame_idx = ?", episodeID, frameIdx).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		logger.Warnf("frame cache read failed (%s): %v", key, err)
		return nil, false
	}

	var state types.FrameState
	if err := json.Unmarshal(rec.Payload, &state); err != nil {
		logger.Warnf("frame cache payload corrupt (%s): %v", key, err)
		return nil, false
	}
	c.mem.Add(key, state)
	return &state, true
}

// Put stores a frame state in both cache levels.
func (c *FrameCache) Put(episodeID string, frameIdx int, state *types.FrameState) error {
	if c == nil || state == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode frame state: %w", err)
	}

	rec := frameStateModel{
		EpisodeID: episodeID,
		FrameIdx:  frameIdx,
		Timestamp: state.Timestamp,
		Payload:   payload,
	}
	err = c.db.Where("episode_id = ? AND frame_idx = ?", episodeID, frameIdx).
		Assign(frameStateModel{Timestamp: state.Timestamp, Payload: payload}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("persist frame state: %w", err)
	}
	c.mem.Add(cacheKey(episodeID, frameIdx), *state)
	return nil
}

// Purge drops every cached frame of an episode.
func (c *FrameCache) Purge(episodeID string) error {
	if c == nil {
		return nil
	}
	c.mem.Purge()
	return c.db.Where("episode_id = ?", episodeID).Delete(&frameStateModel{}).Error
}

// Close closes the underlying database.
func (c *FrameCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
