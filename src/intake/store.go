package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"birdrescue-server-go/src/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DraftStore 草稿的持久化存储，每个会话在固定键下保存一份 JSON
type DraftStore interface {
	Load(ctx context.Context, sessionID string) (Draft, bool, error)
	Save(ctx context.Context, sessionID string, d Draft) error
	Clear(ctx context.Context, sessionID string) error
}

// GormDraftStore 基于 gorm 的草稿存储
type GormDraftStore struct {
	db *gorm.DB
}

// NewGormDraftStore 创建 gorm 草稿存储
func NewGormDraftStore(db *gorm.DB) *GormDraftStore {
	return &GormDraftStore{db: db}
}

// Load 读取草稿，不存在时返回 false
func (s *GormDraftStore) Load(ctx context.Context, sessionID string) (Draft, bool, error) {
	var record models.DraftRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND storage_key = ?", sessionID, DraftStorageKey).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewDraft(), false, nil
	}
	if err != nil {
		return NewDraft(), false, fmt.Errorf("读取草稿失败: %w", err)
	}

	d, err := UnmarshalDraft(record.Payload)
	if err != nil {
		return NewDraft(), false, fmt.Errorf("草稿数据损坏: %w", err)
	}
	return d, true, nil
}

// Save 整体覆盖写入草稿
func (s *GormDraftStore) Save(ctx context.Context, sessionID string, d Draft) error {
	payload, err := MarshalDraft(d)
	if err != nil {
		return fmt.Errorf("序列化草稿失败: %w", err)
	}

	record := models.DraftRecord{
		SessionID:  sessionID,
		StorageKey: DraftStorageKey,
		Payload:    datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("保存草稿失败: %w", err)
	}
	return nil
}

// Clear 删除草稿
func (s *GormDraftStore) Clear(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND storage_key = ?", sessionID, DraftStorageKey).
		Delete(&models.DraftRecord{}).Error
	if err != nil {
		return fmt.Errorf("删除草稿失败: %w", err)
	}
	return nil
}

// MemoryDraftStore 进程内草稿存储，保存序列化后的字节以保持与持久化存储一致的语义
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
}

// NewMemoryDraftStore 创建内存草稿存储
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string][]byte)}
}

func (s *MemoryDraftStore) Load(ctx context.Context, sessionID string) (Draft, bool, error) {
	s.mu.Lock()
	data, ok := s.drafts[sessionID]
	s.mu.Unlock()
	if !ok {
		return NewDraft(), false, nil
	}
	d, err := UnmarshalDraft(data)
	return d, err == nil, err
}

func (s *MemoryDraftStore) Save(ctx context.Context, sessionID string, d Draft) error {
	data, err := MarshalDraft(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.drafts[sessionID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryDraftStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.drafts, sessionID)
	s.mu.Unlock()
	return nil
}
