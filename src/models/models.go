package models

import (
	"time"

	"gorm.io/datatypes"
)

// DraftRecord 每个会话一条的报告草稿，Payload 为整份草稿的 JSON
type DraftRecord struct {
	ID         uint           `gorm:"primaryKey"`
	SessionID  string         `gorm:"size:64;uniqueIndex:idx_draft_session_key;not null"`
	StorageKey string         `gorm:"size:128;uniqueIndex:idx_draft_session_key;not null"`
	Payload    datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName 表名
func (DraftRecord) TableName() string {
	return "drafts"
}
