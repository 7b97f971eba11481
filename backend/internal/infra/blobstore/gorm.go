package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry 对应 blob_entries 表中的一行。
type Entry struct {
	Key       string    `gorm:"column:blob_key;primaryKey;size:64"`
	Value     string    `gorm:"column:blob_value;type:longtext"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定数据库表名。
func (Entry) TableName() string {
	return "blob_entries"
}

// GormStore 把每个 key 存成一行，适用于 SQLite（本地模式）与 MySQL。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 构造存储并自动迁移 blob_entries 表。
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate blob entries: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Load 按主键读取内容。
func (s *GormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	return []byte(entry.Value), nil
}

// Save 以 upsert 方式写入 key。
func (s *GormStore) Save(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save blob %s: %w", key, err)
	}
	return nil
}

// Delete 删除 key，不存在时不报错。
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
