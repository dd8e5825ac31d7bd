package storage

import (
	"clipvault/pkg/types"
	"time"
)

// ItemModel is the database row for a clipboard item (schema v2).
type ItemModel struct {
	ID          uint64    `gorm:"primaryKey"`
	ContentHash string    `gorm:"uniqueIndex:idx_items_hash;not null"`
	Type        string    `gorm:"not null"`
	Preview     string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"index:idx_items_timestamp,sort:desc;index:idx_items_fav_ts,priority:2"`
	SourceApp   string
	Data        []byte `gorm:"type:blob"`
	HasBlob     bool
	IsFavorite  bool `gorm:"index:idx_items_fav_ts,priority:1"`
}

func (ItemModel) TableName() string { return "items" }

func (m *ItemModel) ToItem() *types.ClipboardItem {
	return &types.ClipboardItem{
		ID:          m.ID,
		Content:     m.Preview,
		Type:        types.ParseContentType(m.Type),
		ContentHash: m.ContentHash,
		Timestamp:   m.Timestamp,
		SourceApp:   m.SourceApp,
		Data:        m.Data,
		HasBlob:     m.HasBlob,
		IsFavorite:  m.IsFavorite,
	}
}

func FromItem(item *types.ClipboardItem) *ItemModel {
	return &ItemModel{
		ID:          item.ID,
		ContentHash: item.ContentHash,
		Type:        item.Type.String(),
		Preview:     item.Content,
		Timestamp:   item.Timestamp,
		SourceApp:   item.SourceApp,
		Data:        item.Data,
		HasBlob:     item.HasBlob,
		IsFavorite:  item.IsFavorite,
	}
}
