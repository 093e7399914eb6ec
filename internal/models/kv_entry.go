package models

import "time"

// KVEntry is one storage slot of the key-value snapshot table.
type KVEntry struct {
	Key       string `gorm:"column:slot;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name used by the sqlite store.
func (KVEntry) TableName() string {
	return "kv_entries"
}
