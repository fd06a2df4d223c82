package models

import (
	"time"
)

// CacheEntry backs the shared key-value store: rate-limit counters, cached
// sessions, and signup-state tokens all live here. A zero ExpiresAt means the
// entry never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
