package model

import "time"

// AskRecord is the persisted history of one answered question. Written
// asynchronously by the persist worker, never on the request path.
type AskRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"size:64;index" json:"session_id"`
	Question    string    `gorm:"type:text" json:"question"`
	Answer      string    `gorm:"type:text" json:"answer"`
	ContentKeys string    `gorm:"type:text" json:"content_keys"` // comma-joined
	CacheHit    bool      `json:"cache_hit"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
