package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docinsight/internal/model"
)

type AskRecordRepository struct {
	db *gorm.DB
}

func NewAskRecordRepository(db *gorm.DB) *AskRecordRepository {
	return &AskRecordRepository{db: db}
}

func (r *AskRecordRepository) Create(rec *model.AskRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create ask record failed: %w", err)
	}
	return nil
}

func (r *AskRecordRepository) ListBySessionID(sessionID string, limit int) ([]model.AskRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var records []model.AskRecord
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list ask records failed: %w", err)
	}
	return records, nil
}
