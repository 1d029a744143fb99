package repository

import (
	"fmt"

	"gorm.io/gorm"

	"askdoc/internal/model"
)

type QueryRecordRepository struct {
	db *gorm.DB
}

func NewQueryRecordRepository(db *gorm.DB) *QueryRecordRepository {
	return &QueryRecordRepository{db: db}
}

func (r *QueryRecordRepository) Create(rec *model.QueryRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create query record failed: %w", err)
	}
	return nil
}

func (r *QueryRecordRepository) ListByUserID(userID uint, limit int) ([]model.QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []model.QueryRecord
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list query records failed: %w", err)
	}
	return list, nil
}
