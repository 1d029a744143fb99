package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"askdoc/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// ListActiveByUserID returns the user's active documents in creation order.
// Retrieval iterates this order, so it defines the tie-break under equal scores.
func (r *DocumentRepository) ListActiveByUserID(userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("user_id = ? AND is_active = ?", userID, true).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list active documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) ListByUserID(userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// ToggleActive flips is_active inside a transaction so concurrent toggles on
// the same document cannot lose an update. The second return value reports
// whether a document with that id exists for the user.
func (r *DocumentRepository) ToggleActive(id, userID uint) (bool, bool, error) {
	var newState bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
			return err
		}
		newState = !doc.IsActive
		return tx.Model(&doc).Update("is_active", newState).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("toggle document failed: %w", err)
	}
	return newState, true, nil
}
