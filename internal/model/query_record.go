package model

import "time"

// QueryRecord is one answered question, persisted asynchronously after the
// response is sent so the ask path never waits on the history write.
type QueryRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	DocumentID uint      `gorm:"not null" json:"document_id"`
	Similarity float32   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}
