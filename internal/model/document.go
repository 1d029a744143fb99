package model

import (
	"encoding/json"
	"time"
)

// Document stores a user's text document and its embedding for retrieval.
// Embedding is stored as JSON array of float32 for portability; it is computed
// once at ingest time and never recomputed.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:text" json:"-"` // JSON array of float32
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (d *Document) EmbeddingVector() []float32 {
	if d.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(d.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (d *Document) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		d.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	d.Embedding = string(b)
}
