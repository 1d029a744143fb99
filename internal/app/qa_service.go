package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"askdoc/internal/model"
)

const defaultEmbedTimeout = 15 * time.Second

var (
	ErrNoDocuments      = errors.New("no active documents to search")
	ErrDocumentNotFound = errors.New("document not found")
)

// EmbeddingProvider converts text into a fixed-dimension vector. All texts of
// one deployment must share the same model so dimensions line up.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentStore is the persistence capability QAService depends on. Lookups
// return (nil, nil) when no row matches.
type DocumentStore interface {
	Create(doc *model.Document) error
	ListActiveByUserID(userID uint) ([]model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	GetByIDAndUserID(id, userID uint) (*model.Document, error)
	ToggleActive(id, userID uint) (newState bool, found bool, err error)
}

// QueryRecordStore reads persisted question/answer history.
type QueryRecordStore interface {
	ListByUserID(userID uint, limit int) ([]model.QueryRecord, error)
}

// QueryPublisher enqueues a query record for asynchronous persistence.
type QueryPublisher interface {
	Publish(ctx context.Context, rec model.QueryRecord) error
}

// EmbeddingCache stores question embeddings keyed by text.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, vec []float32) error
}

type QAService struct {
	docs         DocumentStore
	records      QueryRecordStore
	embedder     EmbeddingProvider
	cache        EmbeddingCache // optional
	publisher    QueryPublisher // optional
	sim          SimilarityFunc
	embedTimeout time.Duration
}

func NewQAService(
	docs DocumentStore,
	records QueryRecordStore,
	embedder EmbeddingProvider,
	cache EmbeddingCache,
	publisher QueryPublisher,
	embedTimeout time.Duration,
) *QAService {
	if embedTimeout <= 0 {
		embedTimeout = defaultEmbedTimeout
	}
	return &QAService{
		docs:         docs,
		records:      records,
		embedder:     embedder,
		cache:        cache,
		publisher:    publisher,
		sim:          CosineSimilarity,
		embedTimeout: embedTimeout,
	}
}

// IngestInput is the input for adding a document.
type IngestInput struct {
	UserID  uint
	Title   string
	Content string
}

// Ingest embeds the content once and persists the document as active.
// The embedding is never recomputed afterwards.
func (s *QAService) Ingest(ctx context.Context, input IngestInput) (*model.Document, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled"
	}

	vec, err := s.embed(ctx, content)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		UserID:   input.UserID,
		Title:    title,
		Content:  content,
		IsActive: true,
	}
	doc.SetEmbedding(vec)
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AskInput is the input for answering a question.
type AskInput struct {
	UserID   uint
	Question string
}

// AskResult is the selected document formatted as an answer.
type AskResult struct {
	Answer     string  `json:"answer"`
	DocumentID uint    `json:"document_id"`
	Similarity float32 `json:"similarity"`
}

// Ask embeds the question and returns the user's most similar active document.
// Candidates are scanned in creation order; on equal scores the earliest
// document wins.
func (s *QAService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	docs, err := s.docs.ListActiveByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	queryVec, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	candidates := make([][]float32, len(docs))
	for i := range docs {
		candidates[i] = docs[i].EmbeddingVector()
	}
	idx, score := bestMatch(queryVec, candidates, s.sim)
	matched := docs[idx]

	result := &AskResult{
		Answer:     fmt.Sprintf("Based on document '%s': %s", matched.Title, matched.Content),
		DocumentID: matched.ID,
		Similarity: score,
	}

	if s.publisher != nil {
		rec := model.QueryRecord{
			UserID:     input.UserID,
			Question:   question,
			Answer:     result.Answer,
			DocumentID: matched.ID,
			Similarity: score,
			CreatedAt:  time.Now(),
		}
		if err := s.publisher.Publish(ctx, rec); err != nil {
			log.Printf("publish query record failed: %v", err)
		}
	}
	return result, nil
}

// ToggleDocument flips the document's active flag and returns the new state.
func (s *QAService) ToggleDocument(userID, docID uint) (bool, error) {
	if userID == 0 || docID == 0 {
		return false, ErrInvalidInput
	}
	newState, found, err := s.docs.ToggleActive(docID, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrDocumentNotFound
	}
	return newState, nil
}

// ListDocuments returns all of the user's documents, active or not.
func (s *QAService) ListDocuments(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByUserID(userID)
}

// History returns the user's answered questions, newest first.
func (s *QAService) History(userID uint, limit int) ([]model.QueryRecord, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.records.ListByUserID(userID, limit)
}

// embed calls the embedding provider under a bounded timeout.
func (s *QAService) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	vec, err := s.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text failed: %w", err)
	}
	return vec, nil
}

// embedQuestion consults the cache before the provider. Cache errors degrade
// to a provider call and never fail the request.
func (s *QAService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, question)
		if err != nil {
			log.Printf("embedding cache get failed: %v", err)
		} else if ok {
			return vec, nil
		}
	}
	vec, err := s.embed(ctx, question)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, question, vec); err != nil {
			log.Printf("embedding cache set failed: %v", err)
		}
	}
	return vec, nil
}
