package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"askdoc/internal/model"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeDocStore struct {
	docs   []model.Document
	nextID uint
	err    error
}

func (f *fakeDocStore) Create(doc *model.Document) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	doc.ID = f.nextID
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeDocStore) ListActiveByUserID(userID uint) ([]model.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Document
	for _, d := range f.docs {
		if d.UserID == userID && d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocStore) ListByUserID(userID uint) ([]model.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocStore) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id && f.docs[i].UserID == userID {
			doc := f.docs[i]
			return &doc, nil
		}
	}
	return nil, nil
}

func (f *fakeDocStore) ToggleActive(id, userID uint) (bool, bool, error) {
	for i := range f.docs {
		if f.docs[i].ID == id && f.docs[i].UserID == userID {
			f.docs[i].IsActive = !f.docs[i].IsActive
			return f.docs[i].IsActive, true, nil
		}
	}
	return false, false, nil
}

type fakeRecordStore struct {
	records []model.QueryRecord
}

func (f *fakeRecordStore) ListByUserID(userID uint, _ int) ([]model.QueryRecord, error) {
	var out []model.QueryRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePublisher struct {
	published []model.QueryRecord
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, rec model.QueryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, rec)
	return nil
}

type fakeCache struct {
	entries map[string][]float32
	gets    int
	hits    int
}

func (f *fakeCache) Get(_ context.Context, text string) ([]float32, bool, error) {
	f.gets++
	vec, ok := f.entries[text]
	if ok {
		f.hits++
	}
	return vec, ok, nil
}

func (f *fakeCache) Set(_ context.Context, text string, vec []float32) error {
	f.entries[text] = vec
	return nil
}

func newTestService(embedder *fakeEmbedder, store *fakeDocStore) *QAService {
	return NewQAService(store, &fakeRecordStore{}, embedder, nil, nil, time.Second)
}

func ingestTestDoc(t *testing.T, svc *QAService, userID uint, title, content string) *model.Document {
	t.Helper()
	doc, err := svc.Ingest(context.Background(), IngestInput{
		UserID:  userID,
		Title:   title,
		Content: content,
	})
	if err != nil {
		t.Fatalf("Failed to ingest %q: %v", title, err)
	}
	return doc
}

func TestIngestStoresEmbeddingOnce(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"some content": {0.1, 0.2, 0.3},
	}}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	doc := ingestTestDoc(t, svc, 1, "notes", "some content")

	if !doc.IsActive {
		t.Errorf("Expected ingested document to be active")
	}
	got := doc.EmbeddingVector()
	want := []float32{0.1, 0.2, 0.3}
	if len(got) != len(want) {
		t.Fatalf("Expected embedding of length %d, got %d", len(want), len(got))
	}
	for i := range want {
		if !floatsClose(got[i], want[i]) {
			t.Errorf("Embedding[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if embedder.calls != 1 {
		t.Errorf("Expected exactly one embed call, got %d", embedder.calls)
	}
}

func TestIngestPropagatesEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	if _, err := svc.Ingest(context.Background(), IngestInput{UserID: 1, Content: "text"}); err == nil {
		t.Fatal("Expected embedding failure to propagate")
	}
	if len(store.docs) != 0 {
		t.Errorf("Expected no document persisted after embedding failure, got %d", len(store.docs))
	}
}

func TestAskNoDocuments(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeDocStore{})

	_, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "anything"})
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Expected ErrNoDocuments, got %v", err)
	}
}

func TestAskReturnsMostSimilarDocument(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"hello world":                {1, 0, 0},
		"unrelated text about cars":  {0, 1, 0},
		"what does hello world say?": {0.9, 0.1, 0},
	}}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	greeting := ingestTestDoc(t, svc, 1, "greeting", "hello world")
	ingestTestDoc(t, svc, 1, "cars", "unrelated text about cars")

	result, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "what does hello world say?"})
	if err != nil {
		t.Fatalf("Failed to ask: %v", err)
	}
	if result.DocumentID != greeting.ID {
		t.Errorf("Expected document %d to match, got %d", greeting.ID, result.DocumentID)
	}

	// The score must equal cosine similarity computed independently.
	want := CosineSimilarity([]float32{0.9, 0.1, 0}, []float32{1, 0, 0})
	if !floatsClose(result.Similarity, want) {
		t.Errorf("Expected similarity %v, got %v", want, result.Similarity)
	}
	if !strings.Contains(result.Answer, "greeting") || !strings.Contains(result.Answer, "hello world") {
		t.Errorf("Expected answer to include title and content, got %q", result.Answer)
	}
}

func TestAskSingleDocumentAlwaysMatches(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"totally different": {0, 0, 1},
		"the only doc":      {1, 0, 0},
	}}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	only := ingestTestDoc(t, svc, 1, "only", "the only doc")

	result, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "totally different"})
	if err != nil {
		t.Fatalf("Failed to ask: %v", err)
	}
	if result.DocumentID != only.ID {
		t.Errorf("Expected the only document to match, got %d", result.DocumentID)
	}
}

func TestAskTieBreaksOnIngestOrder(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"copy a": {1, 0, 0},
		"copy b": {2, 0, 0}, // same direction, same cosine score
		"query":  {1, 0, 0},
	}}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	first := ingestTestDoc(t, svc, 1, "first", "copy a")
	ingestTestDoc(t, svc, 1, "second", "copy b")

	result, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "query"})
	if err != nil {
		t.Fatalf("Failed to ask: %v", err)
	}
	if result.DocumentID != first.ID {
		t.Errorf("Expected earliest ingested document on tie, got %d", result.DocumentID)
	}
}

func TestAskIsolatedPerUser(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	ingestTestDoc(t, svc, 1, "mine", "user one content")

	if _, err := svc.Ask(context.Background(), AskInput{UserID: 2, Question: "anything"}); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Expected other user to see no documents, got %v", err)
	}
}

func TestAskPropagatesEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)
	ingestTestDoc(t, svc, 1, "doc", "content")

	embedder.err = errors.New("provider down")
	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "q"}); err == nil {
		t.Fatal("Expected embedding failure to propagate")
	}
}

func TestToggleDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)

	doc := ingestTestDoc(t, svc, 1, "doc", "content")

	state, err := svc.ToggleDocument(1, doc.ID)
	if err != nil {
		t.Fatalf("Failed to toggle: %v", err)
	}
	if state {
		t.Errorf("Expected first toggle to deactivate, got active")
	}

	// A deactivated document leaves the candidate set entirely.
	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "q"}); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Expected no candidates after deactivation, got %v", err)
	}

	state, err = svc.ToggleDocument(1, doc.ID)
	if err != nil {
		t.Fatalf("Failed to toggle back: %v", err)
	}
	if !state {
		t.Errorf("Expected second toggle to restore the original state")
	}
	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "q"}); err != nil {
		t.Errorf("Expected reactivated document to be retrievable, got %v", err)
	}
}

func TestToggleDocumentNotFound(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeDocStore{})

	if _, err := svc.ToggleDocument(1, 42); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestToggleDocumentForeignOwner(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	svc := newTestService(embedder, store)
	doc := ingestTestDoc(t, svc, 1, "doc", "content")

	if _, err := svc.ToggleDocument(2, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Expected foreign document to be invisible, got %v", err)
	}
}

func TestAskPublishesQueryRecord(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	publisher := &fakePublisher{}
	svc := NewQAService(store, &fakeRecordStore{}, embedder, nil, publisher, time.Second)

	doc := ingestTestDoc(t, svc, 1, "doc", "content")

	result, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "q"})
	if err != nil {
		t.Fatalf("Failed to ask: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("Expected 1 published record, got %d", len(publisher.published))
	}
	rec := publisher.published[0]
	if rec.UserID != 1 || rec.DocumentID != doc.ID || rec.Answer != result.Answer {
		t.Errorf("Published record does not match the answer: %+v", rec)
	}
}

func TestAskSurvivesPublishFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := NewQAService(store, &fakeRecordStore{}, embedder, nil, publisher, time.Second)

	ingestTestDoc(t, svc, 1, "doc", "content")

	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "q"}); err != nil {
		t.Fatalf("Expected publish failure to be swallowed, got %v", err)
	}
}

func TestAskUsesEmbeddingCache(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeDocStore{}
	cache := &fakeCache{entries: map[string][]float32{}}
	svc := NewQAService(store, &fakeRecordStore{}, embedder, cache, nil, time.Second)

	ingestTestDoc(t, svc, 1, "doc", "content")
	callsAfterIngest := embedder.calls

	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "repeated question"}); err != nil {
		t.Fatalf("Failed to ask: %v", err)
	}
	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "repeated question"}); err != nil {
		t.Fatalf("Failed to ask again: %v", err)
	}

	if cache.hits != 1 {
		t.Errorf("Expected 1 cache hit, got %d", cache.hits)
	}
	if got := embedder.calls - callsAfterIngest; got != 1 {
		t.Errorf("Expected 1 provider call across repeated questions, got %d", got)
	}
}

func TestAskValidatesInput(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeDocStore{})

	if _, err := svc.Ask(context.Background(), AskInput{UserID: 1, Question: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for blank question, got %v", err)
	}
	if _, err := svc.Ask(context.Background(), AskInput{UserID: 0, Question: "q"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing user, got %v", err)
	}
}
