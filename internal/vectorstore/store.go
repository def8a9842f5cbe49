package vectorstore

import (
	"context"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
)

const (
	// DefaultCollection is where document chunks live.
	DefaultCollection = "onenote_chunks"

	collectionDescription = "OneNote document chunks with embeddings"
)

// Doc is one indexed chunk.
type Doc struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32
}

// Hit is one retrieval result, most similar first.
type Hit struct {
	ID         string
	Text       string
	Metadata   map[string]string
	Similarity float32
}

// Store wraps a chromem collection holding chunk embeddings.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
}

// Open opens or creates a persistent store rooted at path.
func Open(path string, collection string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	return withCollection(db, collection)
}

// OpenMemory opens an in-memory store for tests and throwaway runs.
func OpenMemory(collection string) (*Store, error) {
	return withCollection(chromem.NewDB(), collection)
}

func withCollection(db *chromem.DB, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	col, err := db.GetOrCreateCollection(collection, map[string]string{
		"description": collectionDescription,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &Store{db: db, col: col}, nil
}

// Add indexes documents, overwriting entries that share an ID.
func (s *Store) Add(ctx context.Context, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		items = append(items, chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Metadata:  d.Metadata,
			Embedding: d.Embedding,
		})
	}
	if err := s.col.AddDocuments(ctx, items, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Has reports whether an ID is already indexed.
func (s *Store) Has(ctx context.Context, id string) bool {
	_, err := s.col.GetByID(ctx, id)
	return err == nil
}

// Get returns one indexed document by ID.
func (s *Store) Get(ctx context.Context, id string) (*Doc, bool) {
	doc, err := s.col.GetByID(ctx, id)
	if err != nil {
		return nil, false
	}
	return &Doc{ID: doc.ID, Text: doc.Content, Metadata: doc.Metadata, Embedding: doc.Embedding}, true
}

// Count returns the number of indexed documents.
func (s *Store) Count() int {
	return s.col.Count()
}

// Name returns the collection name.
func (s *Store) Name() string {
	return s.col.Name
}

// Query returns the topK most similar documents. topK is clamped to the
// collection size; an empty collection yields no hits.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	count := s.col.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := s.col.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Text: r.Content, Metadata: r.Metadata, Similarity: r.Similarity})
	}
	return hits, nil
}

// Export snapshots the collection into a single file.
func (s *Store) Export(path string, compress bool, encryptionKey string) error {
	if err := s.db.ExportToFile(path, compress, encryptionKey, s.col.Name); err != nil {
		return fmt.Errorf("export collection: %w", err)
	}
	return nil
}
