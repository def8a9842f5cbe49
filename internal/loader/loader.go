package loader

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/noterag/internal/embedding"
	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/vectorstore"
	"go.uber.org/zap"
)

// unknownModel fills the metadata of backup chunks that predate model
// tracking.
const unknownModel = "unknown"

// Loader replays embedding backup artifacts into the vector index.
type Loader struct {
	store *vectorstore.Store
}

func New(store *vectorstore.Store) *Loader {
	return &Loader{store: store}
}

// LoadFile indexes one backup artifact. IDs that are already present
// are left untouched, so replaying a backup is idempotent. It returns
// how many documents were added and how many were already indexed.
func (l *Loader) LoadFile(ctx context.Context, ef *model.EmbeddingFile) (int, int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("document", ef.SourceDocument))
	docs := embedding.BuildDocs(ef.Chunks, ef.SourceDocument, unknownModel)
	if dropped := len(ef.Chunks) - len(docs); dropped > 0 {
		logger.Warn("skipping chunks without embeddings", zap.Int("count", dropped))
	}

	skipped := 0
	fresh := make([]vectorstore.Doc, 0, len(docs))
	for _, doc := range docs {
		if l.store.Has(ctx, doc.ID) {
			skipped++
			continue
		}
		fresh = append(fresh, doc)
	}
	if len(fresh) > 0 {
		if err := l.store.Add(ctx, fresh); err != nil {
			return 0, skipped, err
		}
	}
	logger.Info("backup loaded", zap.Int("added", len(fresh)), zap.Int("existing", skipped))
	return len(fresh), skipped, nil
}

// Stats describes the collection, with the metadata of one sample
// document when a sample ID is known.
type Stats struct {
	Collection string            `json:"collection"`
	Count      int               `json:"count"`
	Sample     map[string]string `json:"sample,omitempty"`
}

func (l *Loader) Stats(ctx context.Context, sampleID string) *Stats {
	st := &Stats{Collection: l.store.Name(), Count: l.store.Count()}
	if sampleID != "" {
		if doc, ok := l.store.Get(ctx, sampleID); ok {
			st.Sample = doc.Metadata
		}
	}
	return st
}
