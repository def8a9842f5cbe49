package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/noterag/internal/ai"
	"github.com/xxxsen/noterag/internal/model"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many embedding calls run concurrently.
const DefaultBatchSize = 100

// Generator embeds chunk files batch by batch.
type Generator struct {
	embedder    ai.IEmbedder
	batchSize   int
	callTimeout time.Duration
}

// NewGenerator builds a generator. callTimeout caps each embedding call,
// 0 leaves the caller's context in charge.
func NewGenerator(embedder ai.IEmbedder, batchSize int, callTimeout time.Duration) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Generator{embedder: embedder, batchSize: batchSize, callTimeout: callTimeout}
}

// EmbedChunks embeds every chunk of a document in order. Batches run one
// after another with the calls inside a batch in flight concurrently. A
// failed call leaves a nil embedding in its slot instead of aborting the
// document.
func (g *Generator) EmbedChunks(ctx context.Context, cf *model.ChunkFile) *model.EmbeddingFile {
	logger := logutil.GetLogger(ctx).With(zap.String("document", cf.SourceDocument))
	total := len(cf.Chunks)
	embeddings := make([][]float32, total)
	batches := (total + g.batchSize - 1) / g.batchSize

	for start := 0; start < total; start += g.batchSize {
		end := start + g.batchSize
		if end > total {
			end = total
		}
		logger.Debug("embedding batch",
			zap.Int("batch", start/g.batchSize+1), zap.Int("batches", batches))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				callCtx := ctx
				if g.callTimeout > 0 {
					var cancel context.CancelFunc
					callCtx, cancel = context.WithTimeout(ctx, g.callTimeout)
					defer cancel()
				}
				emb, err := g.embedder.Embed(callCtx, cf.Chunks[i].Text, ai.TaskTypeDocument)
				if err != nil {
					logger.Error("generate embedding failed", zap.Int("chunk", i), zap.Error(err))
					return
				}
				embeddings[i] = emb
			}(i)
		}
		wg.Wait()
	}

	chunks := make([]model.EmbeddedChunk, 0, total)
	for i, c := range cf.Chunks {
		chunks = append(chunks, model.EmbeddedChunk{
			Chunk:          c,
			Embedding:      embeddings[i],
			EmbeddingModel: g.embedder.ModelName(),
		})
	}
	return &model.EmbeddingFile{
		SourceDocument: cf.SourceDocument,
		EmbeddingModel: g.embedder.ModelName(),
		TotalChunks:    total,
		GeneratedDate:  time.Now().Format(time.RFC3339),
		Chunks:         chunks,
	}
}
