package embedding

import (
	"fmt"
	"strconv"

	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

// ChunkID derives the index ID for one chunk. Chunks without a chunk
// number fall back to their position in the document's chunk list, so
// the ID stays stable across re-runs of the same artifact.
func ChunkID(sourceDocument string, c model.Chunk, idx int) string {
	num := idx
	if c.ChunkNum != nil {
		num = *c.ChunkNum
	}
	return fmt.Sprintf("%s_%d_%d", sourceDocument, c.SectionIdx, num)
}

// BuildDocs converts embedded chunks into index documents. Chunks whose
// embedding failed are left out; defaultModel fills the metadata when a
// chunk does not record the model that embedded it.
func BuildDocs(chunks []model.EmbeddedChunk, sourceDocument string, defaultModel string) []vectorstore.Doc {
	docs := make([]vectorstore.Doc, 0, len(chunks))
	for idx, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		sourceFile := c.SourceFile
		if sourceFile == "" {
			sourceFile = sourceDocument
		}
		embModel := c.EmbeddingModel
		if embModel == "" {
			embModel = defaultModel
		}
		num := idx
		if c.ChunkNum != nil {
			num = *c.ChunkNum
		}
		docs = append(docs, vectorstore.Doc{
			ID:   ChunkID(sourceDocument, c.Chunk, idx),
			Text: c.Text,
			Metadata: map[string]string{
				"source_file":     sourceFile,
				"heading":         c.Heading,
				"heading_level":   strconv.Itoa(c.HeadingLevel),
				"section_idx":     strconv.Itoa(c.SectionIdx),
				"chunk_num":       strconv.Itoa(num),
				"word_count":      strconv.Itoa(c.WordCount),
				"embedding_model": embModel,
			},
			Embedding: c.Embedding,
		})
	}
	return docs
}
