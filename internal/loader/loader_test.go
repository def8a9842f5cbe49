package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

func backupFile() *model.EmbeddingFile {
	return &model.EmbeddingFile{
		SourceDocument: "notes.docx",
		EmbeddingModel: "text-embedding-3-small",
		TotalChunks:    3,
		Chunks: []model.EmbeddedChunk{
			{
				Chunk:          model.Chunk{Text: "alpha", WordCount: 1, SourceFile: "notes.docx", SectionIdx: 0, Heading: "A"},
				Embedding:      []float32{1, 0},
				EmbeddingModel: "text-embedding-3-small",
			},
			{
				Chunk:          model.Chunk{Text: "beta", WordCount: 1, SourceFile: "notes.docx", SectionIdx: 1, Heading: "B"},
				Embedding:      []float32{0, 1},
				EmbeddingModel: "text-embedding-3-small",
			},
			{
				// Failed embedding, must never reach the index.
				Chunk: model.Chunk{Text: "broken", SectionIdx: 2},
			},
		},
	}
}

func TestLoadFileIdempotent(t *testing.T) {
	store, err := vectorstore.OpenMemory("")
	require.NoError(t, err)
	l := New(store)
	ctx := context.Background()

	added, skipped, err := l.LoadFile(ctx, backupFile())
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, 0, skipped)
	require.Equal(t, 2, store.Count())

	added, skipped, err = l.LoadFile(ctx, backupFile())
	require.NoError(t, err)
	require.Equal(t, 0, added)
	require.Equal(t, 2, skipped)
	require.Equal(t, 2, store.Count())
}

func TestLoadFileMetadataDefaults(t *testing.T) {
	store, err := vectorstore.OpenMemory("")
	require.NoError(t, err)
	ctx := context.Background()

	ef := &model.EmbeddingFile{
		SourceDocument: "old.docx",
		Chunks: []model.EmbeddedChunk{
			{Chunk: model.Chunk{Text: "legacy"}, Embedding: []float32{1}},
		},
	}
	_, _, err = New(store).LoadFile(ctx, ef)
	require.NoError(t, err)

	doc, ok := store.Get(ctx, "old.docx_0_0")
	require.True(t, ok)
	require.Equal(t, "unknown", doc.Metadata["embedding_model"])
	require.Equal(t, "old.docx", doc.Metadata["source_file"])
}

func TestStats(t *testing.T) {
	store, err := vectorstore.OpenMemory("")
	require.NoError(t, err)
	l := New(store)
	ctx := context.Background()

	st := l.Stats(ctx, "")
	require.Equal(t, vectorstore.DefaultCollection, st.Collection)
	require.Equal(t, 0, st.Count)
	require.Nil(t, st.Sample)

	_, _, err = l.LoadFile(ctx, backupFile())
	require.NoError(t, err)

	st = l.Stats(ctx, "notes.docx_0_0")
	require.Equal(t, 2, st.Count)
	require.Equal(t, "A", st.Sample["heading"])
}
