package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/noterag/internal/ai"
	"github.com/xxxsen/noterag/internal/chunker"
	"github.com/xxxsen/noterag/internal/docreader"
	"github.com/xxxsen/noterag/internal/embedding"
	"github.com/xxxsen/noterag/internal/filestore"
	"github.com/xxxsen/noterag/internal/importer"
	"github.com/xxxsen/noterag/internal/loader"
	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

type flakyEmbedder struct {
	failSubstr string
}

func (f *flakyEmbedder) Embed(ctx context.Context, input string, taskType string) ([]float32, error) {
	if f.failSubstr != "" && strings.Contains(input, f.failSubstr) {
		return nil, errors.New("embedding backend rejected input")
	}
	return []float32{1, 0, 0}, nil
}

func (f *flakyEmbedder) ModelName() string { return "flaky-embed" }

func staticReader(paras []docreader.Paragraph) importer.ParagraphReader {
	return func(path string) ([]docreader.Paragraph, error) {
		return paras, nil
	}
}

type pipelineEnv struct {
	svc           *PipelineService
	index         *vectorstore.Store
	rawDir        string
	processedDir  string
	embeddingsDir string
}

func newPipelineEnv(t *testing.T, read importer.ParagraphReader, embedder ai.IEmbedder) *pipelineEnv {
	t.Helper()
	root := t.TempDir()
	env := &pipelineEnv{
		rawDir:        filepath.Join(root, "raw"),
		processedDir:  filepath.Join(root, "processed"),
		embeddingsDir: filepath.Join(root, "embeddings"),
	}
	for _, dir := range []string{env.rawDir, env.processedDir, env.embeddingsDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	processed, err := filestore.NewLocal(env.processedDir)
	require.NoError(t, err)
	embeddings, err := filestore.NewLocal(env.embeddingsDir)
	require.NoError(t, err)
	index, err := vectorstore.OpenMemory("")
	require.NoError(t, err)
	chk, err := chunker.New(5, 1)
	require.NoError(t, err)
	env.index = index
	env.svc = NewPipelineService(PipelineDeps{
		Importer:      importer.New(read),
		Chunker:       chk,
		Generator:     embedding.NewGenerator(embedder, 0, 0),
		Loader:        loader.New(index),
		Index:         index,
		Processed:     processed,
		Embeddings:    embeddings,
		RawDir:        env.rawDir,
		ProcessedDir:  env.processedDir,
		EmbeddingsDir: env.embeddingsDir,
	})
	return env
}

func TestPipelineRunFull(t *testing.T) {
	paras := []docreader.Paragraph{
		{Style: "Heading 1", Text: "Setup"},
		{Text: "one two three four five six seven"},
	}
	env := newPipelineEnv(t, staticReader(paras), &flakyEmbedder{})
	require.NoError(t, os.WriteFile(filepath.Join(env.rawDir, "guide.docx"), []byte("x"), 0o644))

	require.NoError(t, env.svc.RunFull(context.Background()))

	require.FileExists(t, filepath.Join(env.processedDir, "guide.json"))
	require.FileExists(t, filepath.Join(env.processedDir, "guide_chunks.json"))
	require.FileExists(t, filepath.Join(env.embeddingsDir, "guide_chunks_embeddings.json"))

	data, err := os.ReadFile(filepath.Join(env.processedDir, "guide_chunks.json"))
	require.NoError(t, err)
	var cf model.ChunkFile
	require.NoError(t, json.Unmarshal(data, &cf))
	require.Equal(t, "guide.docx", cf.SourceDocument)
	require.Equal(t, 2, cf.TotalChunks)

	require.Equal(t, 2, env.index.Count())
	require.True(t, env.index.Has(context.Background(), "guide.docx_0_0"))
	require.True(t, env.index.Has(context.Background(), "guide.docx_0_1"))
}

func TestPipelineRunFullStopsWithoutDocuments(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{})
	require.NoError(t, env.svc.RunFull(context.Background()))

	entries, err := os.ReadDir(env.processedDir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, 0, env.index.Count())
}

func TestPipelineImportFailureSkipsDocument(t *testing.T) {
	paras := []docreader.Paragraph{{Text: "hello world"}}
	read := func(path string) ([]docreader.Paragraph, error) {
		if strings.Contains(path, "bad") {
			return nil, errors.New("corrupt archive")
		}
		return paras, nil
	}
	env := newPipelineEnv(t, read, &flakyEmbedder{})
	require.NoError(t, os.WriteFile(filepath.Join(env.rawDir, "bad.docx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.rawDir, "good.docx"), []byte("x"), 0o644))

	require.NoError(t, env.svc.RunImport(context.Background()))
	require.FileExists(t, filepath.Join(env.processedDir, "good.json"))
	require.NoFileExists(t, filepath.Join(env.processedDir, "bad.json"))
}

func TestPipelineChunkExcludesChunkArtifacts(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{})
	doc := &model.DocumentFile{
		SourceFile:  "a.docx",
		NumSections: 1,
		Sections:    []model.Section{{Heading: "H", Level: 1, Text: "hello world"}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(env.processedDir, "a.json"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.processedDir, "a_chunks.json"), []byte("{}"), 0o644))

	require.NoError(t, env.svc.RunChunk(context.Background()))

	require.FileExists(t, filepath.Join(env.processedDir, "a_chunks.json"))
	require.NoFileExists(t, filepath.Join(env.processedDir, "a_chunks_chunks.json"))

	data, err = os.ReadFile(filepath.Join(env.processedDir, "a_chunks.json"))
	require.NoError(t, err)
	var cf model.ChunkFile
	require.NoError(t, json.Unmarshal(data, &cf))
	require.Equal(t, "a.docx", cf.SourceDocument)
	require.Equal(t, 1, cf.TotalChunks)
}

func TestPipelineEmbedSkipsFailedChunks(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{failSubstr: "poison"})
	num0, num1 := 0, 1
	cf := &model.ChunkFile{
		SourceDocument: "x.docx",
		ChunkSize:      5,
		Overlap:        1,
		TotalChunks:    2,
		Chunks: []model.Chunk{
			{Text: "clean words here", WordCount: 3, ChunkNum: &num0, SourceFile: "x.docx"},
			{Text: "poison words here", WordCount: 3, ChunkNum: &num1, SourceFile: "x.docx"},
		},
	}
	data, err := json.Marshal(cf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(env.processedDir, "x_chunks.json"), data, 0o644))

	require.NoError(t, env.svc.RunEmbed(context.Background()))

	require.Equal(t, 1, env.index.Count())
	require.True(t, env.index.Has(context.Background(), "x.docx_0_0"))

	backup, err := os.ReadFile(filepath.Join(env.embeddingsDir, "x_chunks_embeddings.json"))
	require.NoError(t, err)
	var ef model.EmbeddingFile
	require.NoError(t, json.Unmarshal(backup, &ef))
	require.Len(t, ef.Chunks, 2)
	require.NotNil(t, ef.Chunks[0].Embedding)
	require.Nil(t, ef.Chunks[1].Embedding)
	require.Equal(t, "flaky-embed", ef.Chunks[1].EmbeddingModel)
}

func writeBackup(t *testing.T, dir string, ef *model.EmbeddingFile) {
	t.Helper()
	data, err := json.Marshal(ef)
	require.NoError(t, err)
	name := strings.TrimSuffix(ef.SourceDocument, ".docx") + "_chunks_embeddings.json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestPipelineRunLoadIsIdempotent(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{})
	num0, num1 := 0, 1
	writeBackup(t, env.embeddingsDir, &model.EmbeddingFile{
		SourceDocument: "y.docx",
		EmbeddingModel: "flaky-embed",
		TotalChunks:    2,
		Chunks: []model.EmbeddedChunk{
			{Chunk: model.Chunk{Text: "alpha", ChunkNum: &num0}, Embedding: []float32{1, 0, 0}},
			{Chunk: model.Chunk{Text: "beta", ChunkNum: &num1}, Embedding: []float32{0, 1, 0}},
		},
	})

	require.NoError(t, env.svc.RunLoad(context.Background()))
	require.Equal(t, 2, env.index.Count())

	require.NoError(t, env.svc.RunLoad(context.Background()))
	require.Equal(t, 2, env.index.Count())
}

func TestPipelineStats(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{})
	num0 := 0
	writeBackup(t, env.embeddingsDir, &model.EmbeddingFile{
		SourceDocument: "y.docx",
		EmbeddingModel: "flaky-embed",
		TotalChunks:    1,
		Chunks: []model.EmbeddedChunk{
			{Chunk: model.Chunk{Text: "alpha", Heading: "Intro", ChunkNum: &num0}, Embedding: []float32{1, 0, 0}},
		},
	})
	require.NoError(t, env.svc.RunLoad(context.Background()))

	stats := env.svc.Stats(context.Background())
	require.Equal(t, "onenote_chunks", stats.Index.Collection)
	require.Equal(t, 1, stats.Index.Count)
	require.NotNil(t, stats.Index.Sample)
	require.Equal(t, "Intro", stats.Index.Sample["heading"])
	require.Nil(t, stats.Runs)
}

func TestPipelineStatsEmptyIndex(t *testing.T) {
	env := newPipelineEnv(t, staticReader(nil), &flakyEmbedder{})
	stats := env.svc.Stats(context.Background())
	require.Equal(t, 0, stats.Index.Count)
	require.Nil(t, stats.Index.Sample)
}
