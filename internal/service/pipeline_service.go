package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/noterag/internal/chunker"
	"github.com/xxxsen/noterag/internal/embedding"
	"github.com/xxxsen/noterag/internal/filestore"
	"github.com/xxxsen/noterag/internal/importer"
	"github.com/xxxsen/noterag/internal/loader"
	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/repo"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

// PipelineDeps carries the collaborators of the offline pipeline. Runs may be
// nil when no database is configured; run history is then skipped.
type PipelineDeps struct {
	Importer   *importer.Importer
	Chunker    *chunker.Chunker
	Generator  *embedding.Generator
	Loader     *loader.Loader
	Index      *vectorstore.Store
	Processed  filestore.Store
	Embeddings filestore.Store
	Runs       *repo.PipelineRunRepo

	RawDir        string
	ProcessedDir  string
	EmbeddingsDir string
}

type PipelineService struct {
	deps PipelineDeps
}

func NewPipelineService(deps PipelineDeps) *PipelineService {
	return &PipelineService{deps: deps}
}

type stageStats struct {
	documents int
	chunks    int
	embedded  int
	failed    int
}

// RunFull runs import, chunk and embed back to back. A run that imports zero
// documents stops after the import stage without error.
func (s *PipelineService) RunFull(ctx context.Context) error {
	start := time.Now()
	st, err := s.fullStage(ctx)
	s.record(ctx, "full", st, start, err)
	return err
}

func (s *PipelineService) RunImport(ctx context.Context) error {
	start := time.Now()
	st, err := s.importStage(ctx)
	s.record(ctx, "import", st, start, err)
	return err
}

func (s *PipelineService) RunChunk(ctx context.Context) error {
	start := time.Now()
	st, err := s.chunkStage(ctx)
	s.record(ctx, "chunk", st, start, err)
	return err
}

func (s *PipelineService) RunEmbed(ctx context.Context) error {
	start := time.Now()
	st, err := s.embedStage(ctx)
	s.record(ctx, "embed", st, start, err)
	return err
}

// RunLoad replays embedding backups into the index without re-embedding.
func (s *PipelineService) RunLoad(ctx context.Context) error {
	start := time.Now()
	st, err := s.loadStage(ctx)
	s.record(ctx, "load", st, start, err)
	return err
}

func (s *PipelineService) fullStage(ctx context.Context) (stageStats, error) {
	imp, err := s.importStage(ctx)
	if err != nil || imp.documents == 0 {
		return imp, err
	}
	chk, err := s.chunkStage(ctx)
	total := stageStats{
		documents: imp.documents,
		chunks:    chk.chunks,
		failed:    imp.failed + chk.failed,
	}
	if err != nil {
		return total, err
	}
	emb, err := s.embedStage(ctx)
	total.embedded = emb.embedded
	total.failed += emb.failed
	return total, err
}

func (s *PipelineService) importStage(ctx context.Context) (stageStats, error) {
	var st stageStats
	logger := logutil.GetLogger(ctx)
	files, err := filepath.Glob(filepath.Join(s.deps.RawDir, "*.docx"))
	if err != nil {
		return st, fmt.Errorf("list raw documents: %w", err)
	}
	if len(files) == 0 {
		logger.Info("no documents found, export OneNote pages as .docx into the raw folder",
			zap.String("dir", s.deps.RawDir))
		return st, nil
	}
	for _, path := range files {
		doc, err := s.deps.Importer.ImportFile(ctx, path)
		if err != nil {
			logger.Error("import document failed", zap.String("file", path), zap.Error(err))
			st.failed++
			continue
		}
		key := stemOf(doc.SourceFile) + ".json"
		if err := filestore.SaveJSON(ctx, s.deps.Processed, key, doc); err != nil {
			logger.Error("save document artifact failed", zap.String("file", path), zap.Error(err))
			st.failed++
			continue
		}
		st.documents++
	}
	logger.Info("import stage finished",
		zap.Int("documents", st.documents), zap.Int("failed", st.failed))
	return st, nil
}

func (s *PipelineService) chunkStage(ctx context.Context) (stageStats, error) {
	var st stageStats
	logger := logutil.GetLogger(ctx)
	files, err := filepath.Glob(filepath.Join(s.deps.ProcessedDir, "*.json"))
	if err != nil {
		return st, fmt.Errorf("list processed documents: %w", err)
	}
	processed := 0
	for _, path := range files {
		name := filepath.Base(path)
		if strings.HasSuffix(name, "_chunks.json") {
			continue
		}
		processed++
		var doc model.DocumentFile
		if err := filestore.LoadJSON(ctx, s.deps.Processed, name, &doc); err != nil {
			logger.Error("load document artifact failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		cf := s.deps.Chunker.ChunkDocument(&doc)
		if err := filestore.SaveJSON(ctx, s.deps.Processed, stemOf(name)+"_chunks.json", cf); err != nil {
			logger.Error("save chunk artifact failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		st.documents++
		st.chunks += cf.TotalChunks
	}
	if processed == 0 {
		logger.Info("no processed documents found, run the import stage first",
			zap.String("dir", s.deps.ProcessedDir))
		return st, nil
	}
	logger.Info("chunk stage finished",
		zap.Int("documents", st.documents), zap.Int("chunks", st.chunks), zap.Int("failed", st.failed))
	return st, nil
}

func (s *PipelineService) embedStage(ctx context.Context) (stageStats, error) {
	var st stageStats
	logger := logutil.GetLogger(ctx)
	files, err := filepath.Glob(filepath.Join(s.deps.ProcessedDir, "*_chunks.json"))
	if err != nil {
		return st, fmt.Errorf("list chunk files: %w", err)
	}
	if len(files) == 0 {
		logger.Info("no chunk files found, run the chunk stage first",
			zap.String("dir", s.deps.ProcessedDir))
		return st, nil
	}
	for _, path := range files {
		name := filepath.Base(path)
		var cf model.ChunkFile
		if err := filestore.LoadJSON(ctx, s.deps.Processed, name, &cf); err != nil {
			logger.Error("load chunk artifact failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		ef := s.deps.Generator.EmbedChunks(ctx, &cf)
		docs := embedding.BuildDocs(ef.Chunks, ef.SourceDocument, ef.EmbeddingModel)
		if dropped := len(ef.Chunks) - len(docs); dropped > 0 {
			logger.Warn("chunks without embeddings skipped at index write",
				zap.String("document", ef.SourceDocument), zap.Int("count", dropped))
			st.failed += dropped
		}
		if len(docs) > 0 {
			if err := s.deps.Index.Add(ctx, docs); err != nil {
				logger.Error("index write failed, backup still written",
					zap.String("document", ef.SourceDocument), zap.Error(err))
			}
		}
		if err := filestore.SaveJSON(ctx, s.deps.Embeddings, stemOf(name)+"_embeddings.json", ef); err != nil {
			logger.Error("save embedding backup failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		st.documents++
		st.chunks += ef.TotalChunks
		st.embedded += len(docs)
	}
	logger.Info("embed stage finished",
		zap.Int("documents", st.documents), zap.Int("chunks", st.chunks),
		zap.Int("embedded", st.embedded), zap.Int("failed", st.failed))
	return st, nil
}

func (s *PipelineService) loadStage(ctx context.Context) (stageStats, error) {
	var st stageStats
	logger := logutil.GetLogger(ctx)
	files, err := filepath.Glob(filepath.Join(s.deps.EmbeddingsDir, "*_embeddings.json"))
	if err != nil {
		return st, fmt.Errorf("list embedding backups: %w", err)
	}
	if len(files) == 0 {
		logger.Info("no embedding backups found, run the embed stage first",
			zap.String("dir", s.deps.EmbeddingsDir))
		return st, nil
	}
	for _, path := range files {
		name := filepath.Base(path)
		var ef model.EmbeddingFile
		if err := filestore.LoadJSON(ctx, s.deps.Embeddings, name, &ef); err != nil {
			logger.Error("load embedding backup failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		added, skipped, err := s.deps.Loader.LoadFile(ctx, &ef)
		if err != nil {
			logger.Error("load backup into index failed", zap.String("file", name), zap.Error(err))
			st.failed++
			continue
		}
		st.documents++
		st.chunks += added + skipped
		st.embedded += added
	}
	logger.Info("load stage finished",
		zap.Int("files", st.documents), zap.Int("added", st.embedded), zap.Int("failed", st.failed))
	return st, nil
}

// StatsResult is what the stats command prints: the index view plus recent
// pipeline runs when history is available.
type StatsResult struct {
	Index loader.Stats        `json:"index"`
	Runs  []model.PipelineRun `json:"runs,omitempty"`
}

func (s *PipelineService) Stats(ctx context.Context) *StatsResult {
	res := &StatsResult{Index: *s.deps.Loader.Stats(ctx, s.sampleID(ctx))}
	if s.deps.Runs != nil {
		runs, err := s.deps.Runs.ListRecent(ctx, 10)
		if err != nil {
			logutil.GetLogger(ctx).Warn("list pipeline runs failed", zap.Error(err))
		} else {
			res.Runs = runs
		}
	}
	return res
}

// sampleID picks a representative record ID out of the first embedding
// backup. The index itself has no cheap "any record" accessor.
func (s *PipelineService) sampleID(ctx context.Context) string {
	files, err := filepath.Glob(filepath.Join(s.deps.EmbeddingsDir, "*_embeddings.json"))
	if err != nil || len(files) == 0 {
		return ""
	}
	var ef model.EmbeddingFile
	if err := filestore.LoadJSON(ctx, s.deps.Embeddings, filepath.Base(files[0]), &ef); err != nil {
		return ""
	}
	if len(ef.Chunks) == 0 {
		return ""
	}
	return embedding.ChunkID(ef.SourceDocument, ef.Chunks[0].Chunk, 0)
}

func (s *PipelineService) record(ctx context.Context, stage string, st stageStats, start time.Time, runErr error) {
	if s.deps.Runs == nil {
		return
	}
	run := &model.PipelineRun{
		Stage:      stage,
		Documents:  st.documents,
		Chunks:     st.chunks,
		Embedded:   st.embedded,
		Failed:     st.failed,
		Status:     "ok",
		StartedAt:  start.Unix(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
	}
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		logutil.GetLogger(ctx).Warn("record pipeline run failed", zap.Error(err))
	}
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
