package model

// Chunk is a word-bounded slice of one section. ChunkNum is nil when the whole
// section fit into a single chunk.
type Chunk struct {
	Text         string `json:"text"`
	WordCount    int    `json:"word_count"`
	ChunkNum     *int   `json:"chunk_num,omitempty"`
	SourceFile   string `json:"source_file"`
	SectionIdx   int    `json:"section_idx"`
	Heading      string `json:"heading"`
	HeadingLevel int    `json:"heading_level"`
}

// ChunkFile is the per-document artifact written by the chunk stage. It echoes
// the chunking configuration so a run is reproducible from the artifact alone.
type ChunkFile struct {
	SourceDocument string  `json:"source_document"`
	ChunkSize      int     `json:"chunk_size"`
	Overlap        int     `json:"overlap"`
	TotalChunks    int     `json:"total_chunks"`
	Chunks         []Chunk `json:"chunks"`
}

// EmbeddedChunk carries the vector for a chunk. Embedding stays nil when the
// embedding call for this chunk failed.
type EmbeddedChunk struct {
	Chunk
	Embedding      []float32 `json:"embedding"`
	EmbeddingModel string    `json:"embedding_model"`
}

// EmbeddingFile is the backup artifact written by the embed stage, sufficient
// to rebuild the vector index without calling the embedding service again.
type EmbeddingFile struct {
	SourceDocument string          `json:"source_document"`
	EmbeddingModel string          `json:"embedding_model"`
	TotalChunks    int             `json:"total_chunks"`
	GeneratedDate  string          `json:"generated_date"`
	Chunks         []EmbeddedChunk `json:"chunks"`
}
