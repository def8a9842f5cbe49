package chunker

import (
	"fmt"
	"strings"

	"github.com/xxxsen/noterag/internal/model"
)

// Chunker splits section text into overlapping word windows.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters. overlap must stay below size so
// that each step advances.
func New(size int, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks one section. Text at or under the window size comes back
// as a single chunk with its original whitespace and no chunk number;
// longer text is windowed with the configured overlap, so consecutive
// chunks share their boundary words.
func (c *Chunker) Split(sec model.Section, sourceFile string, sectionIdx int) []model.Chunk {
	words := strings.Fields(sec.Text)
	base := model.Chunk{
		SourceFile:   sourceFile,
		SectionIdx:   sectionIdx,
		Heading:      sec.Heading,
		HeadingLevel: sec.Level,
	}
	if len(words) <= c.size {
		chunk := base
		chunk.Text = sec.Text
		chunk.WordCount = len(words)
		return []model.Chunk{chunk}
	}
	var chunks []model.Chunk
	num := 0
	for start := 0; start < len(words); start += c.size - c.overlap {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		part := words[start:end]
		chunk := base
		chunk.Text = strings.Join(part, " ")
		chunk.WordCount = len(part)
		n := num
		chunk.ChunkNum = &n
		chunks = append(chunks, chunk)
		num++
	}
	return chunks
}

// ChunkDocument chunks every section of an imported document and wraps
// the result in the chunk artifact shape.
func (c *Chunker) ChunkDocument(doc *model.DocumentFile) *model.ChunkFile {
	all := make([]model.Chunk, 0)
	for idx, sec := range doc.Sections {
		all = append(all, c.Split(sec, doc.SourceFile, idx)...)
	}
	return &model.ChunkFile{
		SourceDocument: doc.SourceFile,
		ChunkSize:      c.size,
		Overlap:        c.overlap,
		TotalChunks:    len(all),
		Chunks:         all,
	}
}
