package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/noterag/internal/model"
)

func makeWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

func TestNewValidation(t *testing.T) {
	_, err := New(0, 0)
	require.Error(t, err)
	_, err = New(500, -1)
	require.Error(t, err)
	_, err = New(500, 500)
	require.Error(t, err)
	_, err = New(500, 501)
	require.Error(t, err)
	c, err := New(500, 50)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestSplitShortTextKeepsOriginal(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	sec := model.Section{Heading: "Notes", Level: 2, Text: "one  two\tthree"}
	chunks := c.Split(sec, "doc.docx", 4)
	require.Len(t, chunks, 1)
	require.Equal(t, "one  two\tthree", chunks[0].Text)
	require.Equal(t, 3, chunks[0].WordCount)
	require.Nil(t, chunks[0].ChunkNum)
	require.Equal(t, "doc.docx", chunks[0].SourceFile)
	require.Equal(t, 4, chunks[0].SectionIdx)
	require.Equal(t, "Notes", chunks[0].Heading)
	require.Equal(t, 2, chunks[0].HeadingLevel)
}

func TestSplitEmptyText(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	chunks := c.Split(model.Section{Heading: "Empty", Level: 1}, "doc.docx", 0)
	require.Len(t, chunks, 1)
	require.Equal(t, "", chunks[0].Text)
	require.Equal(t, 0, chunks[0].WordCount)
	require.Nil(t, chunks[0].ChunkNum)
}

func TestSplitExactWindowIsSingleChunk(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	words := makeWords(500)
	chunks := c.Split(model.Section{Text: strings.Join(words, " ")}, "doc.docx", 0)
	require.Len(t, chunks, 1)
	require.Nil(t, chunks[0].ChunkNum)
	require.Equal(t, 500, chunks[0].WordCount)
}

func TestSplitLongTextWindows(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	words := makeWords(1200)
	chunks := c.Split(model.Section{Heading: "Long", Level: 1, Text: strings.Join(words, " ")}, "doc.docx", 2)
	require.Len(t, chunks, 3)

	counts := []int{500, 500, 300}
	for i, chunk := range chunks {
		require.Equal(t, counts[i], chunk.WordCount, "chunk %d", i)
		require.NotNil(t, chunk.ChunkNum)
		require.Equal(t, i, *chunk.ChunkNum)
		require.Equal(t, 2, chunk.SectionIdx)
	}
	require.True(t, strings.HasPrefix(chunks[0].Text, "w0 "))
	require.True(t, strings.HasPrefix(chunks[1].Text, "w450 "))
	require.True(t, strings.HasPrefix(chunks[2].Text, "w900 "))
	require.True(t, strings.HasSuffix(chunks[2].Text, " w1199"))

	// Consecutive windows share the overlap region.
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	require.Equal(t, first[len(first)-50:], second[:50])

	// Reconstructing with the overlap dropped yields the original words.
	rebuilt := append([]string{}, first...)
	for _, chunk := range chunks[1:] {
		fields := strings.Fields(chunk.Text)
		rebuilt = append(rebuilt, fields[50:]...)
	}
	require.Equal(t, words, rebuilt)
}

func TestSplitTailWindowIsPureOverlap(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	words := makeWords(950)
	chunks := c.Split(model.Section{Text: strings.Join(words, " ")}, "doc.docx", 0)
	require.Len(t, chunks, 3)
	require.Equal(t, 500, chunks[0].WordCount)
	require.Equal(t, 500, chunks[1].WordCount)
	require.Equal(t, 50, chunks[2].WordCount)

	second := strings.Fields(chunks[1].Text)
	require.Equal(t, strings.Join(second[len(second)-50:], " "), chunks[2].Text)
}

func TestChunkDocument(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)
	doc := &model.DocumentFile{
		SourceFile: "doc.docx",
		Sections: []model.Section{
			{Heading: "Introduction", Level: 0, Text: "short intro"},
			{Heading: "Body", Level: 1, Text: strings.Join(makeWords(25), " ")},
		},
	}
	cf := c.ChunkDocument(doc)
	require.Equal(t, "doc.docx", cf.SourceDocument)
	require.Equal(t, 10, cf.ChunkSize)
	require.Equal(t, 2, cf.Overlap)
	require.Equal(t, cf.TotalChunks, len(cf.Chunks))

	// Section 0 is short (1 chunk); section 1 windows at 0, 8, 16, 24.
	require.Equal(t, 5, cf.TotalChunks)
	require.Equal(t, 0, cf.Chunks[0].SectionIdx)
	require.Equal(t, "Introduction", cf.Chunks[0].Heading)
	for _, chunk := range cf.Chunks[1:] {
		require.Equal(t, 1, chunk.SectionIdx)
		require.Equal(t, "Body", chunk.Heading)
	}
}

func TestChunkDocumentNoSections(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)
	cf := c.ChunkDocument(&model.DocumentFile{SourceFile: "empty.docx"})
	require.NotNil(t, cf.Chunks)
	require.Equal(t, 0, cf.TotalChunks)
}
