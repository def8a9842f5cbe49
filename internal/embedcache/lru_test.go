package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, input string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "m"
}

func TestWrapLRU(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 8, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	second, err := e.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, first, second)

	// Mutating a returned slice must not poison the cache.
	second[0] = 99
	third, err := e.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(1), third[0])

	// A different task type is a different entry.
	_, err = e.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	wrapped := WrapLRU(inner, 0, time.Minute)
	_, ok := wrapped.(*lruEmbedder)
	require.False(t, ok)
}

func TestBuildCacheKey(t *testing.T) {
	key, hash, modelName := buildCacheKey("m", "RETRIEVAL_QUERY", "hello")
	require.Equal(t, "m", modelName)
	require.Len(t, hash, 64)
	require.Equal(t, "embed:m:RETRIEVAL_QUERY:"+hash, key)

	_, _, modelName = buildCacheKey("  ", "RETRIEVAL_QUERY", "hello")
	require.Equal(t, "unknown", modelName)
}
