package ai

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/noterag/internal/model"
)

type stubChatter struct {
	text string
	err  error
}

func (s *stubChatter) Complete(ctx context.Context, messages []model.ChatMessage) (*Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Text: s.text}, nil
}

type stubEmbedder struct {
	name string
	vec  []float32
	err  error
}

func (s *stubEmbedder) Embed(ctx context.Context, input string, taskType string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) ModelName() string {
	return s.name
}

func TestGroupChatterFailover(t *testing.T) {
	g := NewGroupChatter([]ChatterEntry{
		{Name: "first", Chatter: &stubChatter{err: fmt.Errorf("boom")}},
		{Name: "second", Chatter: &stubChatter{text: "answer"}},
	})
	res, err := g.Complete(context.Background(), []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "answer", res.Text)
}

func TestGroupChatterAllFail(t *testing.T) {
	g := NewGroupChatter([]ChatterEntry{
		{Name: "only", Chatter: &stubChatter{err: fmt.Errorf("boom")}},
	})
	_, err := g.Complete(context.Background(), nil)
	require.Error(t, err)
}

func TestGroupChatterEmpty(t *testing.T) {
	g := NewGroupChatter(nil)
	_, err := g.Complete(context.Background(), nil)
	require.Error(t, err)
}

func TestGroupEmbedderFailover(t *testing.T) {
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "first", Embedder: &stubEmbedder{name: "m1", err: fmt.Errorf("boom")}},
		{Name: "second", Embedder: &stubEmbedder{name: "m2", vec: []float32{1, 2}}},
	})
	vec, err := g.Embed(context.Background(), "some text", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, "m1|m2", g.ModelName())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("openai", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())

	_, err = NewProvider("nope", nil)
	require.Error(t, err)
}
