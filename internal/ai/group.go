package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/noterag/internal/model"
	"go.uber.org/zap"
)

// ChatterEntry names one chat candidate inside a group.
type ChatterEntry struct {
	Name    string
	Chatter IChatter
}

type groupChatter struct {
	items []ChatterEntry
}

// NewGroupChatter tries each candidate in order until one answers.
func NewGroupChatter(items []ChatterEntry) IChatter {
	return &groupChatter{items: items}
}

func (g *groupChatter) Complete(ctx context.Context, messages []model.ChatMessage) (*Completion, error) {
	var lastErr error
	for _, item := range g.items {
		res, err := item.Chatter.Complete(ctx, messages)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("chat candidate failed, trying next",
			zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no chat candidates configured")
	}
	return nil, fmt.Errorf("all chat candidates failed: %w", lastErr)
}

// EmbedderEntry names one embedding candidate inside a group.
type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupEmbedder struct {
	items []EmbedderEntry
}

// NewGroupEmbedder tries each candidate in order until one answers.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, input string, taskType string) ([]float32, error) {
	var lastErr error
	for _, item := range g.items {
		emb, err := item.Embedder.Embed(ctx, input, taskType)
		if err == nil {
			return emb, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embed candidate failed, trying next",
			zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no embed candidates configured")
	}
	return nil, fmt.Errorf("all embed candidates failed: %w", lastErr)
}

func (g *groupEmbedder) ModelName() string {
	seen := make(map[string]struct{}, len(g.items))
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		n := item.Embedder.ModelName()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return strings.Join(names, "|")
}
