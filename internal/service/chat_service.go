package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/noterag/internal/ai"
	"github.com/xxxsen/noterag/internal/model"
	appErr "github.com/xxxsen/noterag/internal/pkg/errors"
	"github.com/xxxsen/noterag/internal/vectorstore"
)

// retrievalTopK is how many chunks back a single answer.
const retrievalTopK = 5

const contextSystemPrompt = `You are a helpful AI assistant with access to the user's personal knowledge base.

Use the following context from their documents to answer questions. If the context doesn't contain relevant information, say so and answer based on your general knowledge.

Context from user's documents:%s

Provide clear, helpful answers based on this context when relevant.`

type ChatService struct {
	chatter           ai.IChatter
	embedder          ai.IEmbedder
	index             *vectorstore.Store
	queryTimeout      time.Duration
	completionTimeout time.Duration
}

// NewChatService wires the serving path. index may be nil when no collection
// exists yet; the service then answers without retrieval.
func NewChatService(chatter ai.IChatter, embedder ai.IEmbedder, index *vectorstore.Store, queryTimeout time.Duration, completionTimeout time.Duration) *ChatService {
	return &ChatService{
		chatter:           chatter,
		embedder:          embedder,
		index:             index,
		queryTimeout:      queryTimeout,
		completionTimeout: completionTimeout,
	}
}

// retrievedContext keeps the no-context outcome explicit: an empty prompt
// means the conversation goes out unmodified.
type retrievedContext struct {
	chunks []model.ContextChunk
	prompt string
}

func (s *ChatService) Chat(ctx context.Context, messages []model.ChatMessage) (*model.ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: no messages provided", appErr.ErrInvalid)
	}
	retrieved := s.retrieve(ctx, messages)

	msgs := messages
	if retrieved.prompt != "" {
		system := model.ChatMessage{
			Role:    model.RoleSystem,
			Content: fmt.Sprintf(contextSystemPrompt, retrieved.prompt),
		}
		msgs = append([]model.ChatMessage{system}, messages...)
	}

	callCtx := ctx
	if s.completionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.completionTimeout)
		defer cancel()
	}
	completion, err := s.chatter.Complete(callCtx, msgs)
	if err != nil {
		logutil.GetLogger(ctx).Error("chat completion failed", zap.Error(err))
		return nil, err
	}
	return &model.ChatResult{
		Message:       completion.Text,
		Usage:         completion.Usage,
		ContextChunks: retrieved.chunks,
	}, nil
}

// retrieve embeds the latest user message and collects the nearest chunks.
// Every failure path degrades to an empty result; serving never breaks on a
// cold or unreachable index.
func (s *ChatService) retrieve(ctx context.Context, messages []model.ChatMessage) retrievedContext {
	out := retrievedContext{chunks: make([]model.ContextChunk, 0)}
	if s.index == nil || s.embedder == nil {
		return out
	}
	query := lastUserMessage(messages)
	if query == "" {
		return out
	}
	logger := logutil.GetLogger(ctx)

	callCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	emb, err := s.embedder.Embed(callCtx, ai.PlainText(query), ai.TaskTypeQuery)
	if err != nil {
		logger.Warn("query embedding failed, answering without context", zap.Error(err))
		return out
	}
	hits, err := s.index.Query(callCtx, emb, retrievalTopK)
	if err != nil {
		logger.Warn("index lookup failed, answering without context", zap.Error(err))
		return out
	}

	var prompt strings.Builder
	for i, hit := range hits {
		source, ok := hit.Metadata["source_file"]
		if !ok {
			source = "Unknown"
		}
		heading, ok := hit.Metadata["heading"]
		if !ok {
			heading = "No heading"
		}
		out.chunks = append(out.chunks, model.ContextChunk{
			Text:       hit.Text,
			SourceFile: source,
			Heading:    heading,
		})
		fmt.Fprintf(&prompt, "\n\n--- Context %d ---\n%s", i+1, hit.Text)
	}
	out.prompt = prompt.String()
	return out
}

func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
