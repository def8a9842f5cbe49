package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xxxsen/noterag/internal/model"
)

// ErrUnavailable marks a provider that cannot serve a request right now,
// e.g. missing credentials. Group wrappers skip to the next candidate.
var ErrUnavailable = errors.New("ai provider unavailable")

const (
	// TaskTypeDocument is used when embedding chunks for indexing.
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	// TaskTypeQuery is used when embedding a user query for retrieval.
	TaskTypeQuery = "RETRIEVAL_QUERY"
)

// CompleteOptions carries per-request generation knobs.
type CompleteOptions struct {
	Temperature float32
	MaxTokens   int
}

// Completion is the provider-level chat result.
type Completion struct {
	Text  string
	Usage model.Usage
}

// IProvider is a chat/embedding backend.
type IProvider interface {
	Name() string
	Complete(ctx context.Context, modelName string, messages []model.ChatMessage, opts CompleteOptions) (*Completion, error)
	Embed(ctx context.Context, modelName string, input string, taskType string) ([]float32, error)
}

type factory func(args interface{}) (IProvider, error)

var providerFactories = make(map[string]factory)

func register(name string, fn factory) {
	providerFactories[name] = fn
}

// NewProvider builds a registered provider by name with its raw config args.
func NewProvider(name string, args interface{}) (IProvider, error) {
	fn, ok := providerFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return fn(args)
}

func decodeConfig(args interface{}, out interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal provider args: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal provider args: %w", err)
	}
	return nil
}

// IChatter is a provider bound to one chat model and fixed options.
type IChatter interface {
	Complete(ctx context.Context, messages []model.ChatMessage) (*Completion, error)
}

// IEmbedder is a provider bound to one embedding model.
type IEmbedder interface {
	Embed(ctx context.Context, input string, taskType string) ([]float32, error)
	ModelName() string
}

type boundChatter struct {
	provider  IProvider
	modelName string
	opts      CompleteOptions
}

// NewChatter binds a provider to a chat model and generation options.
func NewChatter(p IProvider, modelName string, opts CompleteOptions) IChatter {
	return &boundChatter{provider: p, modelName: modelName, opts: opts}
}

func (c *boundChatter) Complete(ctx context.Context, messages []model.ChatMessage) (*Completion, error) {
	return c.provider.Complete(ctx, c.modelName, messages, c.opts)
}

type boundEmbedder struct {
	provider  IProvider
	modelName string
}

// NewEmbedder binds a provider to an embedding model.
func NewEmbedder(p IProvider, modelName string) IEmbedder {
	return &boundEmbedder{provider: p, modelName: modelName}
}

func (e *boundEmbedder) Embed(ctx context.Context, input string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.modelName, input, taskType)
}

func (e *boundEmbedder) ModelName() string {
	return e.modelName
}
