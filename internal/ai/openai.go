package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xxxsen/noterag/internal/model"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

func init() {
	register("openai", createOpenAIProvider)
}

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type openAIProvider struct {
	apiKey  string
	baseURL string
	headers map[string]string
}

func createOpenAIProvider(args interface{}) (IProvider, error) {
	c := &openAIConfig{}
	if err := decodeConfig(args, c); err != nil {
		return nil, err
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{apiKey: c.APIKey, baseURL: strings.TrimRight(c.BaseURL, "/")}, nil
}

func (p *openAIProvider) Name() string {
	return "openai"
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float32             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage openAIUsage `json:"usage"`
}

func (p *openAIProvider) Complete(ctx context.Context, modelName string, messages []model.ChatMessage, opts CompleteOptions) (*Completion, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	msgs := make([]openAIChatMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openAIChatMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := openAIChatRequest{
		Model:       modelName,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	data, err := p.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}
	res := &openAIChatResponse{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}
	return &Completion{
		Text: res.Choices[0].Message.Content,
		Usage: model.Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	}, nil
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Embed(ctx context.Context, modelName string, input string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	data, err := p.post(ctx, "/embeddings", openAIEmbedRequest{Model: modelName, Input: input})
	if err != nil {
		return nil, err
	}
	res := &openAIEmbedResponse{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("embed response has no data")
	}
	return res.Data[0].Embedding, nil
}

func (p *openAIProvider) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	rsp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call openai: %w", err)
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai status %d: %s", rsp.StatusCode, truncateBody(data))
	}
	return data, nil
}

func truncateBody(data []byte) string {
	const limit = 512
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
