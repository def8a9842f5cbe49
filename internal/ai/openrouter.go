package ai

import (
	"context"
	"fmt"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

func init() {
	register("openrouter", createOpenRouterProvider)
}

type openRouterConfig struct {
	APIKey  string `json:"api_key"`
	Referer string `json:"referer"`
	Title   string `json:"title"`
}

// openRouterProvider speaks the openai wire format against openrouter.
type openRouterProvider struct {
	openAIProvider
}

func createOpenRouterProvider(args interface{}) (IProvider, error) {
	c := &openRouterConfig{}
	if err := decodeConfig(args, c); err != nil {
		return nil, err
	}
	headers := make(map[string]string)
	if c.Referer != "" {
		headers["HTTP-Referer"] = c.Referer
	}
	if c.Title != "" {
		headers["X-Title"] = c.Title
	}
	return &openRouterProvider{openAIProvider{
		apiKey:  c.APIKey,
		baseURL: defaultOpenRouterBaseURL,
		headers: headers,
	}}, nil
}

func (p *openRouterProvider) Name() string {
	return "openrouter"
}

// Embed is not served by openrouter; pair it with another provider for
// embeddings.
func (p *openRouterProvider) Embed(ctx context.Context, modelName string, input string, taskType string) ([]float32, error) {
	return nil, fmt.Errorf("openrouter does not provide embeddings")
}
