package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/noterag/internal/model"
	"google.golang.org/genai"
)

func init() {
	register("gemini", createGeminiProvider)
}

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func createGeminiProvider(args interface{}) (IProvider, error) {
	c := &geminiConfig{}
	if err := decodeConfig(args, c); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: c.APIKey}, nil
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// splitContents maps OpenAI-style roles onto the gemini API: system messages
// merge into the system instruction, assistant becomes the model role.
func splitContents(messages []model.ChatMessage) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var system []string
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
		case model.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	return contents, instruction
}

func (p *geminiProvider) Complete(ctx context.Context, modelName string, messages []model.ChatMessage, opts CompleteOptions) (*Completion, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents, instruction := splitContents(messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user content to send")
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(opts.Temperature),
		SystemInstruction: instruction,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	rsp, err := client.Models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	res := &Completion{Text: rsp.Text()}
	if um := rsp.UsageMetadata; um != nil {
		res.Usage = model.Usage{
			PromptTokens:     int(um.PromptTokenCount),
			CompletionTokens: int(um.CandidatesTokenCount),
			TotalTokens:      int(um.TotalTokenCount),
		}
	}
	return res, nil
}

func (p *geminiProvider) Embed(ctx context.Context, modelName string, input string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.EmbedContentConfig{}
	if taskType != "" {
		cfg.TaskType = taskType
	}
	rsp, err := client.Models.EmbedContent(ctx, modelName, genai.Text(input), cfg)
	if err != nil {
		return nil, fmt.Errorf("call gemini embed: %w", err)
	}
	if len(rsp.Embeddings) == 0 || len(rsp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed response has no values")
	}
	return rsp.Embeddings[0].Values, nil
}
