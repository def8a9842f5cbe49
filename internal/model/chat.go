package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ContextChunk is the caller-facing view of a retrieved chunk.
type ContextChunk struct {
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	Heading    string `json:"heading"`
}

type ChatResult struct {
	Message       string         `json:"message"`
	Usage         Usage          `json:"usage"`
	ContextChunks []ContextChunk `json:"context_chunks"`
}
