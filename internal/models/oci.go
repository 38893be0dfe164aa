package models

import "encoding/json"

// OCI API formats.
const (
	APIFormatGeneric = "GENERIC"
	APIFormatCohere  = "COHERE"
)

// OCI GENERIC roles.
const (
	OCIRoleSystem    = "SYSTEM"
	OCIRoleUser      = "USER"
	OCIRoleAssistant = "ASSISTANT"
	OCIRoleTool      = "TOOL"
	// CohereRoleChatbot is the assistant role in the COHERE format.
	CohereRoleChatbot = "CHATBOT"
)

// UpstreamRequest is the body of POST /20231130/actions/chat.
type UpstreamRequest struct {
	CompartmentID string         `json:"compartmentId"`
	ServingMode   ServingMode    `json:"servingMode"`
	ChatRequest   OCIChatRequest `json:"chatRequest"`
}

type ServingMode struct {
	ServingType string `json:"servingType"`
	ModelID     string `json:"modelId,omitempty"`
	EndpointID  string `json:"endpointId,omitempty"`
}

// OCIChatRequest covers both the GENERIC and the COHERE request formats.
type OCIChatRequest struct {
	APIFormat string `json:"apiFormat"`

	Messages       []OCIMessage   `json:"messages,omitempty"`
	NumGenerations *int           `json:"numGenerations,omitempty"`
	Stop           []string       `json:"stop,omitempty"`
	Tools          []OCITool      `json:"tools,omitempty"`
	ToolChoice     *OCIToolChoice `json:"toolChoice,omitempty"`

	Message          string          `json:"message,omitempty"`
	ChatHistory      []CohereMessage `json:"chatHistory,omitempty"`
	PreambleOverride string          `json:"preambleOverride,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`

	MaxTokens        int               `json:"maxTokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"topP,omitempty"`
	TopK             *int              `json:"topK,omitempty"`
	FrequencyPenalty *float64          `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64          `json:"presencePenalty,omitempty"`
	Seed             *int              `json:"seed,omitempty"`
	IsStream         bool              `json:"isStream"`
	StreamOptions    *OCIStreamOptions `json:"streamOptions,omitempty"`
}

type OCIMessage struct {
	Role       string        `json:"role"`
	Content    []OCIContent  `json:"content,omitempty"`
	Name       string        `json:"name,omitempty"`
	ToolCalls  []OCIToolCall `json:"toolCalls,omitempty"`
	ToolCallID string        `json:"toolCallId,omitempty"`
}

type OCIContent struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *OCIImageURL `json:"imageUrl,omitempty"`
}

type OCIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type OCIToolCall struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type OCITool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type OCIToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type CohereMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	// ToolCallID links a TOOL turn to the call it answers.
	ToolCallID string `json:"toolCallId,omitempty"`
}

type OCIStreamOptions struct {
	IsIncludeUsage bool `json:"isIncludeUsage"`
}

// UpstreamResponse is the non-streaming chat reply.
type UpstreamResponse struct {
	ModelID      string           `json:"modelId"`
	ModelVersion string           `json:"modelVersion"`
	ChatResponse *OCIChatResponse `json:"chatResponse"`
}

type OCIChatResponse struct {
	APIFormat    string        `json:"apiFormat"`
	TimeCreated  string        `json:"timeCreated,omitempty"`
	Choices      []OCIChoice   `json:"choices,omitempty"`
	Text         string        `json:"text,omitempty"`
	FinishReason string        `json:"finishReason,omitempty"`
	ToolCalls    []OCIToolCall `json:"toolCalls,omitempty"`
	Usage        *OCIUsage     `json:"usage,omitempty"`
}

type OCIChoice struct {
	Index        int        `json:"index"`
	Message      OCIMessage `json:"message"`
	FinishReason string     `json:"finishReason"`
}

type OCIUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// UpstreamEvent is one decoded event of an OCI chat stream.
type UpstreamEvent struct {
	Text      string
	ToolCalls []OCIToolCall
	// FinishReason is the raw upstream reason; Terminal is set whenever the event carried one.
	FinishReason string
	Terminal     bool
	Usage        *OCIUsage
}
