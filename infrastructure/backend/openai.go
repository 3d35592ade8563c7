package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/gateway-go/domain/message"
)

// OpenAIBackend implements the Backend interface for OpenAI chat
// completions, with function tool calls.
type OpenAIBackend struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string // Required: OpenAI API key
	BaseURL string // Default: https://api.openai.com
	Model   string // e.g., "gpt-4o"
	Timeout int    // Timeout in seconds (default: 120)
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(config OpenAIConfig) *OpenAIBackend {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120
	}

	return &OpenAIBackend{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   config.Model,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// Name returns the backend name.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete implements the Backend interface.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openAIMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertOpenAIMessage(msg))
	}

	model := req.Model
	if model == "" {
		model = b.model
	}

	tools := make([]openAITool, 0, len(req.Tools))
	for _, spec := range req.Tools {
		tools = append(tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}

	openAIReq := openAIChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tools:       tools,
	}

	body, err := json.Marshal(openAIReq)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, classifyAPIError(b.Name(), resp.StatusCode, respBody)
	}

	var openAIResp openAIChatResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if openAIResp.Error != nil {
		return Response{}, fmt.Errorf("%s: %s", openAIResp.Error.Type, openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}

	choice := openAIResp.Choices[0]
	calls := make([]message.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, call := range choice.Message.ToolCalls {
		calls = append(calls, message.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}

	return Response{
		ID:         openAIResp.ID,
		Model:      openAIResp.Model,
		Message:    message.NewAssistantToolCalls(choice.Message.Content, calls),
		StopReason: choice.FinishReason,
		Usage:      openAIResp.Usage,
	}, nil
}

// convertOpenAIMessage maps one log message to the wire shape.
func convertOpenAIMessage(msg message.Message) openAIMessage {
	out := openAIMessage{
		Role:    string(msg.Role),
		Content: msg.Content,
	}
	if msg.IsToolResult() {
		out.ToolCallID = msg.ToolCallID
		out.Name = msg.ToolName
	}
	for _, call := range msg.ToolCalls {
		args := string(call.Arguments)
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, openAIToolCall{
			ID:   call.ID,
			Type: "function",
			Function: openAIFunctionCall{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return out
}
