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

// AnthropicBackend implements the Backend interface for Anthropic
// Claude via the messages API, with tool-use blocks.
type AnthropicBackend struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// AnthropicConfig configures the Anthropic backend.
type AnthropicConfig struct {
	APIKey  string // Required: Anthropic API key
	BaseURL string // Default: https://api.anthropic.com
	Model   string // e.g., "claude-sonnet-4-20250514"
	Timeout int    // Timeout in seconds (default: 120)
}

// NewAnthropicBackend creates a new Anthropic backend.
func NewAnthropicBackend(config AnthropicConfig) *AnthropicBackend {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120
	}

	return &AnthropicBackend{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   config.Model,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// Name returns the backend name.
func (b *AnthropicBackend) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock is one content block: text, tool_use, or tool_result.
type anthropicBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Role       string           `json:"role"`
	Content    []anthropicBlock `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements the Backend interface.
func (b *AnthropicBackend) Complete(ctx context.Context, req Request) (Response, error) {
	systemPrompt, messages := b.convertMessages(req.Messages)

	model := req.Model
	if model == "" {
		model = b.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	tools := make([]anthropicTool, 0, len(req.Tools))
	for _, spec := range req.Tools {
		tools = append(tools, anthropicTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.Parameters,
		})
	}

	anthropicReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      systemPrompt,
		Temperature: req.Temperature,
		Tools:       tools,
	}

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

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

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return Response{}, fmt.Errorf("%s: %s", anthropicResp.Error.Type, anthropicResp.Error.Message)
	}

	var content string
	var calls []message.ToolCall
	for _, block := range anthropicResp.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			calls = append(calls, message.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return Response{
		ID:         anthropicResp.ID,
		Model:      anthropicResp.Model,
		Message:    message.NewAssistantToolCalls(content, calls),
		StopReason: anthropicResp.StopReason,
		Usage: Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}

// convertMessages maps log messages to the wire shape: the system
// message becomes the top-level system field, assistant tool calls
// become tool_use blocks, and consecutive tool results are grouped into
// a single user message of tool_result blocks.
func (b *AnthropicBackend) convertMessages(msgs []message.Message) (string, []anthropicMessage) {
	var systemPrompt string
	var out []anthropicMessage
	var pendingResults []anthropicBlock

	flushResults := func() {
		if len(pendingResults) == 0 {
			return
		}
		out = append(out, anthropicMessage{Role: "user", Content: pendingResults})
		pendingResults = nil
	}

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompt = msg.Content

		case message.RoleTool:
			pendingResults = append(pendingResults, anthropicBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			})

		case message.RoleAssistant:
			flushResults()
			var blocks []anthropicBlock
			if msg.Content != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropicBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})

		default:
			flushResults()
			out = append(out, anthropicMessage{
				Role:    string(msg.Role),
				Content: []anthropicBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}
	flushResults()

	return systemPrompt, out
}
