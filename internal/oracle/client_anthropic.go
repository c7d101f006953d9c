package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"noesis/internal/logging"
)

// AnthropicClient implements Client for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.anthropic.com/v1",
		Model:   "claude-sonnet-4-5",
		Timeout: 2 * time.Minute,
	}
}

// NewAnthropicClient creates a new Anthropic client with default config.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return NewAnthropicClientWithConfig(DefaultAnthropicConfig(apiKey))
}

// NewAnthropicClientWithConfig creates a new Anthropic client with custom config.
func NewAnthropicClientWithConfig(config AnthropicConfig) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// maxRetries is the attempt ceiling for transient failures. Backoff is
// exponential: 1s, 2s, 4s.
const maxRetries = 3

// Complete sends a request and returns the text reply.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Reply{
		Text:  strings.TrimSpace(text.String()),
		Usage: anthropicUsage(resp),
	}, nil
}

// CompleteWithTools sends a request with tool definitions and returns the
// reply with any tool calls.
func (c *AnthropicClient) CompleteWithTools(ctx context.Context, req Request, tools []ToolDefinition) (*ToolResponse, error) {
	resp, err := c.send(ctx, req, tools)
	if err != nil {
		return nil, err
	}

	result := &ToolResponse{
		StopReason: resp.StopReason,
		Usage:      anthropicUsage(resp),
	}
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	result.Text = strings.TrimSpace(text.String())
	return result, nil
}

// send posts one Messages request, retrying transient failures with
// exponential backoff.
func (c *AnthropicClient) send(ctx context.Context, req Request, tools []ToolDefinition) (*AnthropicResponse, error) {
	// Auto-apply timeout if context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured: %w", ErrAuth)
	}

	startTime := time.Now()
	logging.OracleDebug("[Anthropic] send: model=%s tools=%d system_len=%d user_len=%d temp=%.2f",
		c.model, len(tools), len(req.System), len(req.User), req.Temperature)

	// Rate limiting: keep a minimum spacing between requests.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body := AnthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []AnthropicMessage{{Role: "user", Content: req.User}},
		Temperature: req.Temperature,
	}
	if len(tools) > 0 {
		body.Tools = make([]AnthropicTool, len(tools))
		for i, t := range tools {
			body.Tools[i] = AnthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
		}
		// A single schema tool means the caller wants that payload, not prose.
		if len(tools) == 1 {
			body.ToolChoice = &AnthropicToolChoice{Type: "tool", Name: tools[0].Name}
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.roundTrip(ctx, jsonData)
		if err != nil {
			if !isTransient(err) {
				logging.OracleError("[Anthropic] send failed after %v: %v", time.Since(startTime), err)
				return nil, err
			}
			lastErr = err
			continue
		}

		logging.Oracle("[Anthropic] send: completed in %v stop_reason=%s tokens=%d/%d",
			time.Since(startTime), resp.StopReason, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		return resp, nil
	}

	logging.OracleError("[Anthropic] send: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// roundTrip performs a single HTTP exchange.
func (c *AnthropicClient) roundTrip(ctx context.Context, jsonData []byte) (*AnthropicResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp.StatusCode, string(respBody))
	}

	var parsed AnthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}
	return &parsed, nil
}

func anthropicUsage(resp *AnthropicResponse) Usage {
	return Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
}

// SetModel changes the model used for completions.
func (c *AnthropicClient) SetModel(model string) {
	c.model = model
}

// Model returns the current model.
func (c *AnthropicClient) Model() string {
	return c.model
}

// SchemaCapable reports whether this client supports schema-constrained
// output. Anthropic supports it via native tool calling.
func (c *AnthropicClient) SchemaCapable() bool {
	return true
}
