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

// OpenAIClient implements Client for OpenAI-compatible chat completion
// endpoints.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
		Timeout: 2 * time.Minute,
	}
}

// NewOpenAIClient creates a new OpenAI client with default config.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom config.
func NewOpenAIClientWithConfig(config OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Complete sends a request and returns the text reply.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: openAIUsage(resp),
	}, nil
}

// CompleteWithTools sends a request with tool definitions and returns the
// reply with any tool calls.
func (c *OpenAIClient) CompleteWithTools(ctx context.Context, req Request, tools []ToolDefinition) (*ToolResponse, error) {
	resp, err := c.send(ctx, req, tools)
	if err != nil {
		return nil, err
	}

	choice := resp.Choices[0]
	result := &ToolResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: choice.FinishReason,
		Usage:      openAIUsage(resp),
	}
	for _, call := range choice.Message.ToolCalls {
		// Arguments arrive as a JSON string, unlike Anthropic's object form.
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
			logging.OracleWarn("[OpenAI] malformed tool arguments for %s: %v", call.Function.Name, err)
			continue
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	return result, nil
}

func (c *OpenAIClient) send(ctx context.Context, req Request, tools []ToolDefinition) (*OpenAIResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured: %w", ErrAuth)
	}

	startTime := time.Now()
	logging.OracleDebug("[OpenAI] send: model=%s tools=%d system_len=%d user_len=%d temp=%.2f",
		c.model, len(tools), len(req.System), len(req.User), req.Temperature)

	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	messages := []OpenAIMessage{}
	if req.System != "" {
		messages = append(messages, OpenAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, OpenAIMessage{Role: "user", Content: req.User})

	body := OpenAIRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if len(tools) > 0 {
		body.Tools = make([]OpenAITool, len(tools))
		for i, t := range tools {
			body.Tools[i] = OpenAITool{
				Type: "function",
				Function: OpenAIFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			}
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
				logging.OracleError("[OpenAI] send failed after %v: %v", time.Since(startTime), err)
				return nil, err
			}
			lastErr = err
			continue
		}

		logging.Oracle("[OpenAI] send: completed in %v finish_reason=%s tokens=%d/%d",
			time.Since(startTime), resp.Choices[0].FinishReason,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return resp, nil
	}

	logging.OracleError("[OpenAI] send: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *OpenAIClient) roundTrip(ctx context.Context, jsonData []byte) (*OpenAIResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var parsed OpenAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}
	return &parsed, nil
}

func openAIUsage(resp *OpenAIResponse) Usage {
	return Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
}

// SetModel changes the model used for completions.
func (c *OpenAIClient) SetModel(model string) {
	c.model = model
}

// Model returns the current model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// SchemaCapable reports whether this client supports schema-constrained
// output via function calling.
func (c *OpenAIClient) SchemaCapable() bool {
	return true
}
