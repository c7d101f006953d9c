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

// GeminiClient implements Client for the Google Gemini generateContent API.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Model:   "gemini-2.0-flash",
		Timeout: 2 * time.Minute,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Complete sends a request and returns the text reply.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return &Reply{
		Text:  strings.TrimSpace(text.String()),
		Usage: geminiUsage(resp),
	}, nil
}

// CompleteWithTools sends a request with function declarations and returns
// the reply with any function calls.
func (c *GeminiClient) CompleteWithTools(ctx context.Context, req Request, tools []ToolDefinition) (*ToolResponse, error) {
	resp, err := c.send(ctx, req, tools)
	if err != nil {
		return nil, err
	}

	candidate := resp.Candidates[0]
	result := &ToolResponse{
		StopReason: candidate.FinishReason,
		Usage:      geminiUsage(resp),
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	result.Text = strings.TrimSpace(text.String())
	return result, nil
}

func (c *GeminiClient) send(ctx context.Context, req Request, tools []ToolDefinition) (*GeminiResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured: %w", ErrAuth)
	}

	startTime := time.Now()
	logging.OracleDebug("[Gemini] send: model=%s tools=%d system_len=%d user_len=%d temp=%.2f",
		c.model, len(tools), len(req.System), len(req.User), req.Temperature)

	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	body := GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: req.User}}},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: req.System}}}
	}
	if len(tools) > 0 {
		declarations := make([]GeminiFunctionDeclaration, len(tools))
		for i, t := range tools {
			declarations[i] = GeminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			}
		}
		body.Tools = []GeminiTool{{FunctionDeclarations: declarations}}
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
				logging.OracleError("[Gemini] send failed after %v: %v", time.Since(startTime), err)
				return nil, err
			}
			lastErr = err
			continue
		}

		logging.Oracle("[Gemini] send: completed in %v finish_reason=%s tokens=%d/%d",
			time.Since(startTime), resp.Candidates[0].FinishReason,
			resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
		return resp, nil
	}

	logging.OracleError("[Gemini] send: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *GeminiClient) roundTrip(ctx context.Context, jsonData []byte) (*GeminiResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

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

	var parsed GeminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}
	return &parsed, nil
}

func geminiUsage(resp *GeminiResponse) Usage {
	return Usage{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  resp.UsageMetadata.TotalTokenCount,
	}
}

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// Model returns the current model.
func (c *GeminiClient) Model() string {
	return c.model
}

// SchemaCapable reports whether this client supports schema-constrained
// output. The generateContent API accepts function declarations but will
// not force a call to a specific one, so structured payloads are not
// guaranteed; callers should use instruction-guided output instead.
func (c *GeminiClient) SchemaCapable() bool {
	return false
}
