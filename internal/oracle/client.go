// Package oracle mediates every request to the external reasoning service.
// It provides provider clients over a common interface and the structured
// output negotiation used by the explorer and enrichment stages.
package oracle

import "context"

// Request carries one oracle exchange. Temperature and MaxTokens are set
// explicitly by every caller; a zero temperature is a deliberate choice
// (the foundation probe runs at minimal randomness), not an unset default.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Usage captures token usage metrics from the oracle.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Reply is a plain text completion.
type Reply struct {
	Text  string
	Usage Usage
}

// ToolDefinition describes a callable tool the oracle may invoke.
// The structured-output path submits the response schema as a single tool.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the oracle.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResponse contains both text and tool calls from the oracle.
type ToolResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// Client is the interface every provider implements.
type Client interface {
	// Complete sends a request and returns the text reply.
	Complete(ctx context.Context, req Request) (*Reply, error)
	// CompleteWithTools sends a request with tool definitions and returns
	// the reply with any tool calls.
	CompleteWithTools(ctx context.Context, req Request, tools []ToolDefinition) (*ToolResponse, error)
	// SchemaCapable reports whether the provider supports native tool or
	// schema-constrained output. Providers that do not must go through the
	// free-text fallback path.
	SchemaCapable() bool
	// Model returns the model identifier in use.
	Model() string
}
