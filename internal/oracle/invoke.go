package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"noesis/internal/logging"
)

// Invoker obtains a structured response from the oracle and decodes it into
// out. The two implementations differ only in how structure is negotiated;
// callers never branch on provider capability themselves.
type Invoker interface {
	Invoke(ctx context.Context, req Request, schema Schema, out interface{}) (Usage, error)
}

// NewInvoker selects the invocation path once, at construction. Schema-capable
// clients get the tool path; everything else falls back to instruction-guided
// free text. The choice never changes for the lifetime of the invoker.
func NewInvoker(client Client) Invoker {
	if client.SchemaCapable() {
		return &ToolInvoker{client: client}
	}
	return &TextInvoker{client: client}
}

// ToolInvoker submits the schema as a single forced tool and decodes the
// tool call's input.
type ToolInvoker struct {
	client Client
}

// Invoke sends the request with the schema as a tool definition. If the
// oracle replies without calling the tool, one retry is made with a firmer
// instruction; after that the response is a parse failure.
func (v *ToolInvoker) Invoke(ctx context.Context, req Request, schema Schema, out interface{}) (Usage, error) {
	tools := []ToolDefinition{schema.ToToolDefinition()}

	var usage Usage
	for attempt := 0; attempt < 2; attempt++ {
		attemptReq := req
		if attempt > 0 {
			attemptReq.User = req.User + "\n\nYou MUST respond by calling the " + schema.Name + " tool."
		}

		resp, err := v.client.CompleteWithTools(ctx, attemptReq, tools)
		if err != nil {
			return usage, err
		}
		usage.Add(resp.Usage)

		call, ok := findToolCall(resp.ToolCalls, schema.Name)
		if !ok {
			logging.OracleWarn("invoke: no %s tool call in response (attempt %d), stop_reason=%s",
				schema.Name, attempt+1, resp.StopReason)
			continue
		}
		if err := decodeInput(call.Input, out); err != nil {
			logging.OracleWarn("invoke: %s tool input did not decode (attempt %d): %v",
				schema.Name, attempt+1, err)
			continue
		}
		return usage, nil
	}
	return usage, fmt.Errorf("tool path exhausted for %s: %w", schema.Name, ErrParse)
}

// TextInvoker renders the schema as prompt instructions and recovers the
// JSON payload from free text.
type TextInvoker struct {
	client Client
}

// Invoke appends field-by-field instructions to the prompt and climbs a
// parse ladder over the reply: direct decode, fence stripping, then
// embedded-candidate extraction. One retry before giving up.
func (v *TextInvoker) Invoke(ctx context.Context, req Request, schema Schema, out interface{}) (Usage, error) {
	var usage Usage
	for attempt := 0; attempt < 2; attempt++ {
		attemptReq := req
		attemptReq.User = req.User + "\n\n" + schema.RenderInstructions()
		if attempt > 0 {
			attemptReq.User += "\nYour previous response was not parseable. Respond with the JSON object only."
		}

		reply, err := v.client.Complete(ctx, attemptReq)
		if err != nil {
			return usage, err
		}
		usage.Add(reply.Usage)

		if err := decodeText(reply.Text, out); err != nil {
			logging.OracleWarn("invoke: %s free-text reply did not decode (attempt %d): %v",
				schema.Name, attempt+1, err)
			continue
		}
		return usage, nil
	}
	return usage, fmt.Errorf("text path exhausted for %s: %w", schema.Name, ErrParse)
}

func findToolCall(calls []ToolCall, name string) (ToolCall, bool) {
	for _, call := range calls {
		if call.Name == name {
			return call, true
		}
	}
	return ToolCall{}, false
}

// decodeInput round-trips the tool input map through JSON into the typed
// destination.
func decodeInput(input map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("re-encode tool input: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode tool input: %w", err)
	}
	return nil
}

// decodeText climbs the parse ladder: direct decode, markdown fence strip,
// then scanning for embedded JSON candidates.
func decodeText(text string, out interface{}) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	if stripped, ok := stripFences(trimmed); ok {
		if err := json.Unmarshal([]byte(stripped), out); err == nil {
			return nil
		}
	}

	for _, candidate := range findJSONCandidates(trimmed) {
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no decodable JSON in %d-byte reply", len(text))
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	// Drop the opening fence line (which may carry a language tag).
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s, false
	}
	body := s[nl+1:]
	end := strings.LastIndex(body, "```")
	if end < 0 {
		return s, false
	}
	return strings.TrimSpace(body[:end]), true
}
