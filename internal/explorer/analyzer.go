package explorer

import (
	"context"
	"fmt"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/oracle"
)

// Analysis is the structured reading of a free-form learning request.
type Analysis struct {
	CoreConcept string `json:"core_concept"`
	Domain      string `json:"domain"`
	Level       string `json:"level"`
	Goal        string `json:"goal"`
}

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

var analysisSchema = oracle.Schema{
	Name:        "record_analysis",
	Description: "Record the analysis of the learner's request.",
	Properties: []oracle.Property{
		{Name: "core_concept", Type: "string", Description: "the main concept to explain, as specific as possible", Required: true},
		{Name: "domain", Type: "string", Description: "scientific or mathematical domain, e.g. physics/quantum mechanics", Required: true},
		{Name: "level", Type: "string", Description: "one of: beginner, intermediate, advanced", Required: true},
		{Name: "goal", Type: "string", Description: "what the learner wants to achieve", Required: true},
	},
}

// Analyzer extracts the core concept and learning context from user input.
type Analyzer struct {
	invoker oracle.Invoker
}

// NewAnalyzer creates an Analyzer over the given oracle client.
func NewAnalyzer(client oracle.Client) *Analyzer {
	return &Analyzer{invoker: oracle.NewInvoker(client)}
}

// Analyze parses a learning request into its core concept, domain, level,
// and goal. An out-of-range level degrades to intermediate rather than
// failing the request.
func (a *Analyzer) Analyze(ctx context.Context, input string) (*Analysis, error) {
	var analysis Analysis
	_, err := a.invoker.Invoke(ctx, oracle.Request{
		System:      analyzerSystemPrompt,
		User:        fmt.Sprintf("User asked: %q", input),
		Temperature: 0.3,
		MaxTokens:   500,
	}, analysisSchema, &analysis)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}

	analysis.CoreConcept = strings.TrimSpace(analysis.CoreConcept)
	if analysis.CoreConcept == "" {
		// Without a concept there is nothing to explore; fall back to the
		// raw input.
		analysis.CoreConcept = strings.TrimSpace(input)
	}
	analysis.Level = normalizeLevel(analysis.Level)

	logging.Explorer("analyzed request: concept=%q domain=%q level=%s",
		analysis.CoreConcept, analysis.Domain, analysis.Level)
	return &analysis, nil
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelBeginner:
		return LevelBeginner
	case LevelAdvanced:
		return LevelAdvanced
	default:
		return LevelIntermediate
	}
}
