// Package enrich layers mathematical content, visual plans, and a narrative
// onto an explored knowledge tree. The stages run in a fixed order: math
// first (each node independent), then visual design (parent before child for
// continuity), then narrative composition over the finished tree.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/oracle"
	"noesis/internal/tree"
)

const (
	mathTemperature = 0.4
	mathMaxTokens   = 2000
)

var mathSchema = oracle.Schema{
	Name:        "record_math_content",
	Description: "Record the mathematical content for a concept.",
	Properties: []oracle.Property{
		{Name: "equations", Type: "array", Items: "string", Description: "2-5 key equations in LaTeX", Required: true},
		{Name: "definitions", Type: "object", Description: "variable/symbol definitions"},
		{Name: "interpretation", Type: "string", Description: "physical or mathematical meaning"},
		{Name: "examples", Type: "array", Items: "string", Description: "1-2 worked examples"},
		{Name: "typical_values", Type: "object", Description: "typical magnitudes with units"},
	},
}

type mathPayload struct {
	Equations      []string          `json:"equations"`
	Definitions    map[string]string `json:"definitions"`
	Interpretation string            `json:"interpretation"`
	Examples       []string          `json:"examples"`
	TypicalValues  map[string]string `json:"typical_values"`
}

// MathEnricher adds equations, symbol definitions, and interpretations to
// every node of a knowledge tree. Nodes are independent; a failure on one
// never blocks its siblings.
type MathEnricher struct {
	invoker oracle.Invoker

	usage  oracle.Usage
	failed int
}

// NewMathEnricher creates a MathEnricher over the given oracle client.
func NewMathEnricher(client oracle.Client) *MathEnricher {
	return &MathEnricher{invoker: oracle.NewInvoker(client)}
}

// EnrichTree fills in mathematical content for every node. Authentication
// failures abort; anything else leaves the affected node bare and moves on.
func (m *MathEnricher) EnrichTree(ctx context.Context, root *tree.Node) error {
	m.usage, m.failed = oracle.Usage{}, 0

	var authErr error
	root.Walk(func(node *tree.Node) bool {
		if err := m.enrichNode(ctx, node); err != nil {
			if errors.Is(err, oracle.ErrAuth) {
				authErr = err
				return false
			}
			logging.EnrichWarn("math: skipping %q: %v", node.Concept, err)
			m.failed++
		}
		return true
	})
	if authErr != nil {
		return authErr
	}
	logging.Enrich("math: enriched %d nodes (%d skipped)", root.Count()-m.failed, m.failed)
	return nil
}

// Failed reports how many nodes were left unenriched in the last run.
func (m *MathEnricher) Failed() int {
	return m.failed
}

// Usage returns accumulated oracle token usage for the last run.
func (m *MathEnricher) Usage() oracle.Usage {
	return m.usage
}

func (m *MathEnricher) enrichNode(ctx context.Context, node *tree.Node) error {
	logging.EnrichDebug("%smath: %s (depth %d)", strings.Repeat("  ", node.Depth), node.Concept, node.Depth)

	// Foundation concepts stay at high school level; the rest get rigor.
	complexity := "undergraduate/graduate level"
	if node.Foundation {
		complexity = "high school level"
	}

	var payload mathPayload
	usage, err := m.invoker.Invoke(ctx, oracle.Request{
		System: mathSystemPrompt,
		User: fmt.Sprintf(
			"Concept: %s\nComplexity level: %s\nDepth in knowledge tree: %d (0=advanced, higher=more foundational)\n\nProvide the mathematical content for this concept suitable for an animated explanation.",
			node.Concept, complexity, node.Depth),
		Temperature: mathTemperature,
		MaxTokens:   mathMaxTokens,
	}, mathSchema, &payload)
	m.usage.Add(usage)
	if err != nil {
		return err
	}

	node.Equations = payload.Equations
	node.Definitions = payload.Definitions
	if node.Visual == nil {
		node.Visual = &tree.VisualPlan{}
	}
	node.Visual.Interpretation = payload.Interpretation
	node.Visual.Examples = payload.Examples
	node.Visual.TypicalValues = payload.TypicalValues
	return nil
}
