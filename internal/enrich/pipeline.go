package enrich

import (
	"context"
	"fmt"
	"time"

	"noesis/internal/logging"
	"noesis/internal/oracle"
	"noesis/internal/tree"
)

// Pipeline runs the three enrichment stages in their required order: math
// (any order within the tree), visual design (parent before child), then
// narrative composition over the finished tree.
type Pipeline struct {
	math     *MathEnricher
	visual   *VisualDesigner
	composer *Composer

	// SkipVisual leaves out the visual design stage; the narrative then
	// paces every scene at the default duration.
	SkipVisual bool
}

// Result summarizes one pipeline run.
type Result struct {
	Narrative   *Narrative
	Usage       oracle.Usage
	MathSkips   int
	VisualSkips int
	Elapsed     time.Duration
}

// NewPipeline creates a pipeline over a single oracle client. All stages
// share the client; each negotiates structure through its own invoker.
func NewPipeline(client oracle.Client) *Pipeline {
	return &Pipeline{
		math:     NewMathEnricher(client),
		visual:   NewVisualDesigner(client),
		composer: NewComposer(client),
	}
}

// Run enriches the tree in place and returns the composed narrative.
func (p *Pipeline) Run(ctx context.Context, root *tree.Node) (*Result, error) {
	start := time.Now()
	logging.Enrich("pipeline: %q, %d nodes", root.Concept, root.Count())

	if err := p.math.EnrichTree(ctx, root); err != nil {
		return nil, fmt.Errorf("math stage: %w", err)
	}
	if !p.SkipVisual {
		if err := p.visual.DesignTree(ctx, root); err != nil {
			return nil, fmt.Errorf("visual stage: %w", err)
		}
	}
	narrative, err := p.composer.Compose(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("narrative stage: %w", err)
	}

	result := &Result{
		Narrative:   narrative,
		MathSkips:   p.math.Failed(),
		VisualSkips: p.visual.Failed(),
		Elapsed:     time.Since(start),
	}
	result.Usage.Add(p.math.Usage())
	result.Usage.Add(p.visual.Usage())
	result.Usage.Add(p.composer.Usage())

	logging.Enrich("pipeline: done in %v, %d tokens, %d/%d skips",
		result.Elapsed, result.Usage.TotalTokens, result.MathSkips, result.VisualSkips)
	return result, nil
}
