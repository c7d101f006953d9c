package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noesis/internal/oracle"
	"noesis/internal/tree"
)

// enrichOracle scripts all three stages. Tool calls serve the math and
// visual stages, keyed by schema name; plain completions serve the
// narrative stage. Concepts are read from the "Concept:" prompt line.
type enrichOracle struct {
	mu sync.Mutex

	failMath     map[string]bool     // these concepts get no tool call back
	failVisual   map[string]bool
	visualColors map[string]map[string]interface{} // per-concept color overrides
	segments     map[string][]string               // scripted narrative replies, shifted per call
	segmentErr   map[string]error

	mathCalls    []string
	visualCalls  []string
	segmentCalls []string
	authErr      error
}

const defaultDuration = 20

func (f *enrichOracle) Complete(_ context.Context, req oracle.Request) (*oracle.Reply, error) {
	concept := promptConcept(req.User)
	f.mu.Lock()
	f.segmentCalls = append(f.segmentCalls, concept)
	f.mu.Unlock()
	if f.authErr != nil {
		return nil, f.authErr
	}
	if err := f.segmentErr[concept]; err != nil {
		return nil, err
	}
	if queued := f.segments[concept]; len(queued) > 0 {
		f.segments[concept] = queued[1:]
		return &oracle.Reply{Text: queued[0], Usage: oracle.Usage{TotalTokens: 5}}, nil
	}
	return &oracle.Reply{Text: longSegment(concept), Usage: oracle.Usage{TotalTokens: 5}}, nil
}

func (f *enrichOracle) CompleteWithTools(_ context.Context, req oracle.Request, tools []oracle.ToolDefinition) (*oracle.ToolResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	concept := promptConcept(req.User)
	switch tools[0].Name {
	case "record_math_content":
		f.mu.Lock()
		f.mathCalls = append(f.mathCalls, concept)
		f.mu.Unlock()
		if f.failMath[concept] {
			return &oracle.ToolResponse{Text: "cannot comply"}, nil
		}
		return toolResponse("record_math_content", map[string]interface{}{
			"equations":      []interface{}{`$E = mc^2$`},
			"definitions":    map[string]interface{}{"E": "energy"},
			"interpretation": "energy and mass are equivalent",
			"examples":       []interface{}{"1 kg releases 9e16 J"},
			"typical_values": map[string]interface{}{"c": "3e8 m/s"},
		}), nil
	case "record_visual_plan":
		f.mu.Lock()
		f.visualCalls = append(f.visualCalls, concept)
		f.mu.Unlock()
		if f.failVisual[concept] {
			return &oracle.ToolResponse{Text: "cannot comply"}, nil
		}
		colors := map[string]interface{}{"curve": "BLUE"}
		if override, ok := f.visualColors[concept]; ok {
			colors = override
		}
		return toolResponse("record_visual_plan", map[string]interface{}{
			"elements":        []interface{}{"axes", "curve"},
			"colors":          colors,
			"animations":      []interface{}{"FadeIn", "Create"},
			"transitions":     []interface{}{"morph from previous scene"},
			"camera_movement": "",
			"duration":        float64(defaultDuration),
			"layout":          "centered",
		}), nil
	default:
		return nil, fmt.Errorf("unexpected tool %q", tools[0].Name)
	}
}

func (f *enrichOracle) SchemaCapable() bool { return true }
func (f *enrichOracle) Model() string       { return "scripted" }

func toolResponse(name string, input map[string]interface{}) *oracle.ToolResponse {
	return &oracle.ToolResponse{
		ToolCalls: []oracle.ToolCall{{Name: name, Input: input}},
		Usage:     oracle.Usage{TotalTokens: 10},
	}
}

func promptConcept(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if after, ok := strings.CutPrefix(line, "Concept: "); ok {
			return after
		}
	}
	return ""
}

func longSegment(concept string) string {
	return strings.TrimSpace(strings.Repeat(
		fmt.Sprintf("Show %s on screen and walk through each motion with care. ", concept), 20))
}

// calcTree builds: calculus -> (algebra, functions), both foundation.
func calcTree() *tree.Node {
	root := tree.NewNode("calculus", 0, false)
	root.Prerequisites = []*tree.Node{
		tree.NewNode("algebra", 1, true),
		tree.NewNode("functions", 1, true),
	}
	return root
}

func TestPipelineEnrichesWholeTree(t *testing.T) {
	client := &enrichOracle{}
	result, err := NewPipeline(client).Run(context.Background(), calcTree())
	require.NoError(t, err)

	narrative := result.Narrative
	require.NotNil(t, narrative)
	assert.Equal(t, "calculus", narrative.TargetConcept)
	assert.Equal(t, 3, narrative.SceneCount)
	assert.Equal(t, []string{"algebra", "functions", "calculus"}, narrative.ConceptOrder,
		"prerequisites are taught before the concept they support")
	assert.Equal(t, 3*defaultDuration, narrative.TotalDuration)
	assert.Positive(t, result.Usage.TotalTokens)
	assert.Zero(t, result.MathSkips)
}

func TestPipelineWritesNodes(t *testing.T) {
	root := calcTree()
	client := &enrichOracle{}
	result, err := NewPipeline(client).Run(context.Background(), root)
	require.NoError(t, err)

	root.Walk(func(n *tree.Node) bool {
		assert.NotEmpty(t, n.Equations, "math content on %q", n.Concept)
		require.NotNil(t, n.Visual, "visual plan on %q", n.Concept)
		assert.Equal(t, defaultDuration, n.Visual.DurationSec)
		assert.Equal(t, "energy and mass are equivalent", n.Visual.Interpretation,
			"visual stage must not clobber the math stage's fields")
		assert.NotEmpty(t, n.Narrative, "segment on %q", n.Concept)
		return true
	})
	assert.Equal(t, result.Narrative.TotalDuration, root.TotalDurationSec)
}

func TestPipelinePromptLayout(t *testing.T) {
	client := &enrichOracle{}
	result, err := NewPipeline(client).Run(context.Background(), calcTree())
	require.NoError(t, err)

	prompt := result.Narrative.Prompt
	assert.Contains(t, prompt, "### Scene 1: algebra")
	assert.Contains(t, prompt, "### Scene 3: calculus")
	assert.Contains(t, prompt, "**Timestamp**: 0:00 - 0:20")
	assert.Contains(t, prompt, "**Timestamp**: 0:40 - 1:00")
	assert.Contains(t, prompt, "algebra -> functions -> calculus")
}

func TestMathFailureLeavesSiblingsEnriched(t *testing.T) {
	root := calcTree()
	client := &enrichOracle{failMath: map[string]bool{"algebra": true}}
	result, err := NewPipeline(client).Run(context.Background(), root)
	require.NoError(t, err, "one bad node must not fail the run")
	assert.Equal(t, 1, result.MathSkips)

	algebra := root.Find("algebra")
	functions := root.Find("functions")
	assert.Empty(t, algebra.Equations, "failed node stays bare")
	assert.NotEmpty(t, functions.Equations, "sibling is unaffected")
	assert.NotEmpty(t, root.Equations)
	assert.NotEmpty(t, algebra.Narrative, "failed math still gets a narrative segment")
}

func TestVisualDesignIsParentFirst(t *testing.T) {
	client := &enrichOracle{}
	_, err := NewPipeline(client).Run(context.Background(), calcTree())
	require.NoError(t, err)

	require.Len(t, client.visualCalls, 3)
	assert.Equal(t, "calculus", client.visualCalls[0], "parent is designed before its children")
}

func TestVisualChildSeesParentPlan(t *testing.T) {
	// Capture the child's prompt to check continuity context.
	root := calcTree()
	client := &enrichOracle{}
	require.NoError(t, NewMathEnricher(client).EnrichTree(context.Background(), root))

	var childPrompt string
	capture := &promptCapture{inner: client, match: "algebra", captured: &childPrompt}
	require.NoError(t, NewVisualDesigner(capture).DesignTree(context.Background(), root))

	assert.Contains(t, childPrompt, "Previous concept: calculus")
	assert.Contains(t, childPrompt, "curve=BLUE")
}

// promptCapture records the prompt of the first request whose concept
// matches, then delegates.
type promptCapture struct {
	inner    oracle.Client
	match    string
	captured *string
}

func (p *promptCapture) Complete(ctx context.Context, req oracle.Request) (*oracle.Reply, error) {
	if promptConcept(req.User) == p.match && *p.captured == "" {
		*p.captured = req.User
	}
	return p.inner.Complete(ctx, req)
}

func (p *promptCapture) CompleteWithTools(ctx context.Context, req oracle.Request, tools []oracle.ToolDefinition) (*oracle.ToolResponse, error) {
	if promptConcept(req.User) == p.match && *p.captured == "" {
		*p.captured = req.User
	}
	return p.inner.CompleteWithTools(ctx, req, tools)
}

func (p *promptCapture) SchemaCapable() bool { return p.inner.SchemaCapable() }
func (p *promptCapture) Model() string       { return p.inner.Model() }

func TestVisualPaletteAccumulatesAcrossBranches(t *testing.T) {
	// The second child is not a descendant of the first, so only the
	// run-wide palette can carry the first child's colors to it. The
	// pairs are listed in sorted object order.
	root := calcTree()
	client := &enrichOracle{visualColors: map[string]map[string]interface{}{
		"algebra": {"grid": "GREEN"},
	}}
	require.NoError(t, NewMathEnricher(client).EnrichTree(context.Background(), root))

	var siblingPrompt string
	capture := &promptCapture{inner: client, match: "functions", captured: &siblingPrompt}
	require.NoError(t, NewVisualDesigner(capture).DesignTree(context.Background(), root))

	assert.Contains(t, siblingPrompt, "Color palette so far: curve=BLUE, grid=GREEN")
	assert.Contains(t, siblingPrompt, "Previous colors used: curve=BLUE",
		"parent context stays separate from the run-wide palette")
}

func TestComposerExpandsThinSegment(t *testing.T) {
	root := tree.NewNode("algebra", 0, true)
	client := &enrichOracle{segments: map[string][]string{
		"algebra": {"Too short.", longSegment("algebra")},
	}}

	narrative, err := NewComposer(client).Compose(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, client.segmentCalls, 2, "thin segment triggers exactly one expansion")
	assert.Contains(t, narrative.Prompt, "Show algebra on screen")
	assert.Equal(t, 1, narrative.SceneCount)
}

func TestComposerKeepsLongerOfTwoAttempts(t *testing.T) {
	// The expansion comes back even shorter; the original wins.
	root := tree.NewNode("algebra", 0, true)
	client := &enrichOracle{segments: map[string][]string{
		"algebra": {"A modest first attempt with a few words in it.", "Tiny."},
	}}

	narrative, err := NewComposer(client).Compose(context.Background(), root)
	require.NoError(t, err)
	assert.Contains(t, narrative.Prompt, "A modest first attempt with a few words in it.")
	assert.NotContains(t, narrative.Prompt, "Tiny.")
}

func TestComposerStubOnSegmentError(t *testing.T) {
	root := calcTree()
	client := &enrichOracle{segmentErr: map[string]error{
		"functions": errors.New("max retries exceeded"),
	}}

	narrative, err := NewComposer(client).Compose(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, narrative.SceneCount, "failed segment keeps its scene slot")
	assert.Contains(t, root.Find("functions").Narrative, "Introduce functions")
}

func TestComposerNamesNextConceptInPrompt(t *testing.T) {
	// Teaching order is algebra, functions, calculus; each non-final
	// segment request names the concept that follows it.
	root := calcTree()
	client := &enrichOracle{}

	var algebraPrompt, finalPrompt string
	capture := &promptCapture{inner: client, match: "algebra", captured: &algebraPrompt}
	outer := &promptCapture{inner: capture, match: "calculus", captured: &finalPrompt}
	_, err := NewComposer(outer).Compose(context.Background(), root)
	require.NoError(t, err)

	assert.Contains(t, algebraPrompt, "Next concept: functions")
	assert.NotContains(t, finalPrompt, "Next concept:", "the final segment has nothing to bridge to")
	assert.Contains(t, finalPrompt, "FINAL segment")
}

func TestComposerWritesScriptToRoot(t *testing.T) {
	root := calcTree()
	narrative, err := NewComposer(&enrichOracle{}).Compose(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, narrative.Prompt, root.Narrative,
		"the persisted root carries the assembled script")
	assert.Contains(t, root.Narrative, "### Scene 1: algebra")
	assert.Contains(t, root.Narrative, "### Scene 3: calculus")
	assert.NotEmpty(t, root.Find("algebra").Narrative)
}

func TestComposerDeduplicatesRepeatedConcepts(t *testing.T) {
	// "limits" appears under two branches; it is taught once.
	root := tree.NewNode("analysis", 0, false)
	left := tree.NewNode("derivatives", 1, false)
	left.Prerequisites = []*tree.Node{tree.NewNode("limits", 2, true)}
	right := tree.NewNode("integrals", 1, false)
	right.Prerequisites = []*tree.Node{tree.NewNode("limits", 2, true)}
	root.Prerequisites = []*tree.Node{left, right}

	narrative, err := NewComposer(&enrichOracle{}).Compose(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"limits", "derivatives", "integrals", "analysis"}, narrative.ConceptOrder)
}

func TestPipelineAuthAborts(t *testing.T) {
	client := &enrichOracle{authErr: fmt.Errorf("status 401: %w", oracle.ErrAuth)}
	_, err := NewPipeline(client).Run(context.Background(), calcTree())
	require.Error(t, err)
	assert.ErrorIs(t, err, oracle.ErrAuth)
}
