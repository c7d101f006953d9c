package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"noesis/internal/oracle"
)

// scriptedOracle answers probes and discoveries from fixed tables, keyed by
// the concept quoted in the prompt. Schema-capable, so discoveries arrive
// via the tool path and probes are the only plain completions.
type scriptedOracle struct {
	mu sync.Mutex

	foundations map[string]bool     // probe answers; absent means "no"
	prereqs     map[string][]string // discovery answers

	probeErr    error
	discoverErr error

	probeCalls    []string
	discoverCalls []string
}

func (s *scriptedOracle) Complete(_ context.Context, req oracle.Request) (*oracle.Reply, error) {
	concept := quotedConcept(req.User)
	s.mu.Lock()
	s.probeCalls = append(s.probeCalls, concept)
	s.mu.Unlock()
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	answer := "no"
	if s.foundations[concept] {
		answer = "yes"
	}
	return &oracle.Reply{Text: answer, Usage: oracle.Usage{TotalTokens: 2}}, nil
}

func (s *scriptedOracle) CompleteWithTools(_ context.Context, req oracle.Request, _ []oracle.ToolDefinition) (*oracle.ToolResponse, error) {
	concept := quotedConcept(req.User)
	s.mu.Lock()
	s.discoverCalls = append(s.discoverCalls, concept)
	s.mu.Unlock()
	if s.discoverErr != nil {
		return nil, s.discoverErr
	}
	prereqs := s.prereqs[concept]
	items := make([]interface{}, len(prereqs))
	for i, p := range prereqs {
		items[i] = p
	}
	return &oracle.ToolResponse{
		ToolCalls: []oracle.ToolCall{{
			Name:  "record_prerequisites",
			Input: map[string]interface{}{"prerequisites": items},
		}},
		Usage: oracle.Usage{TotalTokens: 10},
	}, nil
}

func (s *scriptedOracle) SchemaCapable() bool { return true }
func (s *scriptedOracle) Model() string       { return "scripted" }

// quotedConcept pulls the first double-quoted string out of a prompt.
func quotedConcept(prompt string) string {
	start := strings.IndexByte(prompt, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(prompt[start+1:], '"')
	if end < 0 {
		return ""
	}
	return prompt[start+1 : start+1+end]
}

func TestExploreFoundationConcept(t *testing.T) {
	// A concept the probe immediately recognizes yields a single leaf.
	client := &scriptedOracle{foundations: map[string]bool{"addition": true}}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "addition")
	require.NoError(t, err)
	assert.Equal(t, "addition", node.Concept)
	assert.True(t, node.Foundation)
	assert.Empty(t, node.Prerequisites)
	assert.Equal(t, 0, node.Depth)
	assert.Empty(t, client.discoverCalls, "foundation concepts are never expanded")
}

func TestExploreBuildsTree(t *testing.T) {
	client := &scriptedOracle{
		foundations: map[string]bool{"algebra": true, "functions": true},
		prereqs:     map[string][]string{"calculus": {"algebra", "functions"}},
	}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "calculus")
	require.NoError(t, err)
	require.NoError(t, node.Validate())

	assert.Equal(t, "calculus", node.Concept)
	assert.False(t, node.Foundation)
	require.Len(t, node.Prerequisites, 2)
	assert.Equal(t, "algebra", node.Prerequisites[0].Concept)
	assert.Equal(t, "functions", node.Prerequisites[1].Concept)
	for _, child := range node.Prerequisites {
		assert.Equal(t, 1, child.Depth)
		assert.True(t, child.Foundation)
	}
}

func TestExploreMaxDepth(t *testing.T) {
	// Every concept claims one more prerequisite; the depth bound has to
	// stop the recursion.
	client := &scriptedOracle{prereqs: map[string][]string{}}
	for i := 0; i < 10; i++ {
		client.prereqs[fmt.Sprintf("level-%d", i)] = []string{fmt.Sprintf("level-%d", i+1)}
	}
	e := New(client, Options{MaxDepth: 3})

	node, err := e.Explore(context.Background(), "level-0")
	require.NoError(t, err)
	require.NoError(t, node.Validate())
	assert.Equal(t, 3, node.MaxDepth())

	deepest := node
	for len(deepest.Prerequisites) > 0 {
		deepest = deepest.Prerequisites[0]
	}
	assert.True(t, deepest.Foundation, "depth-limited leaves are marked foundation")
}

func TestExploreCacheHitSingleQuery(t *testing.T) {
	// "limits" appears under both branches; discovery for it must run once.
	client := &scriptedOracle{
		foundations: map[string]bool{"limits": false, "sets": true},
		prereqs: map[string][]string{
			"analysis":      {"derivatives", "integrals"},
			"derivatives":   {"limits"},
			"integrals":     {"limits"},
			"limits":        {"sets"},
		},
	}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "analysis")
	require.NoError(t, err)
	require.NoError(t, node.Validate())

	count := 0
	for _, c := range client.discoverCalls {
		if c == "limits" {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated concept must hit the cache")
	assert.Equal(t, 4, e.Cache().Len()) // analysis, derivatives, integrals, limits
}

func TestExploreCyclePruned(t *testing.T) {
	// The oracle claims calculus needs limits and limits needs calculus.
	client := &scriptedOracle{
		prereqs: map[string][]string{
			"calculus": {"limits"},
			"limits":   {"calculus", "sets"},
		},
		foundations: map[string]bool{"sets": true},
	}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "calculus")
	require.NoError(t, err)
	require.NoError(t, node.Validate())

	limits := node.Prerequisites[0]
	require.Equal(t, "limits", limits.Concept)
	require.Len(t, limits.Prerequisites, 1, "cyclic edge back to calculus is pruned")
	assert.Equal(t, "sets", limits.Prerequisites[0].Concept)
}

func TestExploreAuthErrorAborts(t *testing.T) {
	client := &scriptedOracle{probeErr: fmt.Errorf("status 401: %w", oracle.ErrAuth)}
	e := New(client, Options{})

	_, err := e.Explore(context.Background(), "calculus")
	require.Error(t, err)
	assert.ErrorIs(t, err, oracle.ErrAuth)
}

func TestExploreOracleFailureDegradesToFoundation(t *testing.T) {
	// Probe works, discovery dies: the node closes out as a leaf instead
	// of losing the tree.
	client := &scriptedOracle{
		discoverErr: errors.New("max retries exceeded: status 503"),
	}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "calculus")
	require.NoError(t, err)
	assert.True(t, node.Foundation)
	assert.Empty(t, node.Prerequisites)
}

func TestExploreNoPrerequisitesMeansFoundation(t *testing.T) {
	// Probe says not foundational but discovery comes back empty.
	client := &scriptedOracle{prereqs: map[string][]string{"widget": nil}}
	e := New(client, Options{})

	node, err := e.Explore(context.Background(), "widget")
	require.NoError(t, err)
	assert.True(t, node.Foundation)
}

func TestExploreParallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &scriptedOracle{
		foundations: map[string]bool{
			"algebra": true, "functions": true, "limits": true, "geometry": true,
		},
		prereqs: map[string][]string{
			"calculus": {"algebra", "functions", "limits", "geometry"},
		},
	}
	e := New(client, Options{Parallel: true, MaxInFlight: 2})

	node, err := e.Explore(context.Background(), "calculus")
	require.NoError(t, err)
	require.NoError(t, node.Validate())

	// Sibling order is preserved regardless of completion order.
	require.Len(t, node.Prerequisites, 4)
	assert.Equal(t, "algebra", node.Prerequisites[0].Concept)
	assert.Equal(t, "geometry", node.Prerequisites[3].Concept)
}

func TestExploreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedOracle{}
	e := New(client, Options{})

	node, err := e.Explore(ctx, "calculus")
	require.NoError(t, err)
	assert.True(t, node.Foundation, "cancelled exploration closes out as a leaf")
	assert.Empty(t, client.probeCalls)
}

func TestExplorerSessionIdentity(t *testing.T) {
	client := &scriptedOracle{}
	a, b := New(client, Options{}), New(client, Options{})
	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID(), "each explorer owns a session")
}

func TestExploreAccumulatesUsage(t *testing.T) {
	client := &scriptedOracle{
		foundations: map[string]bool{"algebra": true},
		prereqs:     map[string][]string{"calculus": {"algebra"}},
	}
	e := New(client, Options{})

	_, err := e.Explore(context.Background(), "calculus")
	require.NoError(t, err)
	assert.Positive(t, e.Usage().TotalTokens)
}
