package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concepts(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Concept
	}
	return out
}

func TestWalkPreOrder(t *testing.T) {
	var visited []string
	sampleTree().Walk(func(n *Node) bool {
		visited = append(visited, n.Concept)
		return true
	})
	assert.Equal(t, []string{"calculus", "algebra", "limits", "functions"}, visited)
}

func TestWalkStopsEarly(t *testing.T) {
	var visited []string
	sampleTree().Walk(func(n *Node) bool {
		visited = append(visited, n.Concept)
		return n.Concept != "calculus"
	})
	assert.Equal(t, []string{"calculus"}, visited)
}

func TestPostOrder(t *testing.T) {
	got := concepts(sampleTree().PostOrder())
	assert.Equal(t, []string{"algebra", "functions", "limits", "calculus"}, got)
}

func TestConceptOrderPrerequisitesFirst(t *testing.T) {
	order := concepts(sampleTree().ConceptOrder())
	assert.Equal(t, []string{"algebra", "functions", "limits", "calculus"}, order)

	// Topological property: every node appears after all its prerequisites.
	index := map[string]int{}
	for i, c := range order {
		index[c] = i
	}
	sampleTree().Walk(func(n *Node) bool {
		for _, p := range n.Prerequisites {
			assert.Less(t, index[p.Concept], index[n.Concept],
				"%q must be taught before %q", p.Concept, n.Concept)
		}
		return true
	})
}

func TestConceptOrderDeduplicates(t *testing.T) {
	// "limits" appears in both branches, the second with different casing.
	root := NewNode("analysis", 0, false)
	left := NewNode("derivatives", 1, false)
	left.Prerequisites = []*Node{NewNode("limits", 2, true)}
	right := NewNode("integrals", 1, false)
	right.Prerequisites = []*Node{NewNode("Limits", 2, true)}
	root.Prerequisites = []*Node{left, right}

	order := concepts(root.ConceptOrder())
	assert.Equal(t, []string{"limits", "derivatives", "integrals", "analysis"}, order)
}

func TestConceptOrderSkipsRepeatedSubtree(t *testing.T) {
	// The repeated node's own subtree is skipped wholesale, not re-walked.
	shared := NewNode("limits", 1, false)
	shared.Prerequisites = []*Node{NewNode("functions", 2, true)}
	repeat := NewNode("limits", 1, false)
	repeat.Prerequisites = []*Node{NewNode("sequences", 2, true)}

	root := NewNode("calculus", 0, false)
	root.Prerequisites = []*Node{shared, repeat}

	order := concepts(root.ConceptOrder())
	assert.Equal(t, []string{"functions", "limits", "calculus"}, order)
	assert.NotContains(t, order, "sequences")
}

func TestFind(t *testing.T) {
	root := sampleTree()
	require.NotNil(t, root.Find("functions"))
	assert.Equal(t, 2, root.Find("Functions").Depth)
	assert.Nil(t, root.Find("topology"))
}
