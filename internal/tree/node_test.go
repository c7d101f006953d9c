package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Node {
	root := NewNode("calculus", 0, false)
	limits := NewNode("limits", 1, false)
	limits.Prerequisites = []*Node{NewNode("functions", 2, true)}
	root.Prerequisites = []*Node{
		NewNode("algebra", 1, true),
		limits,
	}
	return root
}

func TestNormalizeConcept(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Linear Algebra", "linear algebra"},
		{"  linear   algebra  ", "linear algebra"},
		{"LIMITS", "limits"},
		{"", ""},
		{"\talgebra\n", "algebra"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeConcept(tt.in), "input %q", tt.in)
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	require.NoError(t, sampleTree().Validate())
}

func TestValidateDepthMismatch(t *testing.T) {
	root := NewNode("calculus", 0, false)
	root.Prerequisites = []*Node{NewNode("algebra", 2, true)}

	err := root.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestValidateFoundationWithChildren(t *testing.T) {
	root := NewNode("algebra", 0, true)
	root.Prerequisites = []*Node{NewNode("arithmetic", 1, true)}

	err := root.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foundation")
}

func TestValidateRepeatedConceptOnPath(t *testing.T) {
	root := NewNode("calculus", 0, false)
	child := NewNode("limits", 1, false)
	// Same name modulo case and spacing.
	child.Prerequisites = []*Node{NewNode("  CALCULUS ", 2, true)}
	root.Prerequisites = []*Node{child}

	err := root.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeats")
}

func TestValidateAllowsRepeatAcrossBranches(t *testing.T) {
	// The same concept under two different parents is legitimate; only a
	// repeat along one root-to-node path is a cycle.
	root := NewNode("analysis", 0, false)
	left := NewNode("derivatives", 1, false)
	left.Prerequisites = []*Node{NewNode("limits", 2, true)}
	right := NewNode("integrals", 1, false)
	right.Prerequisites = []*Node{NewNode("limits", 2, true)}
	root.Prerequisites = []*Node{left, right}

	require.NoError(t, root.Validate())
}

func TestMaxDepthAndCount(t *testing.T) {
	root := sampleTree()
	assert.Equal(t, 2, root.MaxDepth())
	assert.Equal(t, 4, root.Count())
}

func TestSprint(t *testing.T) {
	out := sampleTree().Sprint()
	assert.Contains(t, out, "├─ calculus (depth 0)")
	assert.Contains(t, out, "├─ algebra (depth 1) [FOUNDATION]")
	assert.Contains(t, out, "    ├─ functions (depth 2) [FOUNDATION]")
}
