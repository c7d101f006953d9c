// Package tree defines the knowledge tree built by the prerequisite explorer
// and consumed by the enrichment pipeline. The root is the target concept;
// children are its prerequisites, down to foundation leaves.
package tree

import (
	"fmt"
	"strings"
)

// Node is one concept in the knowledge tree. A node owns its prerequisite
// children exclusively; subtrees are never shared between parents.
//
// Equations, Definitions and Visual are populated by the enrichment stages.
// Narrative is populated on the root only, after composition.
type Node struct {
	Concept       string            `json:"concept"`
	Depth         int               `json:"depth"`
	Foundation    bool              `json:"is_foundation"`
	Prerequisites []*Node           `json:"prerequisites"`
	Equations     []string          `json:"equations,omitempty"`
	Definitions   map[string]string `json:"definitions,omitempty"`
	Visual        *VisualPlan       `json:"visual_plan,omitempty"`
	Narrative     string            `json:"narrative,omitempty"`

	// TotalDurationSec is the summed estimated duration of all narrative
	// segments. Set on the root by the composer.
	TotalDurationSec int `json:"total_duration_sec,omitempty"`
}

// VisualPlan is the structured animation plan for one concept.
// Interpretation and Examples are written by the math enricher; the rest by
// the visual designer.
type VisualPlan struct {
	Elements       []string          `json:"elements,omitempty"`
	Colors         map[string]string `json:"colors,omitempty"`
	Animations     []string          `json:"animations,omitempty"`
	Transitions    []string          `json:"transitions,omitempty"`
	CameraMovement string            `json:"camera_movement,omitempty"`
	Layout         string            `json:"layout,omitempty"`
	DurationSec    int               `json:"duration_sec,omitempty"`
	Interpretation string            `json:"interpretation,omitempty"`
	Examples       []string          `json:"examples,omitempty"`
	TypicalValues  map[string]string `json:"typical_values,omitempty"`
}

// NewNode creates a node with no prerequisites.
func NewNode(concept string, depth int, foundation bool) *Node {
	return &Node{
		Concept:       concept,
		Depth:         depth,
		Foundation:    foundation,
		Prerequisites: []*Node{},
	}
}

// NormalizeConcept canonicalizes a concept name for identity comparisons:
// lowercased, interior whitespace collapsed to single spaces.
func NormalizeConcept(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Validate checks the structural invariants of the subtree rooted at n:
// child depth is parent depth + 1, foundation nodes have no children, and no
// concept name repeats along any root-to-node path.
func (n *Node) Validate() error {
	return n.validate(map[string]bool{})
}

func (n *Node) validate(path map[string]bool) error {
	if n.Depth < 0 {
		return fmt.Errorf("node %q: negative depth %d", n.Concept, n.Depth)
	}
	if n.Foundation && len(n.Prerequisites) > 0 {
		return fmt.Errorf("foundation node %q has %d prerequisites", n.Concept, len(n.Prerequisites))
	}
	key := NormalizeConcept(n.Concept)
	if path[key] {
		return fmt.Errorf("concept %q repeats on its root-to-node path", n.Concept)
	}
	path[key] = true
	defer delete(path, key)

	for _, p := range n.Prerequisites {
		if p.Depth != n.Depth+1 {
			return fmt.Errorf("node %q at depth %d has child %q at depth %d", n.Concept, n.Depth, p.Concept, p.Depth)
		}
		if err := p.validate(path); err != nil {
			return err
		}
	}
	return nil
}

// MaxDepth returns the largest depth value in the subtree.
func (n *Node) MaxDepth() int {
	max := n.Depth
	for _, p := range n.Prerequisites {
		if d := p.MaxDepth(); d > max {
			max = d
		}
	}
	return max
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	total := 1
	for _, p := range n.Prerequisites {
		total += p.Count()
	}
	return total
}

// Sprint renders the tree as an indented listing for terminal display.
func (n *Node) Sprint() string {
	var b strings.Builder
	n.sprint(&b, 0)
	return b.String()
}

func (n *Node) sprint(b *strings.Builder, indent int) {
	mark := ""
	if n.Foundation {
		mark = " [FOUNDATION]"
	}
	fmt.Fprintf(b, "%s├─ %s (depth %d)%s\n", strings.Repeat("  ", indent), n.Concept, n.Depth, mark)
	for _, p := range n.Prerequisites {
		p.sprint(b, indent+1)
	}
}
